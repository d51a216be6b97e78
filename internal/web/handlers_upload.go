package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/logging"
)

// multipartOverhead is headroom for multipart boundaries and headers on top
// of the file size limit.
const multipartOverhead = 1 << 20

// maxFormMemory caps the part of a multipart upload held in memory; the
// rest spills to temp files.
const maxFormMemory = 8 << 20

// ImportResponse reports the outcome of POST /api/import.
type ImportResponse struct {
	Added      int           `json:"added"`
	NewColumns []core.Column `json:"newColumns"`
	TotalRows  int           `json:"totalRows"`
}

// handleImport parses an uploaded CSV file and appends its rows.
//
// The parse runs off the request goroutine under the import limiter and the
// configured import timeout. A failed parse leaves the table unchanged.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(min(maxSize, maxFormMemory)); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, r, errBodyTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, invalidRequest(err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, core.ErrNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	importLog := logging.WithFields(r.Context(), "file", header.Filename, "size", header.Size)

	if err := s.imports.Acquire(r.Context()); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer s.imports.Release()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	start := time.Now()
	importLog.Info("import started")

	res := <-core.ImportCSVAsync(ctx, file, s.table.Columns(), core.ImportOptions{MaxBytes: maxSize})
	if err := res.Err(); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	added := s.table.ApplyImport(res)
	importLog.Info("import applied",
		"rows", added,
		"new_columns", len(res.NewColumns),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	// Plain form posts from the table page go back to it.
	if r.FormValue("redirect") == "/" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{
		Added:      added,
		NewColumns: res.NewColumns,
		TotalRows:  s.table.Len(),
	})
}

// handleExportCSV downloads every row over the visible columns as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := core.WriteCSV(&buf, s.table.Rows(), s.table.VisibleColumns()); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+core.ExportFileName+`"`)
	w.Write(buf.Bytes()) //nolint:errcheck // client gone
}

// handleExportXLSX downloads the same content as handleExportCSV as a
// spreadsheet.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := core.WriteXLSX(&buf, s.table.Rows(), s.table.VisibleColumns()); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+core.XLSXExportFileName+`"`)
	w.Write(buf.Bytes()) //nolint:errcheck // client gone
}
