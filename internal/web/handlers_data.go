package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/store"
	"github.com/JonMunkholm/datatable/internal/web/templates"
)

// handleIndex renders the table page. HTMX requests get only the table
// fragment.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := parseQuery(r, s.cfg.Table.DefaultPageSize)

	data := templates.TableData{
		Columns:    s.table.VisibleColumns(),
		AllColumns: s.table.Columns(),
		View:       s.table.View(q),
		Query:      q,
		Encode:     encodeQuery,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if isHTMX(r) {
		templates.TablePartial(data).Render(r.Context(), w) //nolint:errcheck // headers already sent
		return
	}
	templates.TablePage(data).Render(r.Context(), w) //nolint:errcheck // headers already sent
}

// handleListRows returns one filtered, sorted page of rows.
func (s *Server) handleListRows(w http.ResponseWriter, r *http.Request) {
	q := parseQuery(r, s.cfg.Table.DefaultPageSize)
	view := s.table.View(q)
	writeJSON(w, http.StatusOK, newViewResponse(s.table.VisibleColumns(), q, view))
}

// handleGetRow returns a single row by id.
func (s *Server) handleGetRow(w http.ResponseWriter, r *http.Request) {
	row, ok := s.table.Row(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, r, core.ErrRowNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// handleListColumns returns every column, hidden ones included.
func (s *Server) handleListColumns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.table.Columns())
}

// handleSnapshot returns the durable table state.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.table.Snapshot())
}

// HealthResponse reports liveness plus table, import and persistence state.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Rows      int                      `json:"rows"`
	Columns   int                      `json:"columns"`
	Imports   core.ImportLimiterStatus `json:"imports"`
	Persister *store.PersisterStatus   `json:"persister,omitempty"`
}

// handleHealth reports "degraded" while the latest snapshot save is failing.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Rows:    s.table.Len(),
		Columns: len(s.table.Columns()),
		Imports: s.imports.Status(),
	}
	if s.persister != nil {
		st := s.persister.Status()
		resp.Persister = &st
		if st.LastError != "" {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
