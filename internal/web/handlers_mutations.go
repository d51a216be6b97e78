package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/logging"
)

// handleAddRow stores a new row. The body is a flat JSON object of column
// id to value; unknown columns are dropped.
func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	var body map[string]core.Value
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	row := s.table.AddRow(s.parseFields(body))
	logging.FromContext(r.Context()).Info("row added", "row_id", row.ID)
	writeJSON(w, http.StatusCreated, row)
}

// handleUpdateRow merges the body into an existing row.
func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body map[string]core.Value
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if !s.table.UpdateRow(id, s.parseFields(body)) {
		respondError(w, r, core.ErrRowNotFound, http.StatusNotFound)
		return
	}

	row, _ := s.table.Row(id)
	logging.FromContext(r.Context()).Info("row updated", "row_id", id)
	writeJSON(w, http.StatusOK, row)
}

// handleDeleteRow removes a row.
func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.table.DeleteRow(id) {
		respondError(w, r, core.ErrRowNotFound, http.StatusNotFound)
		return
	}

	logging.FromContext(r.Context()).Info("row deleted", "row_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type addColumnRequest struct {
	Label string `json:"label"`
}

// handleAddColumn adds a column from a display label and backfills it.
func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var req addColumnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	col, ok := s.table.AddColumnFromLabel(req.Label)
	if !ok {
		id := core.ColumnIDFromLabel(req.Label)
		if id == "" || id == core.ReservedColumnID {
			respondError(w, r, core.ErrInvalidColumn, http.StatusBadRequest)
			return
		}
		respondError(w, r, core.ErrDuplicateColumn, http.StatusConflict)
		return
	}

	logging.FromContext(r.Context()).Info("column added", "column_id", col.ID)
	writeJSON(w, http.StatusCreated, col)
}

// handleToggleColumn flips a column's visibility.
func (s *Server) handleToggleColumn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.table.ToggleColumnVisibility(id) {
		respondError(w, r, core.ErrColumnNotFound, http.StatusNotFound)
		return
	}

	col, _ := s.table.Column(id)
	writeJSON(w, http.StatusOK, col)
}

// handleReset restores the seed table.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.table.ResetToDefault()
	logging.FromContext(r.Context()).Info("table reset")
	writeJSON(w, http.StatusOK, s.table.Snapshot())
}
