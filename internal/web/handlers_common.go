// Package web provides HTTP handlers for the data table.
// This file contains shared utilities and helper functions used across handlers.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/datatable/internal/core"
)

// maxJSONBody caps JSON request bodies for row and column mutations.
const maxJSONBody = 1 << 20

// parseIntParam parses a non-negative integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// parseQuery reads the view state from URL parameters:
//
//	?search=ann&sort=age&dir=desc&page=0&pageSize=25
//
// Page is 0-based. Page sizes outside core.PageSizes fall back to
// defaultPageSize.
func parseQuery(r *http.Request, defaultPageSize int) core.Query {
	params := r.URL.Query()

	q := core.NewQuery()
	q.Search = params.Get("search")
	q.SortColumn = strings.TrimSpace(params.Get("sort"))
	q.SortOrder = core.ParseSortOrder(params.Get("dir"))
	q.Page = parseIntParam(r, "page", 0)

	q.PageSize = parseIntParam(r, "pageSize", defaultPageSize)
	if !core.ValidPageSize(q.PageSize) {
		q.PageSize = defaultPageSize
	}
	return q.Normalize()
}

// encodeQuery is the inverse of parseQuery. Default values are omitted.
func encodeQuery(q core.Query) string {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortColumn != "" {
		v.Set("sort", q.SortColumn)
		v.Set("dir", string(q.SortOrder))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize != core.DefaultPageSize {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	return v.Encode()
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return invalidRequest(err)
	}
	return nil
}

// parseFields converts a JSON field map into typed row fields. JSON numbers
// stay numbers; strings are typed by the table, so "31" becomes a number in
// a numeric column.
func (s *Server) parseFields(body map[string]core.Value) core.Fields {
	raw := make(map[string]string)
	out := make(core.Fields, len(body))
	for k, v := range body {
		if v.IsNumber() {
			out[k] = v
			continue
		}
		raw[k] = v.String()
	}
	for k, v := range s.table.ParseRecord(raw) {
		out[k] = v
	}
	return out
}

// ViewResponse is one page of the table as returned by GET /api/rows.
type ViewResponse struct {
	Columns      []core.Column `json:"columns"`
	Rows         []core.Row    `json:"rows"`
	TotalMatched int           `json:"totalMatched"`
	Page         int           `json:"page"`
	PageSize     int           `json:"pageSize"`
	TotalPages   int           `json:"totalPages"`
	Search       string        `json:"search,omitempty"`
	Sort         string        `json:"sort,omitempty"`
	Dir          string        `json:"dir,omitempty"`
}

func newViewResponse(cols []core.Column, q core.Query, v core.View) ViewResponse {
	resp := ViewResponse{
		Columns:      cols,
		Rows:         v.Rows,
		TotalMatched: v.TotalMatched,
		Page:         v.Page,
		PageSize:     v.PageSize,
		TotalPages:   v.TotalPages,
		Search:       q.Search,
	}
	if q.SortColumn != "" {
		resp.Sort = q.SortColumn
		resp.Dir = string(q.SortOrder)
	}
	return resp
}
