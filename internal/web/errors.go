package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - logged with full technical details and the request id (server-side)
//   - returned to the client as a user-friendly message with an action hint
//   - rendered as JSON for API clients or as an HTML fragment for the page
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode)
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered in appropriate format for the client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/web/templates"
)

var (
	errRateLimited  = errors.New("rate limit exceeded")
	errBodyTooLarge = errors.New("request body too large")
)

// invalidRequest wraps a decoding failure so it maps to REQ003.
func invalidRequest(err error) error {
	return fmt.Errorf("invalid request: %w", err)
}

// statusFor picks the HTTP status for a client-visible failure. Anything
// not listed is treated as a bad request.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBodyTooLarge), errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyImports), errors.Is(err, core.ErrStorage):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusBadRequest
	}
}

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error and writes the mapped user message
// in the format the client expects.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if isHTMX(r) {
		renderErrorPartial(w, r, userMsg, statusCode)
	} else if wantsJSON(r) {
		respondErrorJSON(w, userMsg, statusCode)
	} else {
		respondErrorHTML(w, userMsg, statusCode)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{ //nolint:errcheck // headers already sent
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorHTML writes a plain text error response.
func respondErrorHTML(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	http.Error(w, msg.Message+" ("+msg.Code+")", statusCode)
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w) //nolint:errcheck // headers already sent
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
