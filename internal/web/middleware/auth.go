package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/datatable/internal/config"
)

// APIKeyAuth guards table mutations with the X-API-Key header.
// With RequireAPIKey off every request passes; with it on and no keys
// configured every request is rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			switch {
			case apiKey == "":
				rejectAuth(w, r, http.StatusUnauthorized, "missing API key", "AUTH001")
			case !isValidAPIKey(apiKey, cfg.APIKeys):
				rejectAuth(w, r, http.StatusForbidden, "invalid API key", "AUTH002")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func rejectAuth(w http.ResponseWriter, r *http.Request, status int, msg, code string) {
	slog.Warn("auth: "+msg,
		"path", r.URL.Path,
		"method", r.Method,
		"remote_addr", r.RemoteAddr,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `","message":"` + msg + `","action":"Send a valid X-API-Key header.","code":"` + code + `"}`)) //nolint:errcheck
}

// isValidAPIKey compares key against every configured key in constant time,
// so timing does not reveal which key (if any) matched.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}
