package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/logging"
)

func echoRemoteAddr(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(r.RemoteAddr))
}

func TestTrustedRealIP(t *testing.T) {
	handler := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.5", "not-an-ip"})(http.HandlerFunc(echoRemoteAddr))

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"trusted proxy x-real-ip", "10.1.2.3:4000", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		{"trusted bare ip", "192.168.1.5:80", map[string]string{"X-Real-IP": "203.0.113.8"}, "203.0.113.8"},
		{"trusted proxy forwarded-for", "10.1.2.3:4000", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.1.2.3"}, "198.51.100.1"},
		{"untrusted client spoofing", "203.0.113.50:1234", map[string]string{"X-Real-IP": "1.1.1.1"}, "203.0.113.50:1234"},
		{"trusted proxy bad header", "10.1.2.3:4000", map[string]string{"X-Real-IP": "garbage"}, "10.1.2.3:4000"},
		{"trusted proxy no header", "10.1.2.3:4000", nil, "10.1.2.3:4000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got := rec.Body.String(); got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		cfg      config.SecurityConfig
		key      string
		wantCode int
	}{
		{"auth disabled", config.SecurityConfig{}, "", http.StatusNoContent},
		{"missing key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, "", http.StatusUnauthorized},
		{"wrong key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, "k2", http.StatusForbidden},
		{"second key matches", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}, "k2", http.StatusNoContent},
		{"no keys configured", config.SecurityConfig{RequireAPIKey: true}, "k1", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/rows", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(&tt.cfg)(ok).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if rec.Code >= 400 && !strings.Contains(rec.Body.String(), `"code":"AUTH00`) {
				t.Errorf("body missing auth code: %s", rec.Body.String())
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "info", "text"))
	defer slog.SetDefault(prev)

	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("nope"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/rows/9", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	got := buf.String()
	for _, want := range []string{"level=WARN", "status=404", "bytes=4", "path=/api/rows/9"} {
		if !strings.Contains(got, want) {
			t.Errorf("log line %q missing %q", got, want)
		}
	}
}
