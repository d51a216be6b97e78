// Package web provides the HTTP server and handlers for the data table.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/store"
	appmw "github.com/JonMunkholm/datatable/internal/web/middleware"
)

// Server is the HTTP server for one table.
type Server struct {
	cfg       *config.Config
	table     *core.Table
	imports   *core.ImportLimiter
	persister *store.Persister
	router    *chi.Mux
	server    *http.Server
	limiters  []*rateLimiter
}

// NewServer creates a Server. persister may be nil when snapshots are not
// saved (tests, in-memory runs).
func NewServer(cfg *config.Config, table *core.Table, imports *core.ImportLimiter, persister *store.Persister) *Server {
	if imports == nil {
		imports = core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	}
	s := &Server{
		cfg:       cfg,
		table:     table,
		imports:   imports,
		persister: persister,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(appmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(appmw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Reads
		r.Get("/rows", s.handleListRows)
		r.Get("/rows/{id}", s.handleGetRow)
		r.Get("/columns", s.handleListColumns)
		r.Get("/snapshot", s.handleSnapshot)

		// Export
		r.Get("/export", s.handleExportCSV)
		r.Get("/export/xlsx", s.handleExportXLSX)

		// Mutations require an API key when one is configured
		r.Group(func(r chi.Router) {
			r.Use(appmw.APIKeyAuth(&s.cfg.Security))

			r.Post("/rows", s.handleAddRow)
			r.Put("/rows/{id}", s.handleUpdateRow)
			r.Delete("/rows/{id}", s.handleDeleteRow)

			r.Post("/columns", s.handleAddColumn)
			r.Post("/columns/{id}/toggle", s.handleToggleColumn)

			r.Post("/reset", s.handleReset)

			if s.cfg.Rate.Enabled {
				r.With(s.newRateLimiter(s.cfg.Rate.ImportLimit, time.Minute).middleware).
					Post("/import", s.handleImport)
			} else {
				r.Post("/import", s.handleImport)
			}
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.Close()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Close stops the rate limiter cleanup goroutines.
func (s *Server) Close() {
	for _, rl := range s.limiters {
		rl.stop()
	}
	s.limiters = nil
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ImportLimiter returns the limiter guarding CSV imports.
func (s *Server) ImportLimiter() *core.ImportLimiter {
	return s.imports
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			if enableCSP {
				// The table page ships its own inline styles and no scripts
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a simple fixed-window rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter owned by the server, so Close can
// stop its cleanup goroutine.
func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := newRateLimiter(rate, window)
	s.limiters = append(s.limiters, rl)
	return rl
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every window.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: time.Now(),
		}
		return true
	}

	// Reset tokens if window has passed
	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
// RemoteAddr has already been rewritten by TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		if !rl.allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			respondError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
