// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Table    TableConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// Storage drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StorageConfig selects where table snapshots are persisted.
type StorageConfig struct {
	// Driver is one of file, sqlite, postgres (default: file)
	Driver string `env:"STORAGE_DRIVER" default:"file"`

	// Path is the snapshot file (file driver) or database file (sqlite driver).
	// For the file driver a .gz, .zst or .xz suffix enables compression.
	Path string `env:"STORAGE_PATH" default:"data/table.json"`

	// URL is the PostgreSQL connection string (postgres driver only)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Name keys the snapshot inside a database, so one database can hold
	// several tables (default: default)
	Name string `env:"STORAGE_TABLE_NAME" default:"default"`

	// SaveTimeout bounds a single snapshot write (default: 10s)
	SaveTimeout time.Duration `env:"STORAGE_SAVE_TIMEOUT" default:"10s"`

	// MaxConns is the maximum number of pooled connections (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel import parses (default: 4)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an import slot (default: 10s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"10s"`

	// Timeout is the maximum duration of one import (default: 2m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"2m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for the import endpoint (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects mutating endpoints with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// TableConfig holds view defaults.
type TableConfig struct {
	// DefaultPageSize is the page size of a new session: 5, 10, 25 or 50 (default: 10)
	DefaultPageSize int `env:"TABLE_DEFAULT_PAGE_SIZE" default:"10"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
