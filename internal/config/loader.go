package config

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves an environment variable. It has the shape of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with a custom variable source.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value, lookup LookupFunc) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, lookup); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value := getenv(lookup, envName)
		if value == "" {
			if alt := field.Tag.Get("envAlt"); alt != "" {
				value = getenv(lookup, alt)
			}
		}

		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

func getenv(lookup LookupFunc, key string) string {
	v, _ := lookup(key)
	return strings.TrimSpace(v)
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// validPageSizes mirrors the page sizes the table view offers.
var validPageSizes = []int{5, 10, 25, 50}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Storage validation
	switch strings.ToLower(c.Storage.Driver) {
	case DriverFile, DriverSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Sprintf("STORAGE_PATH is required for the %s driver", c.Storage.Driver))
		}
	case DriverPostgres:
		if c.Storage.URL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_DRIVER (%q) must be one of: file, sqlite, postgres", c.Storage.Driver))
	}
	if c.Storage.Name == "" {
		errs = append(errs, "STORAGE_TABLE_NAME must not be empty")
	}
	if c.Storage.SaveTimeout <= 0 {
		errs = append(errs, "STORAGE_SAVE_TIMEOUT must be positive")
	}
	if c.Storage.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Import validation
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Import.Timeout <= 0 {
		errs = append(errs, "IMPORT_TIMEOUT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.ImportLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	// Table validation
	if !slices.Contains(validPageSizes, c.Table.DefaultPageSize) {
		errs = append(errs, fmt.Sprintf("TABLE_DEFAULT_PAGE_SIZE (%d) must be one of: 5, 10, 25, 50", c.Table.DefaultPageSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Database URLs and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	url := ""
	if c.Storage.URL != "" {
		url = "[MASKED]"
	}
	fmt.Fprintf(&b, "Storage: {Driver: %q, Path: %q, URL: %q, Name: %q}, ",
		c.Storage.Driver, c.Storage.Path, url, c.Storage.Name)
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Import.MaxFileSize, c.Import.MaxConcurrent)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
