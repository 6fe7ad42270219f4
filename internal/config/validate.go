package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks every section and reports all failures at once.
func (c *Config) Validate() error {
	var errs []string
	errs = append(errs, c.validateBackend()...)
	errs = append(errs, c.Database.validate()...)
	errs = append(errs, c.Server.validate()...)
	errs = append(errs, c.Import.validate(c.Server.RequestTimeout)...)

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}
	errs = append(errs, c.Logging.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) validateBackend() []string {
	var errs []string
	switch c.Backend.Kind {
	case BackendAPI:
		if c.API.BaseURL == "" {
			errs = append(errs, "WEDDING_API_URL is required when GUEST_BACKEND=api")
		} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("WEDDING_API_URL (%q) must be an absolute URL", c.API.BaseURL))
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL is required when GUEST_BACKEND=postgres")
		}
	case BackendDemo:
	default:
		errs = append(errs, fmt.Sprintf("GUEST_BACKEND (%q) must be one of: api, postgres, demo", c.Backend.Kind))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, "WEDDING_API_TIMEOUT must be non-negative")
	}
	return errs
}

func (d DatabaseConfig) validate() []string {
	var errs []string
	if d.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if d.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if d.MaxConns < d.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", d.MaxConns, d.MinConns))
	}
	return errs
}

func (s ServerConfig) validate() []string {
	var errs []string
	if s.Port <= 0 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", s.Port))
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.RequestTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT, SERVER_WRITE_TIMEOUT and SERVER_REQUEST_TIMEOUT must be non-negative")
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	// A handler cut off by the write deadline loses its response even
	// though the work behind it finished.
	if s.WriteTimeout > 0 && (s.RequestTimeout == 0 || s.WriteTimeout <= s.RequestTimeout) {
		errs = append(errs, fmt.Sprintf("SERVER_WRITE_TIMEOUT (%s) must exceed SERVER_REQUEST_TIMEOUT (%s)", s.WriteTimeout, s.RequestTimeout))
	}
	return errs
}

func (i ImportConfig) validate(requestTimeout time.Duration) []string {
	var errs []string
	if i.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if i.SessionTTL <= 0 {
		errs = append(errs, "IMPORT_SESSION_TTL must be positive")
	}
	if i.SweepInterval <= 0 {
		errs = append(errs, "IMPORT_SWEEP_INTERVAL must be positive")
	}
	if i.MaxConcurrentSubmits <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT_SUBMITS must be positive")
	}
	if i.MaxWaitTime <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT_TIME must be positive")
	}
	if i.SubmitTimeout < 0 {
		errs = append(errs, "IMPORT_SUBMIT_TIMEOUT must be non-negative")
	}
	if requestTimeout > 0 && i.SubmitTimeout > requestTimeout {
		errs = append(errs, fmt.Sprintf("IMPORT_SUBMIT_TIMEOUT (%s) must not exceed SERVER_REQUEST_TIMEOUT (%s)", i.SubmitTimeout, requestTimeout))
	}
	return errs
}

func (l LoggingConfig) validate() []string {
	var errs []string
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", l.Level))
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", l.Format))
	}
	return errs
}
