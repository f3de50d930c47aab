// Package config loads the application configuration from environment
// variables, applies defaults and validates the result on startup.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Loader   LoaderConfig
	Admin    AdminConfig
	CORS     CORSConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver selects the backend: postgres or sqlite (default: sqlite)
	Driver string `env:"DATABASE_DRIVER" default:"sqlite"`

	// URL is the PostgreSQL connection string, or the SQLite file path
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"reptiles.db"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// LoaderConfig holds dump load settings.
type LoaderConfig struct {
	// ReptileFile is the reptile dump loaded by "load"
	ReptileFile string `env:"LOADER_REPTILE_FILE" default:"reptile_database_2023_09.txt"`

	// BiblioFile is the bibliography dump loaded by "load-biblio"
	BiblioFile string `env:"LOADER_BIBLIO_FILE" default:"reptile_database_bibliography_2023_09.txt"`

	// ProgressEvery is the number of rows between progress reports (default: 1000)
	ProgressEvery int `env:"LOADER_PROGRESS_EVERY" default:"1000"`

	// RowLimit stops a load after this many rows; 0 loads everything
	RowLimit int `env:"LOADER_ROW_LIMIT" default:"0"`

	// BiblioCacheSize is the number of bibliography lookups cached per load (default: 4096)
	BiblioCacheSize int `env:"LOADER_BIBLIO_CACHE_SIZE" default:"4096"`
}

// AdminConfig holds the seeded administrative account.
type AdminConfig struct {
	// Username is the admin account seeded by a load (default: admin)
	Username string `env:"ADMIN_USERNAME" default:"admin"`

	// Password seeds the admin account; empty generates one on first load
	Password string `env:"ADMIN_PASSWORD"`
}

// CORSConfig holds cross-origin settings for the HTTP API.
type CORSConfig struct {
	// AllowedOrigins is a comma-separated list of origins (default: *)
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds where the CLI exports loader metrics when a load ends.
// Both targets are optional; serve exposes the same collectors on /metrics.
type MetricsConfig struct {
	// TextfilePath is a node-exporter textfile collector file, e.g.
	// /var/lib/node_exporter/reptiledb.prom
	TextfilePath string `env:"METRICS_TEXTFILE"`

	// PushURL is a Prometheus Pushgateway base URL
	PushURL string `env:"METRICS_PUSHGATEWAY_URL"`

	// PushJob is the Pushgateway job label (default: reptiledb_load)
	PushJob string `env:"METRICS_PUSH_JOB" default:"reptiledb_load"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
