package config

import "time"

// Config is the root configuration structure for keyport.
// It contains the credential store, export, schedule and telemetry sections.
type Config struct {
	// Storage selects and configures the credential store exports read from.
	Storage StorageConfig `yaml:"storage"`

	// Export contains defaults for export runs.
	Export ExportConfig `yaml:"export"`

	// Schedule contains configuration for recurring exports run by `keyport serve`.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig contains configuration for the credential store.
type StorageConfig struct {
	// Backend specifies the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/credentials.db"
	Path string `yaml:"path"`

	// Driver is the database/sql driver.
	// Options: "sqlite3" (cgo, mattn/go-sqlite3), "sqlite" (pure Go, modernc.org/sqlite)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// JournalMode is the SQLite journal mode.
	// Options: "wal", "delete"
	// Default: "wal"
	JournalMode string `yaml:"journal_mode"`

	// BusyTimeout is how long to wait for a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ExportConfig contains defaults for export runs.
type ExportConfig struct {
	// Mode is the default export mode.
	// Options: "core", "login"
	// Default: "login"
	Mode string `yaml:"mode"`

	// Workspace limits exports to one workspace. Empty exports every workspace.
	Workspace string `yaml:"workspace"`

	// StagingRoot is the directory staging directories and archives are
	// created in.
	// Default: the system temp directory
	StagingRoot string `yaml:"staging_root"`

	// RemoveStaging deletes the staging directory after a successful archive.
	// The staging directory holds plaintext key material.
	// Default: false
	RemoveStaging bool `yaml:"remove_staging"`

	// OutputDir, when set, is where finished archives are moved.
	OutputDir string `yaml:"output_dir"`
}

// ScheduleConfig contains configuration for recurring exports.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression. Empty disables scheduling.
	// Example: "0 3 * * *" (daily at 3 AM)
	Cron string `yaml:"cron"`

	// KeepLast is how many archives to keep in the output directory.
	// 0 keeps every archive.
	// Default: 7
	KeepLast int `yaml:"keep_last"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactPatterns contains extra redaction patterns applied to log values.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern is a custom log redaction rule.
type RedactPattern struct {
	// Name identifies the pattern.
	Name string `yaml:"name"`

	// Pattern is a Go regular expression.
	Pattern string `yaml:"pattern"`

	// Replacement replaces each match.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is where `keyport serve` exposes metrics.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "keyport"
	Namespace string `yaml:"namespace"`

	// DurationBuckets defines histogram buckets for export duration (seconds).
	// Default: [0.01, 0.05, 0.1, 0.5, 1, 5, 30]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service name in traces.
	// Default: "keyport"
	ServiceName string `yaml:"service_name"`
}
