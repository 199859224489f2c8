// Package config provides structures and utilities for managing the
// ingestor's configuration. Configuration is assembled from three layers:
// built-in defaults, an embedded YAML document, and environment-variable
// overrides (optionally sourced from a .env file).
package config

// EmbeddedConfig holds the content of the configuration file, typically
// embedded into the binary and passed from main.go.
type EmbeddedConfig []byte

// RetryConfig holds the bounded-retry settings applied to outbound API calls.
type RetryConfig struct {
	MaxAttempts     int     `yaml:"max_attempts"`     // MaxAttempts is the maximum number of attempts, including the first.
	InitialInterval int     `yaml:"initial_interval"` // InitialInterval is the initial backoff interval in milliseconds.
	MaxInterval     int     `yaml:"max_interval"`     // MaxInterval caps the backoff interval in milliseconds.
	Factor          float64 `yaml:"factor"`           // Factor is the multiplier applied to the interval after each attempt.
}

// DatabaseConfig holds the relational store connection settings.
type DatabaseConfig struct {
	Type     string `yaml:"type"`     // Type selects the dialect: "mysql", "postgres" or "sqlite".
	Host     string `yaml:"host"`     // Host is the database host.
	Port     int    `yaml:"port"`     // Port is the database port.
	User     string `yaml:"user"`     // User is the database user.
	Password string `yaml:"password"` // Password is the database password.
	Name     string `yaml:"name"`     // Name is the database (or sqlite file) name.
	SSLMode  string `yaml:"sslmode"`  // SSLMode is passed through to the postgres DSN.
}

// APIConfig holds the remote metadata service settings.
type APIConfig struct {
	Endpoint       string      `yaml:"endpoint"`        // Endpoint is the base URL of the metadata API.
	Username       string      `yaml:"username"`        // Username used for token authentication.
	Password       string      `yaml:"password"`        // Password used for token authentication.
	TimeoutSeconds int         `yaml:"timeout_seconds"` // TimeoutSeconds is the per-request timeout.
	Environment    string      `yaml:"environment"`     // Environment selects the deployment target; "local" skips all remote calls.
	Retry          RetryConfig `yaml:"retry"`           // Retry is the bounded-retry configuration for API calls.
}

// SourceConfig describes the record source consumed by a run.
type SourceConfig struct {
	Format  string            `yaml:"format"`  // Format selects the reader: "csv", "json" or "parquet".
	Path    string            `yaml:"path"`    // Path is the source file path.
	Options map[string]string `yaml:"options"` // Options are reader-specific properties bound via the configbinder.
}

// StorageConfig describes where file-backed media is copied during ingestion.
type StorageConfig struct {
	Type     string `yaml:"type"`      // Type selects the backend: "local" or "gcs".
	BaseDir  string `yaml:"base_dir"`  // BaseDir is the root directory for the local backend.
	Bucket   string `yaml:"bucket"`    // Bucket is the GCS bucket name for the gcs backend.
	DestPath string `yaml:"dest_path"` // DestPath is the destination prefix (normally the table name).
}

// IngestConfig holds the per-run ingestion settings.
type IngestConfig struct {
	TableName        string            `yaml:"table_name"`        // TableName is the destination table.
	Schema           map[string]string `yaml:"schema"`            // Schema maps source column names to their declared SQL types.
	BatchSize        int               `yaml:"batch_size"`        // BatchSize is the number of cleaned records per persistence batch.
	Intent           string            `yaml:"intent"`            // Intent is "train" or "test".
	Category         string            `yaml:"category"`          // Category is the task category driving validator selection.
	UniqueIDColumn   string            `yaml:"unique_id_column"`  // UniqueIDColumn is the source column carrying the external identity; empty means generate UUIDs.
	LabelColumn      string            `yaml:"label_column"`      // LabelColumn is the source column carrying the label.
	AnnotationColumn string            `yaml:"annotation_column"` // AnnotationColumn is the source column carrying the annotation.
	Title            string            `yaml:"title"`             // Title is the dataset title registered with the API; empty derives one.
	ValidatorOptions map[string]string `yaml:"validator_options"` // ValidatorOptions are category-specific validator properties.
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // Level is the logging level (e.g. "INFO", "DEBUG").
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Source   SourceConfig   `yaml:"source"`
	Storage  StorageConfig  `yaml:"storage"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// NewConfig returns a new Config populated with default values.
func NewConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type: "mysql",
			Host: "localhost",
			Port: 3306,
			Name: "training_test_datasets",
		},
		API: APIConfig{
			Endpoint:       "https://api.tracebloc.io",
			TimeoutSeconds: 1500,
			Environment:    "prod",
			Retry: RetryConfig{
				MaxAttempts:     5,
				InitialInterval: 1000,
				MaxInterval:     30000,
				Factor:          2.0,
			},
		},
		Source: SourceConfig{
			Format:  "csv",
			Options: map[string]string{},
		},
		Storage: StorageConfig{
			Type:    "local",
			BaseDir: "/data/shared",
		},
		Ingest: IngestConfig{
			BatchSize:        50,
			Intent:           "train",
			ValidatorOptions: map[string]string{},
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}
