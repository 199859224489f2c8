package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// LoadConfig loads configuration from the embedded YAML document and
// environment variables. It is expected to be called once at startup.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	}

	cfg := NewConfig()

	if len(embeddedConfig) > 0 {
		if err := yaml.Unmarshal(embeddedConfig, cfg); err != nil {
			return nil, exception.New(moduleName, "failed to unmarshal embedded config", err, false, false)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// NewConfigProvider is an fx provider that loads and provides *Config.
// It also sets the global logger level from the loaded configuration.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Logging.Level)
	logger.Debugf("Log level set to: %s", cfg.Logging.Level)
	return cfg, nil
}

// applyEnvOverrides overrides loaded configuration values with their
// environment-variable counterparts when present.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Database.Host, "MYSQL_HOST")
	setString(&cfg.Database.Type, "DB_TYPE")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")

	setString(&cfg.API.Environment, "CLIENT_ENV")
	setString(&cfg.API.Endpoint, "API_ENDPOINT")
	setString(&cfg.API.Username, "CLIENT_ID")
	setString(&cfg.API.Password, "CLIENT_PASSWORD")

	setString(&cfg.Source.Path, "SRC_PATH")
	setString(&cfg.Storage.BaseDir, "STORAGE_PATH")
	setString(&cfg.Ingest.TableName, "TABLE_NAME")
	setString(&cfg.Ingest.Title, "TITLE")
	setInt(&cfg.Ingest.BatchSize, "BATCH_SIZE")
	setString(&cfg.Logging.Level, "LOG_LEVEL")

	// The destination prefix defaults to the table name when not set.
	if cfg.Storage.DestPath == "" {
		cfg.Storage.DestPath = cfg.Ingest.TableName
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			logger.Warnf("Environment variable %s is not an integer: %q", key, v)
			return
		}
		*dst = n
	}
}

// Module provides the configuration to an fx application.
var Module = fx.Module("config",
	fx.Provide(NewConfigProvider),
)
