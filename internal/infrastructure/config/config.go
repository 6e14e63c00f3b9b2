package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Export  ExportConfig
	Logging LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
}

// ExportConfig holds pipeline configuration.
type ExportConfig struct {
	DataDir          string        `envconfig:"EXPORT_DATA_DIR" default:"./data" yaml:"data_dir"`
	TotalRecords     int           `envconfig:"EXPORT_TOTAL_RECORDS" default:"1000000" yaml:"total_records"`
	BatchSize        int           `envconfig:"EXPORT_BATCH_SIZE" default:"100000" yaml:"batch_size"`
	PacingInterval   time.Duration `envconfig:"EXPORT_PACING_INTERVAL" default:"500ms" yaml:"pacing_interval"`
	StreamFile       string        `envconfig:"EXPORT_STREAM_FILE" default:"users.ndjson" yaml:"stream_file"`
	TableFile        string        `envconfig:"EXPORT_TABLE_FILE" default:"users.xlsx" yaml:"table_file"`
	ArchiveFile      string        `envconfig:"EXPORT_ARCHIVE_FILE" default:"users.zip" yaml:"archive_file"`
	CleanupOnFailure bool          `envconfig:"EXPORT_CLEANUP_ON_FAILURE" default:"false" yaml:"cleanup_on_failure"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// StreamPath returns the path of the line-stream artifact.
func (e ExportConfig) StreamPath() string { return filepath.Join(e.DataDir, e.StreamFile) }

// TablePath returns the path of the spreadsheet artifact.
func (e ExportConfig) TablePath() string { return filepath.Join(e.DataDir, e.TableFile) }

// ArchivePath returns the path of the archive artifact.
func (e ExportConfig) ArchivePath() string { return filepath.Join(e.DataDir, e.ArchiveFile) }

// Load loads configuration from environment variables. When
// EXPORT_CONFIG_FILE names a YAML file, its values are applied on top;
// the file is an explicit opt-in and wins over environment and defaults.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if path := os.Getenv("EXPORT_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Export: ExportConfig{
			DataDir:        "./data",
			TotalRecords:   1000000,
			BatchSize:      100000,
			PacingInterval: 500 * time.Millisecond,
			StreamFile:     "users.ndjson",
			TableFile:      "users.xlsx",
			ArchiveFile:    "users.zip",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
