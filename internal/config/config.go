// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (PENSIEVE_* and DATABASE_URL)
//  2. Config file (~/.pensieve/config.yaml)
//  3. Default values
//
// Validation is fail-fast: Load returns an error before any component is
// constructed with a bad value.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidTopK indicates the default top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top k")

	// ErrInvalidModelName indicates the completion model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model name is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidAutoSyncHours indicates the staleness threshold is negative.
	ErrInvalidAutoSyncHours = errors.New("invalid auto sync hours")
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model. It
	// produces 768-dimension vectors, matching the vector(768) column in
	// db/migrations.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultChunkSize is the chunk budget in estimated tokens.
	DefaultChunkSize = 512

	// DefaultChunkOverlap is the overlap budget in estimated tokens.
	DefaultChunkOverlap = 50

	// DefaultTopK is the default number of search results.
	DefaultTopK = 5

	// DefaultProfileTitle is the note title holding user-identity context.
	DefaultProfileTitle = "Who am I?"

	// DefaultStyleTitle is the document title holding the generated style guide.
	DefaultStyleTitle = "My Writing Style"

	// DefaultAutoSyncHours is the staleness threshold for auto-sync.
	DefaultAutoSyncHours = 24
)

// Config stores application configuration.
type Config struct {
	// AI model configuration
	ModelName     string `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Storage configuration (PostgreSQL + pgvector)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"`
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Retrieval configuration
	ChunkSize    int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	TopK         int    `mapstructure:"top_k" json:"top_k"`
	ProfileTitle string `mapstructure:"profile_title" json:"profile_title"`
	StyleTitle   string `mapstructure:"style_title" json:"style_title"`

	// Sync configuration
	AutoSyncHours int      `mapstructure:"auto_sync_hours" json:"auto_sync_hours"`
	NotesEnabled  bool     `mapstructure:"notes_enabled" json:"notes_enabled"`
	MarkdownDirs  []string `mapstructure:"markdown_dirs" json:"markdown_dirs"`
	ProjectsDir   string   `mapstructure:"projects_dir" json:"projects_dir"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".pensieve")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("PENSIEVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", "googleai/gemini-2.5-flash")
	v.SetDefault("embedder_model", DefaultEmbedderModel)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "pensieve")
	v.SetDefault("postgres_password", "pensieve_dev_password")
	v.SetDefault("postgres_db_name", "pensieve")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("profile_title", DefaultProfileTitle)
	v.SetDefault("style_title", DefaultStyleTitle)

	v.SetDefault("auto_sync_hours", DefaultAutoSyncHours)
	v.SetDefault("notes_enabled", true)
	v.SetDefault("markdown_dirs", []string{})
	v.SetDefault("projects_dir", "")

	v.SetDefault("log_level", "info")
}

// Level converts the configured log level string to a slog.Level.
// Unknown values fall back to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
