package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/pfrederiksen/afl-stats/internal/aggregate"
	"github.com/pfrederiksen/afl-stats/internal/logger"
	"github.com/pfrederiksen/afl-stats/internal/source"
	"github.com/pfrederiksen/afl-stats/internal/storage"
)

//go:embed sample_config.toml
var sampleConfig string

// Environment overrides.
const (
	EnvDatabaseURL = "AFL_STATS_DATABASE_URL"
	EnvDataDir     = "AFL_STATS_DATA_DIR"
)

// Source configures document retrieval.
type Source struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxConcurrent  int    `toml:"max_concurrent"`
	MaxRetries     int    `toml:"max_retries"`
	CacheDir       string `toml:"cache_dir"`
}

// Storage selects the record store backend.
type Storage struct {
	Backend     string `toml:"backend"`
	DataDir     string `toml:"data_dir"`
	SQLitePath  string `toml:"sqlite_path"`
	DatabaseURL string `toml:"database_url"`
}

// Logging configures the structured logger.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Merge configures the merge policy.
type Merge struct {
	RecencyGuard bool `toml:"recency_guard"`
}

// Config is the complete configuration.
type Config struct {
	Source  Source             `toml:"source"`
	Storage Storage            `toml:"storage"`
	Logging Logging            `toml:"logging"`
	Merge   Merge              `toml:"merge"`
	Weights map[string]float64 `toml:"weights"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Source: Source{
			BaseURL:        source.DefaultBaseURL,
			UserAgent:      source.UserAgent,
			TimeoutSeconds: int(source.Timeout / time.Second),
			MaxConcurrent:  4,
			MaxRetries:     source.MaxRetries,
		},
		Storage: Storage{
			Backend: storage.BackendCSV,
			DataDir: storage.DefaultDataDir,
		},
		Logging: Logging{
			Level:  "info",
			Format: string(logger.FormatAuto),
		},
	}
}

// DefaultConfigPath returns ~/.config/afl-stats/config.toml, expanded.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/afl-stats/config.toml")
}

// Load reads the config at path (or the default location when empty). A
// missing file is not an error; defaults apply. It returns the resolved path
// and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	loadDotEnv(resolvedPath)
	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

// loadDotEnv reads .env from the working directory and next to the config
// file. Variables already set in the environment win.
func loadDotEnv(configPath string) {
	for _, p := range []string{".env", filepath.Join(filepath.Dir(configPath), ".env")} {
		if err := godotenv.Load(p); err == nil {
			logger.Debug("Loaded .env", logger.Fields{"path": p})
		}
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); v != "" {
		c.Storage.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		c.Storage.DataDir = v
	}
}

func (c *Config) normalize() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Source.BaseURL != "" && !strings.HasSuffix(c.Source.BaseURL, "/") {
		c.Source.BaseURL += "/"
	}

	var err error
	if c.Storage.DataDir, err = ExpandPath(c.Storage.DataDir); err != nil {
		return err
	}
	if c.Storage.SQLitePath, err = ExpandPath(c.Storage.SQLitePath); err != nil {
		return err
	}
	if c.Source.CacheDir, err = ExpandPath(c.Source.CacheDir); err != nil {
		return err
	}
	return nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be positive")
	}
	if c.Source.MaxConcurrent <= 0 {
		return fmt.Errorf("source.max_concurrent must be positive")
	}
	if c.Source.MaxRetries < 0 {
		return fmt.Errorf("source.max_retries must not be negative")
	}
	switch c.Storage.Backend {
	case storage.BackendCSV, storage.BackendSQLite:
	case storage.BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url (or %s) is required for the postgres backend", EnvDatabaseURL)
		}
	default:
		return fmt.Errorf("storage.backend must be csv, sqlite or postgres, got %q", c.Storage.Backend)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch logger.Format(c.Logging.Format) {
	case logger.FormatAuto, logger.FormatJSON, logger.FormatText:
	default:
		return fmt.Errorf("logging.format must be auto, json or text, got %q", c.Logging.Format)
	}
	if err := aggregate.Weights(c.Weights).Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	return nil
}

// StorageOptions returns the options for storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:     c.Storage.Backend,
		DataDir:     c.Storage.DataDir,
		SQLitePath:  c.Storage.SQLitePath,
		DatabaseURL: c.Storage.DatabaseURL,
	}
}

// ValueWeights returns the default weights with the configured ones applied.
func (c *Config) ValueWeights() aggregate.Weights {
	return aggregate.DefaultWeights().Merge(c.Weights)
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// ExpandPath expands a leading "~" and makes the path absolute. Empty paths
// stay empty.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes the annotated sample config to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
