// Package config provides configuration loading and structs for the hybrid search server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in the lexical, vector and embedding sections.
const (
	LexicalMeili = "meili"
	LexicalBleve = "bleve"
	VectorQdrant = "qdrant"
	VectorMemory = "memory"
	VectorNone   = "none"
	EmbedderHTTP = "ollama"
	EmbedderMock = "mock"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Lexical   LexicalConfig   `yaml:"lexical"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Storage   StorageConfig   `yaml:"storage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LexicalConfig selects and configures the full-text engine.
type LexicalConfig struct {
	Backend        string `yaml:"backend"`
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	Index          string `yaml:"index"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// VectorConfig selects and configures the vector similarity engine.
type VectorConfig struct {
	Backend    string `yaml:"backend"`
	URL        string `yaml:"url"`
	Collection string `yaml:"collection"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	Backend    string `yaml:"backend"`
	URL        string `yaml:"url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// SearchConfig holds ranking defaults and request bounds.
type SearchConfig struct {
	// DefaultAlpha is a pointer because 0 is a valid weight (vector-only ranking).
	DefaultAlpha   *float64      `yaml:"default_alpha"`
	DefaultLimit   int           `yaml:"default_limit"`
	MaxLimit       int           `yaml:"max_limit"`
	FetchLimit     int           `yaml:"fetch_limit"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`
}

// DefaultAlphaOrDefault returns the configured default alpha; 0.6 when unset.
func (s *SearchConfig) DefaultAlphaOrDefault() float64 {
	if s.DefaultAlpha != nil {
		return *s.DefaultAlpha
	}
	return defaultAlpha
}

// StorageConfig holds paths for local persistence.
type StorageConfig struct {
	// QueryLogPath is the SQLite database for per-request query records. Empty disables it.
	QueryLogPath string `yaml:"query_log_path"`
	// SeedPath is a JSON Lines file of documents loaded into the embedded bleve and
	// memory engines at startup and again whenever it changes.
	SeedPath string `yaml:"seed_path"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Lexical.BleveIndexPath = expandPath(cfg.Lexical.BleveIndexPath, configDir)
	cfg.Storage.QueryLogPath = expandPath(cfg.Storage.QueryLogPath, configDir)
	cfg.Storage.SeedPath = expandPath(cfg.Storage.SeedPath, configDir)

	return &cfg, nil
}

// LoadOrDefault loads path like Load, but a missing file yields the defaults so the
// server can be configured from the environment alone.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		cfg = &Config{}
		ApplyDefaults(cfg)
		return cfg, nil
	}
	return nil, err
}

// Validate checks value ranges and backend names.
func (c *Config) Validate() error {
	var errs []error
	alpha := c.Search.DefaultAlphaOrDefault()
	if alpha < 0 || alpha > 1 {
		errs = append(errs, fmt.Errorf("search.default_alpha must be in [0,1], got %v", alpha))
	}
	if c.Search.MaxLimit < 1 {
		errs = append(errs, fmt.Errorf("search.max_limit must be >= 1, got %d", c.Search.MaxLimit))
	}
	if c.Search.FetchLimit < 1 {
		errs = append(errs, fmt.Errorf("search.fetch_limit must be >= 1, got %d", c.Search.FetchLimit))
	}
	switch c.Lexical.Backend {
	case LexicalMeili, LexicalBleve:
	default:
		errs = append(errs, fmt.Errorf("unknown lexical backend %q (supported: meili, bleve)", c.Lexical.Backend))
	}
	switch c.Vector.Backend {
	case VectorQdrant, VectorMemory, VectorNone:
	default:
		errs = append(errs, fmt.Errorf("unknown vector backend %q (supported: qdrant, memory, none)", c.Vector.Backend))
	}
	if c.Vector.Backend == VectorMemory && c.Storage.SeedPath == "" {
		errs = append(errs, errors.New("vector.backend memory requires storage.seed_path (the memory index starts empty)"))
	}
	switch c.Embedding.Backend {
	case EmbedderHTTP, EmbedderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown embedding backend %q (supported: ollama, mock)", c.Embedding.Backend))
	}
	return errors.Join(errs...)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
