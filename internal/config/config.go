// Package config loads geocat configuration: hardcoded defaults, then the
// YAML config file, then GEOCAT_* environment variables, in increasing
// precedence. The resulting Config is passed explicitly into constructors;
// there is no package-level configuration state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete geocat configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	LLM        LLMConfig        `yaml:"llm"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PathsConfig locates the catalog file and the data directory.
type PathsConfig struct {
	// CatalogFile is the JSON catalog to index.
	CatalogFile string `yaml:"catalog_file"`

	// DataDir holds the document database and vector index.
	DataDir string `yaml:"data_dir"`
}

// SearchConfig tunes hybrid search.
type SearchConfig struct {
	// Alpha is the blend weight in [0,1] favoring the vector signal.
	Alpha float64 `yaml:"alpha"`

	// RRFConstant is the RRF smoothing parameter (k). Default 60.
	RRFConstant int `yaml:"rrf_constant"`

	// DefaultLimit is the result count when the caller gives none.
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit caps the requested result count.
	MaxLimit int `yaml:"max_limit"`

	// VectorTimeout bounds the vector side of a query before the engine
	// degrades to lexical-only.
	VectorTimeout time.Duration `yaml:"vector_timeout"`

	// WatchDebounce coalesces catalog file events before a rebuild.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// EmbeddingsConfig selects and tunes the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "ollama", "openai", or "static".
	Provider string `yaml:"provider"`

	// Model is the embedding model name.
	Model string `yaml:"model"`

	// Dimensions overrides auto-detection when non-zero.
	Dimensions int `yaml:"dimensions"`

	// OllamaHost is the Ollama endpoint (provider "ollama").
	OllamaHost string `yaml:"ollama_host"`

	// BaseURL is the OpenAI-compatible endpoint (provider "openai").
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the OpenAI-compatible endpoint.
	// Usually set via GEOCAT_API_KEY rather than the file.
	APIKey string `yaml:"api_key"`

	// BatchSize is the embedding batch size during indexing.
	BatchSize int `yaml:"batch_size"`

	// CacheSize is the query embedding LRU size.
	CacheSize int `yaml:"cache_size"`
}

// LLMConfig tunes answer synthesis for 'geocat ask'.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LoggingConfig tunes the slog setup.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`

	// File is the log file path; empty logs to stderr only.
	File string `yaml:"file"`
}

// New returns the hardcoded defaults.
func New() *Config {
	return &Config{
		Paths: PathsConfig{
			CatalogFile: "catalog.json",
			DataDir:     defaultDataDir(),
		},
		Search: SearchConfig{
			Alpha:         0.5,
			RRFConstant:   60,
			DefaultLimit:  10,
			MaxLimit:      100,
			VectorTimeout: 5 * time.Second,
			WatchDebounce: 2 * time.Second,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "ollama",
			Model:     "all-minilm",
			BatchSize: 32,
			CacheSize: 1000,
		},
		LLM: LLMConfig{
			Model:       "llama3.1",
			Temperature: 0.7,
			MaxTokens:   1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".geocat")
	}
	return filepath.Join(home, ".geocat")
}

// DefaultConfigPath returns where Load looks for the config file when the
// caller passes none: $XDG_CONFIG_HOME/geocat/config.yaml or
// ~/.config/geocat/config.yaml.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "geocat", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "geocat", "config.yaml")
	}
	return filepath.Join(home, ".config", "geocat", "config.yaml")
}

// Load builds the configuration: defaults, then the YAML file at path (or
// the default location when path is empty; a missing file is fine), then
// environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := New()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file; defaults apply.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies GEOCAT_* environment variables, the highest
// precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEOCAT_CATALOG_FILE"); v != "" {
		c.Paths.CatalogFile = v
	}
	if v := os.Getenv("GEOCAT_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("GEOCAT_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.Alpha = f
		}
	}
	if v := os.Getenv("GEOCAT_RRF_CONSTANT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.RRFConstant = n
		}
	}
	if v := os.Getenv("GEOCAT_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("GEOCAT_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("GEOCAT_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("GEOCAT_EMBEDDINGS_BASE_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v := os.Getenv("GEOCAT_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = v
		}
	}
	if v := os.Getenv("GEOCAT_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("GEOCAT_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("GEOCAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("GEOCAT_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		return fmt.Errorf("search.alpha must be in [0,1], got %v", c.Search.Alpha)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit (%d) must be >= search.default_limit (%d)",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	switch c.Embeddings.Provider {
	case "ollama", "openai", "static":
	default:
		return fmt.Errorf("embeddings.provider must be ollama, openai, or static, got %q",
			c.Embeddings.Provider)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q",
			c.Logging.Level)
	}
	return nil
}

// DatabasePath returns the SQLite document database path.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}
