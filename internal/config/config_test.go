package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, 0.5, cfg.Search.Alpha)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
	assert.Equal(t, 5*time.Second, cfg.Search.VectorTimeout)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "all-minilm", cfg.Embeddings.Model)
	assert.Equal(t, "llama3.1", cfg.LLM.Model)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
paths:
  catalog_file: /data/catalog.json
  data_dir: /data/geocat
search:
  alpha: 0.7
  default_limit: 25
embeddings:
  provider: static
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/catalog.json", cfg.Paths.CatalogFile)
	assert.Equal(t, "/data/geocat", cfg.Paths.DataDir)
	assert.Equal(t, 0.7, cfg.Search.Alpha)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, "all-minilm", cfg.Embeddings.Model)
}

func TestLoad_ExplicitMissingFileIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	// Point the default location at an empty directory.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Search.Alpha)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  alpha: 0.3\n"), 0o644))

	t.Setenv("GEOCAT_ALPHA", "0.9")
	t.Setenv("GEOCAT_DATA_DIR", "/override/data")
	t.Setenv("GEOCAT_EMBEDDINGS_PROVIDER", "static")
	t.Setenv("GEOCAT_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Search.Alpha)
	assert.Equal(t, "/override/data", cfg.Paths.DataDir)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, "sk-test", cfg.Embeddings.APIKey)
	// The shared key flows to the LLM when it has none of its own.
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"alpha too large", func(c *Config) { c.Search.Alpha = 1.5 }},
		{"alpha negative", func(c *Config) { c.Search.Alpha = -0.1 }},
		{"rrf constant zero", func(c *Config) { c.Search.RRFConstant = 0 }},
		{"default limit zero", func(c *Config) { c.Search.DefaultLimit = 0 }},
		{"max below default", func(c *Config) { c.Search.MaxLimit = 5 }},
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "watson" }},
		{"batch size zero", func(c *Config) { c.Embeddings.BatchSize = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := New()
	cfg.Paths.DataDir = "/var/lib/geocat"
	assert.Equal(t, filepath.Join("/var/lib/geocat", "catalog.db"), cfg.DatabasePath())
}
