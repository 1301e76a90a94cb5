package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ProviderType identifies an embedding provider
type ProviderType string

const (
	// ProviderOllama uses a local Ollama instance (default)
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI uses an OpenAI-compatible embeddings endpoint
	ProviderOpenAI ProviderType = "openai"

	// ProviderStatic uses hash-based embeddings (no external service)
	ProviderStatic ProviderType = "static"
)

// FactoryConfig carries provider selection plus the settings each provider
// needs. Unused fields are ignored by the providers that do not need them.
type FactoryConfig struct {
	Provider   ProviderType
	Model      string
	Dimensions int

	// Ollama
	OllamaHost string

	// OpenAI-compatible
	APIKey  string
	BaseURL string

	// Decorators
	CacheSize    int
	DisableCache bool
	Retry        RetryConfig
}

// NewEmbedder builds the embedder stack for a provider: the provider itself,
// wrapped in retry, wrapped in an LRU cache. Static needs neither network
// retries nor caching and is returned bare.
func NewEmbedder(ctx context.Context, cfg FactoryConfig) (Embedder, error) {
	var inner Embedder
	var err error

	switch ProviderType(strings.ToLower(string(cfg.Provider))) {
	case ProviderStatic:
		return NewStaticEmbedder(), nil

	case ProviderOpenAI:
		inner, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})

	case ProviderOllama, "":
		inner, err = NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.OllamaHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})

	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxRetries == 0 {
		retryCfg = DefaultRetryConfig()
	}
	var embedder Embedder = NewRetryingEmbedder(inner, retryCfg)

	if !cfg.DisableCache {
		embedder = NewCachedEmbedder(embedder, cfg.CacheSize)
	}

	slog.Debug("embedder_created",
		"provider", cfg.Provider,
		"model", embedder.ModelName(),
		"dimensions", embedder.Dimensions())

	return embedder, nil
}
