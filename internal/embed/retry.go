package embed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// RetryConfig configures retry behavior for embedding calls.
type RetryConfig struct {
	MaxRetries   int           // Retry attempts, not counting the initial attempt
	InitialDelay time.Duration // Delay before first retry
	MaxDelay     time.Duration // Maximum delay between retries
	Multiplier   float64       // Exponential backoff multiplier
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryingEmbedder wraps an Embedder and retries transient failures with
// exponential backoff. Non-transient failures (bad request, auth) surface
// immediately.
type RetryingEmbedder struct {
	inner  Embedder
	config RetryConfig
}

// Verify interface implementation at compile time
var _ Embedder = (*RetryingEmbedder)(nil)

// NewRetryingEmbedder creates a retrying embedder wrapping the given embedder.
func NewRetryingEmbedder(inner Embedder, cfg RetryConfig) *RetryingEmbedder {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 8 * time.Second
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = 2.0
	}
	return &RetryingEmbedder{inner: inner, config: cfg}
}

// withRetry executes fn with exponential backoff, honoring context
// cancellation between attempts.
func (r *RetryingEmbedder) withRetry(ctx context.Context, fn func() error) error {
	delay := r.config.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) || attempt >= r.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * r.config.Multiplier)
		if delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}

	return fmt.Errorf("embedding failed after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}

// isTransient reports whether an error is worth retrying. Context
// cancellation and deadline expiry are the caller's signal to stop,
// never a reason to retry.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"status 429",
		"status 500",
		"status 502",
		"status 503",
		"status 504",
		"timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Embed generates an embedding, retrying transient failures.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := r.withRetry(ctx, func() error {
		var embedErr error
		result, embedErr = r.inner.Embed(ctx, text)
		return embedErr
	})
	return result, err
}

// EmbedBatch generates embeddings, retrying transient failures.
func (r *RetryingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := r.withRetry(ctx, func() error {
		var embedErr error
		result, embedErr = r.inner.EmbedBatch(ctx, texts)
		return embedErr
	})
	return result, err
}

// Dimensions returns the embedding dimension (passthrough to inner).
func (r *RetryingEmbedder) Dimensions() int {
	return r.inner.Dimensions()
}

// ModelName returns the model identifier (passthrough to inner).
func (r *RetryingEmbedder) ModelName() string {
	return r.inner.ModelName()
}

// Available checks if the embedder is ready (passthrough to inner).
func (r *RetryingEmbedder) Available(ctx context.Context) bool {
	return r.inner.Available(ctx)
}

// Close releases resources and closes the inner embedder.
func (r *RetryingEmbedder) Close() error {
	return r.inner.Close()
}
