// Package cmd provides the CLI commands for geocat.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rangerlabs/geocat/internal/config"
	"github.com/rangerlabs/geocat/internal/embed"
	"github.com/rangerlabs/geocat/internal/index"
	"github.com/rangerlabs/geocat/internal/logging"
	"github.com/rangerlabs/geocat/internal/search"
	"github.com/rangerlabs/geocat/internal/store"
	"github.com/rangerlabs/geocat/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the geocat CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geocat",
		Short: "Hybrid search over a geospatial metadata catalog",
		Long: `geocat indexes a geospatial metadata catalog and answers queries with
hybrid retrieval: BM25 keyword matching and vector similarity, fused
with Reciprocal Rank Fusion.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("geocat version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/geocat/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command with signal-aware context cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func setupLogging(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:    cfg.Logging.Level,
		FilePath: cfg.Logging.File,
	}
	if logCfg.FilePath == "" {
		logCfg.FilePath = logging.DefaultLogPath()
	}
	if debugMode {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}

	_, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// openStores opens the document store for the configured data directory.
func openStores(cfg *config.Config) (*store.DocumentStore, error) {
	docs, err := store.NewDocumentStore(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	return docs, nil
}

// newEmbedder builds the configured embedder stack.
func newEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	return embed.NewEmbedder(ctx, embed.FactoryConfig{
		Provider:   embed.ProviderType(cfg.Embeddings.Provider),
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		OllamaHost: cfg.Embeddings.OllamaHost,
		APIKey:     cfg.Embeddings.APIKey,
		BaseURL:    cfg.Embeddings.BaseURL,
		CacheSize:  cfg.Embeddings.CacheSize,
	})
}

// newEngineFromConfig wires an engine with the configured search settings.
func newEngineFromConfig(cfg *config.Config, embedder embed.Embedder, docs *store.DocumentStore) *search.Engine {
	return search.NewEngine(embedder, docs, search.EngineConfig{
		Alpha:         cfg.Search.Alpha,
		RRFConstant:   cfg.Search.RRFConstant,
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxLimit:      cfg.Search.MaxLimit,
		VectorTimeout: cfg.Search.VectorTimeout,
	})
}

// openEngine loads the persisted index into a ready-to-query engine.
// The returned cleanup closes the document store and vector index.
func openEngine(ctx context.Context, cfg *config.Config) (*search.Engine, *store.DocumentStore, func(), error) {
	docs, err := openStores(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		// Queries still work lexical-only without an embedder.
		fmt.Fprintf(os.Stderr, "warning: embedder unavailable, using keyword search only: %v\n", err)
		embedder = nil
	}

	snapshot, err := index.LoadSnapshot(ctx, docs, embedder, cfg.Paths.DataDir)
	if err != nil {
		_ = docs.Close()
		if embedder != nil {
			_ = embedder.Close()
		}
		return nil, nil, nil, err
	}

	engine := newEngineFromConfig(cfg, embedder, docs)
	engine.SetSnapshot(snapshot)

	cleanup := func() {
		if snapshot.Vectors != nil {
			_ = snapshot.Vectors.Close()
		}
		if embedder != nil {
			_ = embedder.Close()
		}
		_ = docs.Close()
	}
	return engine, docs, cleanup, nil
}
