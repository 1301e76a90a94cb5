package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rangerlabs/geocat/internal/index"
)

func newIndexCmd() *cobra.Command {
	var catalogFile string
	var watch bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or rebuild the search index from the catalog file",
		Long: `Reads the catalog JSON file, embeds every document, and builds the
BM25 and vector indexes. The previous index is replaced wholesale.

With --watch, geocat keeps running and rebuilds whenever the catalog
file changes.

Examples:
  geocat index
  geocat index --catalog data/catalog.json
  geocat index --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), catalogFile, watch)
		},
	}

	cmd.Flags().StringVar(&catalogFile, "catalog", "", "Catalog JSON file (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and rebuild on catalog changes")

	return cmd
}

func runIndex(ctx context.Context, catalogFile string, watch bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if catalogFile != "" {
		cfg.Paths.CatalogFile = catalogFile
	}

	docs, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = docs.Close() }()

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}
	defer func() { _ = embedder.Close() }()

	builder, err := index.NewBuilder(embedder, docs, index.BuilderConfig{
		CatalogPath: cfg.Paths.CatalogFile,
		DataDir:     cfg.Paths.DataDir,
		BatchSize:   cfg.Embeddings.BatchSize,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	snapshot, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d documents in %s\n",
		snapshot.Corpus.Len(), time.Since(start).Round(time.Millisecond))

	if !watch {
		if snapshot.Vectors != nil {
			_ = snapshot.Vectors.Close()
		}
		return nil
	}

	// Watch mode: serve the snapshot to a live engine and rebuild on change.
	engine := newEngineFromConfig(cfg, embedder, docs)
	engine.SetSnapshot(snapshot)

	watcher := index.NewWatcher(builder, engine, cfg.Search.WatchDebounce)
	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n", cfg.Paths.CatalogFile)
	if err := watcher.Start(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
