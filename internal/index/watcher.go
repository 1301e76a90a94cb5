package index

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rangerlabs/geocat/internal/search"
)

// DefaultDebounceWindow coalesces the write bursts editors and download
// scripts produce into one rebuild.
const DefaultDebounceWindow = 2 * time.Second

// Watcher rebuilds the index when the catalog file changes and swaps the
// new snapshot into the engine. Queries keep running against the old
// snapshot until the swap.
type Watcher struct {
	builder  *Builder
	engine   *search.Engine
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	fsw     *fsnotify.Watcher
	stopped bool
}

// NewWatcher creates a catalog watcher. A non-positive debounce window
// uses the default.
func NewWatcher(builder *Builder, engine *search.Engine, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}
	return &Watcher{builder: builder, engine: engine, debounce: debounce}
}

// Start watches the catalog file until the context is cancelled. It
// watches the parent directory because editors replace files by rename,
// which drops a watch placed on the file itself.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}

	catalogPath, err := filepath.Abs(w.builder.config.CatalogPath)
	if err != nil {
		_ = fsw.Close()
		return fmt.Errorf("resolve catalog path: %w", err)
	}
	if err := fsw.Add(filepath.Dir(catalogPath)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch catalog directory: %w", err)
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	slog.Info("catalog_watch_started", "path", catalogPath)

	for {
		select {
		case <-ctx.Done():
			w.stop()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != catalogPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleRebuild(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("catalog_watch_error", "error", err)
		}
	}
}

// scheduleRebuild arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleRebuild(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.rebuild(ctx)
	})
}

func (w *Watcher) rebuild(ctx context.Context) {
	slog.Info("catalog_changed", "path", w.builder.config.CatalogPath)

	snapshot, err := w.builder.Build(ctx)
	if err != nil {
		slog.Error("catalog_rebuild_failed", "error", err)
		return
	}

	old := w.engine.Snapshot()
	w.engine.SetSnapshot(snapshot)
	if old != nil && old.Vectors != nil {
		_ = old.Vectors.Close()
	}

	slog.Info("catalog_rebuilt", "documents", snapshot.Corpus.Len())
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
}
