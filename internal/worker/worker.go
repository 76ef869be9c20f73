// Package worker polls the batch drop directory for new bundles and feeds
// them to the ingestion runner.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

// BundleProcessor ingests a single bundle directory.
type BundleProcessor interface {
	ProcessBundle(ctx context.Context, dir string) (int, error)
}

// Worker scans a root directory for bundle subdirectories and processes
// each one. The ingestion log makes re-scans of the same bundle no-ops, so
// the scan itself does not need to track progress.
type Worker struct {
	root      string
	processor BundleProcessor
	interval  time.Duration
}

// New creates a new Worker scanning root every interval.
func New(root string, processor BundleProcessor, interval time.Duration) *Worker {
	return &Worker{root: root, processor: processor, interval: interval}
}

// Start begins the polling loop. It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("batch worker started", "root", w.root, "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("batch worker stopped")
			return
		default:
		}

		w.scan(ctx)
		w.sleep(ctx)
	}
}

// scan processes every bundle directory found under the root. A bundle is
// any subdirectory containing a manifest file.
func (w *Worker) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("scanning batch root", "root", w.root, "error", err)
		}
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(w.root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err != nil {
			continue
		}

		created, err := w.processor.ProcessBundle(ctx, dir)
		if err != nil {
			if errors.Is(err, model.ErrDuplicateBatch) {
				continue
			}
			slog.Error("bundle ingestion failed", "bundle", entry.Name(), "error", err)
			continue
		}
		slog.Info("bundle processed", "bundle", entry.Name(), "items", created)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.interval):
	}
}
