package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

type fakeProcessor struct {
	mu        sync.Mutex
	processed map[string]int
}

func (p *fakeProcessor) ProcessBundle(_ context.Context, dir string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := filepath.Base(dir)
	p.processed[name]++
	if p.processed[name] > 1 {
		return 0, fmt.Errorf("bundle %s: %w", name, model.ErrDuplicateBatch)
	}
	return 1, nil
}

func (p *fakeProcessor) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed[name]
}

func writeBundleDir(t *testing.T, root, name string, withManifest bool) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating bundle dir: %v", err)
	}
	if withManifest {
		if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(`{"items":[]}`), 0o644); err != nil {
			t.Fatalf("writing manifest: %v", err)
		}
	}
}

func TestScanPicksUpManifestDirectories(t *testing.T) {
	root := t.TempDir()
	writeBundleDir(t, root, "batch-a", true)
	writeBundleDir(t, root, "batch-b", true)
	writeBundleDir(t, root, "no-manifest", false)
	if err := os.WriteFile(filepath.Join(root, "stray-file.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("writing stray file: %v", err)
	}

	p := &fakeProcessor{processed: make(map[string]int)}
	w := New(root, p, time.Minute)
	w.scan(context.Background())

	if p.count("batch-a") != 1 || p.count("batch-b") != 1 {
		t.Errorf("bundles processed = %v, want batch-a and batch-b once each", p.processed)
	}
	if p.count("no-manifest") != 0 {
		t.Error("directory without manifest must be skipped")
	}
}

func TestScanTreatsDuplicatesAsNoOps(t *testing.T) {
	root := t.TempDir()
	writeBundleDir(t, root, "batch-a", true)

	p := &fakeProcessor{processed: make(map[string]int)}
	w := New(root, p, time.Minute)
	w.scan(context.Background())
	w.scan(context.Background())

	if p.count("batch-a") != 2 {
		t.Errorf("scan calls = %d, want 2 (the ingest log handles dedup)", p.count("batch-a"))
	}
}

func TestScanMissingRootIsQuiet(t *testing.T) {
	p := &fakeProcessor{processed: make(map[string]int)}
	w := New(filepath.Join(t.TempDir(), "does-not-exist"), p, time.Minute)
	w.scan(context.Background())
	if len(p.processed) != 0 {
		t.Errorf("processed = %v, want none", p.processed)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	p := &fakeProcessor{processed: make(map[string]int)}
	w := New(t.TempDir(), p, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
