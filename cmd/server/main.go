package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/api"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/assetstore"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/batch"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/config"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/session"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/store"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/vision"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/worker"
)

// slogNotifier is the default chat delivery: acknowledgments go to the
// structured log until a real messaging transport is plugged in.
type slogNotifier struct{}

func (slogNotifier) Notify(userID, message string) {
	slog.Info("notify", "user", userID, "message", message)
}

func main() {
	cfg := config.Load()

	// Open SQLite.
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	// Content-addressed photo store.
	assets, err := assetstore.New(cfg.AssetRoot)
	if err != nil {
		log.Fatalf("init asset store: %v", err)
	}

	// Initialize store (runs migrations).
	s, err := store.New(db, assets)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		log.Fatalf("create temp dir: %v", err)
	}

	// Reset stale processing ingest entries from a previous run.
	if n, err := s.ResetStaleProcessing(context.Background()); err != nil {
		log.Printf("warning: reset stale processing: %v", err)
	} else if n > 0 {
		log.Printf("reset %d stale processing ingest entries", n)
	}

	// Build the analyzer.
	var analyzer vision.Analyzer
	if cfg.UseStub() {
		log.Println("ANTHROPIC_API_KEY not set, using stub analyzer")
		analyzer = &vision.StubAnalyzer{}
	} else {
		log.Println("using Claude vision analyzer", cfg.VisionModel)
		analyzer = vision.NewClaudeClient(cfg.AnthropicKey,
			vision.WithClaudeModel(cfg.VisionModel),
			vision.WithTimeout(cfg.VisionTimeout),
			vision.WithMaxImageDimension(cfg.MaxImageDimension),
		)
	}

	sessions := session.NewManager(analyzer, s, slogNotifier{})

	// Start the batch worker in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := batch.NewRunner(s, s)
	w := worker.New(cfg.BatchRoot, runner, cfg.WorkerInterval)
	go w.Start(ctx)

	// Start API server.
	srv := api.New(sessions, s, cfg.TempDir)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down...")
		cancel()
		httpServer.Shutdown(context.Background())
	}()

	fmt.Printf("intake server listening on http://localhost:%s\n", cfg.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
