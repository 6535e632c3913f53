package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/gather/api"
	"github.com/use-agent/gather/cache"
	"github.com/use-agent/gather/capture"
	"github.com/use-agent/gather/config"
	"github.com/use-agent/gather/fetch"
	"github.com/use-agent/gather/render"
	"github.com/use-agent/gather/search"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("gather starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxSessions", cfg.Browser.MaxSessions,
	)

	// ── 3. Initialise session pool (launches browser) ───────────────
	pool, err := render.NewPool(cfg.Browser, cfg.Extract)
	if err != nil {
		slog.Error("failed to initialise session pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// ── 4. Assemble the extraction pipeline ─────────────────────────
	captures := capture.NewStore(cfg.Cache.MaxEntries)
	fetcher := fetch.NewFetcher(cfg.Fetch)
	extractor := render.NewExtractor(pool, cfg.Extract, captures.Record)
	pipeline := search.NewPipeline(fetcher, extractor, captures)
	slog.Info("pipeline assembled", "stages", pipeline.StageNames())

	// ── 5. Initialise cache + router ────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)
	startTime := time.Now()
	router := api.NewRouter(pipeline, pool, cfg, cc, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// pool.Close() runs via defer — drains sessions and kills Chrome.
	slog.Info("gather stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
