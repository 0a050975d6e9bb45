// Package main is the entry point for the blockdesk API server.
// It loads configuration, connects to the configured backends, sets up
// routing, and starts the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blockdesk/internal/blocks"
	"blockdesk/internal/cache"
	"blockdesk/internal/collection"
	"blockdesk/internal/config"
	"blockdesk/internal/database"
	"blockdesk/internal/editor"
	"blockdesk/internal/handlers"
	"blockdesk/internal/middleware"
	"blockdesk/internal/notify"
	"blockdesk/internal/persist"
	"blockdesk/internal/router"
	"blockdesk/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"backend", cfg.Backend,
		"reorder_mode", cfg.ReorderMode,
		"payload_validation", cfg.PayloadValidation,
	)

	// Row store: PostgreSQL, or an in-process store for demos and tests.
	var rows store.Rows
	switch cfg.Backend {
	case config.BackendPostgres:
		var db *sql.DB
		db, err = database.Connect(cfg.DSN())
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		rows = store.NewPostgres(db)
	default:
		slog.Warn("using in-memory backend, data is lost on restart")
		rows = store.NewMemory()
	}

	// Seed example data (no-op if data already exists).
	if cfg.IsDev() || cfg.Backend == config.BackendMemory {
		if err := store.Seed(context.Background(), rows); err != nil {
			slog.Error("failed to seed data", "error", err)
			os.Exit(1)
		}
	}

	// Editor sessions and notifications live in Valkey when configured so
	// several API instances can share them.
	var (
		sessions editor.Registry
		inbox    notify.Mailbox
	)
	if cfg.UseValkey() {
		valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer valkeyClient.Close()

		sessions = cache.NewDraftStore(valkeyClient, cfg.DraftTTL)
		inbox = notify.NewValkey(valkeyClient)
	} else {
		slog.Warn("valkey not configured, sessions and notifications kept in process")
		sessions = editor.NewMemoryRegistry(cfg.DraftTTL)
		inbox = notify.NewMemory()
	}

	codec := blocks.NewCodec(blocks.Mode(cfg.PayloadValidation))
	sy := persist.New(rows, codec, collection.ReorderMode(cfg.ReorderMode), cfg.WriteConcurrency)
	api := handlers.NewAPI(sy, sessions, notify.Multi{notify.Log{}, inbox}, inbox)

	var limiter *middleware.WriteLimiter
	if cfg.WriteLimit > 0 {
		limiter = middleware.NewWriteLimiter(cfg.WriteLimit, time.Minute)
		defer limiter.Stop()
	}

	r := router.New(api, limiter)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
