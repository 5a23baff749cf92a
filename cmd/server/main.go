package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/api"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/storage"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "flowcanvas.db", "Path to the sqlite flow database")
	catalogPath := flag.String("catalog", "", "Optional path to an operator catalog overlay YAML")
	autosave := flag.Duration("autosave", 3*time.Second, "Autosave debounce delay")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Operator catalog ──────────────────────────────────────────────────────
	loader, err := operator.NewLoader(*catalogPath)
	if err != nil {
		slog.Error("failed to load operator catalog", "err", err)
		os.Exit(1)
	}
	slog.Info("operator catalog loaded", "kinds", len(loader.Catalog().Kinds()))

	if *catalogPath != "" {
		loader.OnChange(func(cat *operator.Catalog) {
			slog.Info("operator catalog hot-reloaded", "kinds", len(cat.Kinds()))
		})
		stopWatch, err := loader.Watch()
		if err != nil {
			slog.Warn("catalog watcher unavailable (hot-reload disabled)", "err", err)
		} else {
			defer stopWatch()
		}
	}

	// ── Flow store ────────────────────────────────────────────────────────────
	flows, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("failed to open flow store", "err", err)
		os.Exit(1)
	}
	defer flows.Close()

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(flows, loader, *autosave)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	handler.Shutdown() // flush pending autosaves
	slog.Info("goodbye")
}
