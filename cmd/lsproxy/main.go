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

	cfhttp "github.com/orbitcode/lsproxy/internal/adapter/http"
	"github.com/orbitcode/lsproxy/internal/astquery"
	"github.com/orbitcode/lsproxy/internal/config"
	"github.com/orbitcode/lsproxy/internal/logger"
	"github.com/orbitcode/lsproxy/internal/manager"
	"github.com/orbitcode/lsproxy/internal/mount"
	"github.com/orbitcode/lsproxy/internal/orchestrator"
	"github.com/orbitcode/lsproxy/internal/workspace"
)

func main() {
	// Temporary bootstrap logger until config is loaded.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := config.ParseFlags(nil)
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}

	cfg, _, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if flags.WriteOpenAPI != nil {
		if err := writeOpenAPISchema(*flags.WriteOpenAPI); err != nil {
			return fmt.Errorf("write openapi schema: %w", err)
		}
		return nil
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}

	// Replace bootstrap logger with the configured one.
	sl, closer := logger.New(cfg.Logging)
	slog.SetDefault(sl)
	defer closer.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"workspace_root", cfg.Workspace.Root,
	)

	mount.Set(cfg.Workspace.Root)

	ctx := context.Background()

	// --- Infrastructure ---

	docs, err := workspace.New(cfg.Workspace.Root, cfg.Workspace.IncludePatterns, cfg.Workspace.ExcludePatterns, cfg.Workspace.WatchDebounce, cfg.Cache)
	if err != nil {
		return fmt.Errorf("workspace: %w", err)
	}

	ast := astquery.New(cfg.AST)

	mgr := manager.New(cfg.Workspace.Root, cfg.LSP, docs)
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("manager start: %w", err)
	}
	slog.Info("language servers started", "servers", mgr.Status())

	orch := orchestrator.New(mgr, ast)

	// --- HTTP ---

	handler, stopRateLimiter := cfhttp.NewRouter(cfg, orch)

	addr := cfg.Server.Host + ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done

	// --- Ordered Graceful Shutdown ---

	slog.Info("shutdown phase 1: stopping HTTP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("shutdown phase 2: stopping rate limiter cleanup")
	stopRateLimiter()

	slog.Info("shutdown phase 3: stopping language servers")
	mgr.Stop(shutdownCtx)

	slog.Info("shutdown phase 4: closing workspace documents")
	docs.Close()

	slog.Info("shutdown complete")
	return nil
}
