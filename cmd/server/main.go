package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjannette/chart-cache/internal/api"
	"github.com/kjannette/chart-cache/internal/config"
	"github.com/kjannette/chart-cache/internal/db"
	"github.com/kjannette/chart-cache/internal/logging"
	"github.com/kjannette/chart-cache/internal/repository"
	"go.uber.org/zap"
)

const banner = `
╔══════════════════════════════════════╗
║        Chart Cache API v1.0          ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg.Print(log)

	if err := serve(cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

// serve runs the API until SIGINT/SIGTERM or a listener failure. The store is
// closed on every return path.
func serve(cfg *config.Config, log *zap.Logger) error {
	// Database
	store, err := openStore(cfg, log.Named("db"))
	if err != nil {
		return fmt.Errorf("store open: %w", err)
	}
	defer func() {
		store.Close()
		log.Info("store closed")
	}()

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = store.InitSchema(initCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("schema init: %w", err)
	}

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(store, cfg, log.Named("api"))
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case runErr = <-serveErr:
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	log.Info("shutdown complete")
	return runErr
}

func openStore(cfg *config.Config, log *zap.Logger) (repository.ChartStore, error) {
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.TestConnection(pool, log); err != nil {
			pool.Close()
			return nil, err
		}
		return repository.NewPgChartRepo(pool), nil
	}

	gdb, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	log.Info("sqlite store opened", zap.String("path", cfg.DBPath))
	return repository.NewSQLiteChartRepo(gdb), nil
}
