package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tronscope/tronscope/internal/config"
	"github.com/tronscope/tronscope/internal/infra"
	"github.com/tronscope/tronscope/internal/logging"
	"github.com/tronscope/tronscope/internal/metrics"
	"github.com/tronscope/tronscope/internal/routes"
	"github.com/tronscope/tronscope/internal/server"
	"github.com/tronscope/tronscope/internal/tron"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)
	m := metrics.New("tronscope")

	ctx := context.Background()

	poolOpts := infra.PoolOptions{MaxConns: cfg.DBMaxConns}
	if cfg.DBLogQueries {
		poolOpts.Logger = logger.With(slog.String("component", "postgres"))
	}
	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL(), poolOpts)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	chain := tron.New(tron.Options{
		BaseURL:  cfg.TronAPIURL,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.TronTimeout,
		Requests: m.TronRequests,
	})
	defer chain.Close()

	srv, err := server.New(ctx, routes.Deps{
		Cfg:     cfg,
		DB:      db,
		Cache:   cache,
		Chain:   chain,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
