// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"interpretation-broker/internal/config"
	"interpretation-broker/internal/infra/adapters/compute"
	pg "interpretation-broker/internal/infra/db/postgres"
	"interpretation-broker/internal/infra/logging"
	"interpretation-broker/internal/infra/metrics"
	red "interpretation-broker/internal/infra/redis"
	"interpretation-broker/internal/infra/web"
	"interpretation-broker/internal/infra/worker"
	"interpretation-broker/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	jobStore := red.NewJobStore(redisClient)
	bus := red.NewBus(redisClient)
	limiter := red.NewRateLimiter(redisClient)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	users := pg.NewUserDirectory(pool)

	// ---- Super-backend ----
	gateway, err := compute.NewHTTPGateway(cfg.Compute.BaseURL, cfg.Compute.Timeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("compute gateway")
	}

	// ---- Core ----
	registry := usecase.NewCallbackRegistry()
	jobUC := usecase.NewJobUseCase(jobStore, registry, users, bus, logger)

	// ---- Detached compute calls ----
	workers := worker.NewPool(cfg.Worker.Count, logger)
	workers.Start(ctx)
	defer workers.Stop()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Auth)
	srv := web.NewServer(cfg, jobUC, users, gateway, bus, workers, auth, limiter, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server failed")
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
}
