package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/recovery-kernel/config"
	"github.com/angeloszaimis/recovery-kernel/internal/circuitbreaker"
	"github.com/angeloszaimis/recovery-kernel/internal/httpserver"
	"github.com/angeloszaimis/recovery-kernel/internal/metrics"
	"github.com/angeloszaimis/recovery-kernel/internal/recovery"
	"github.com/angeloszaimis/recovery-kernel/internal/registry"
	"github.com/angeloszaimis/recovery-kernel/internal/router"
	"github.com/angeloszaimis/recovery-kernel/internal/startupdag"
	"github.com/angeloszaimis/recovery-kernel/internal/supervisor"
	"github.com/angeloszaimis/recovery-kernel/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fleet, err := buildFleet(cfg)
	if err != nil {
		log.Error("Failed to build component fleet", slog.Any("err", err))
		os.Exit(1)
	}

	breakers, err := buildBreakers(cfg)
	if err != nil {
		log.Error("Failed to configure circuit breakers", slog.Any("err", err))
		os.Exit(1)
	}

	collector := metrics.NewCollector(1024, log)
	collector.Start(ctx)

	engine := recovery.NewEngine(fleet, recovery.NewClassifier(), log)
	capRouter := router.New(log, fleet, breakers, collector)
	dag := startupdag.New(fleet)

	sup := supervisor.New(log, fleet, dag, engine, collector)
	if err := sup.Run(ctx); err != nil {
		log.Error("Startup failed", slog.Any("err", err))
		os.Exit(1)
	}

	mux := setupRouter(dag, capRouter, collector)

	srv, err := httpserver.New(cfg.Server.Address, mux)
	if err != nil {
		log.Error("Failed to create admin server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Admin server listening", slog.String("address", cfg.Server.Address))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error running admin server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func buildFleet(cfg *config.Config) (*registry.InMemory, error) {
	fleet := registry.NewInMemory()

	for _, cc := range cfg.Components {
		defn, err := cc.Definition()
		if err != nil {
			return nil, err
		}
		if err := fleet.Register(defn); err != nil {
			return nil, err
		}
	}

	return fleet, nil
}

func buildBreakers(cfg *config.Config) (*circuitbreaker.Registry, error) {
	failureThreshold, successThreshold, timeout, err := cfg.Breaker.BreakerSettings()
	if err != nil {
		return nil, err
	}

	return circuitbreaker.NewRegistry(circuitbreaker.Config{
		FailureThreshold: failureThreshold,
		SuccessThreshold: successThreshold,
		Timeout:          timeout,
	}), nil
}
