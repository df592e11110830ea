// Package main is the entry point for the portfolio engine.
// It serves portfolio queries, executes fractional orders and round-ups,
// and runs the snapshot, maintenance and backup jobs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/miowsis/portfolio-engine/internal/config"
	"github.com/miowsis/portfolio-engine/internal/di"
	esghandlers "github.com/miowsis/portfolio-engine/internal/modules/esg/handlers"
	portfoliohandlers "github.com/miowsis/portfolio-engine/internal/modules/portfolio/handlers"
	tradinghandlers "github.com/miowsis/portfolio-engine/internal/modules/trading/handlers"
	universehandlers "github.com/miowsis/portfolio-engine/internal/modules/universe/handlers"
	"github.com/miowsis/portfolio-engine/internal/server"
	"github.com/miowsis/portfolio-engine/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.DevMode,
		Service: "portfolio-engine",
	})

	log.Info().Msg("Starting portfolio engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, jobs, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		Databases: container.Databases(),
		EventBus:  container.EventBus,
		Handlers:  routeHandlers(container, log),
		Jobs:      jobs.All(),
		Runner:    container.Scheduler,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	container.Scheduler.Start()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	// Running jobs finish before the databases close
	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func routeHandlers(container *di.Container, log zerolog.Logger) []server.RouteRegistrar {
	return []server.RouteRegistrar{
		portfoliohandlers.NewPortfolioHandlers(container.PortfolioService, log),
		tradinghandlers.NewTradingHandlers(container.Executor, container.TransactionService, log),
		esghandlers.NewESGHandlers(container.ESGService, log),
		universehandlers.NewUniverseHandlers(container.SecurityRepo, log),
	}
}
