package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/evalbridge/evalbridge/internal/config"
	"github.com/evalbridge/evalbridge/internal/pkg/database"
	"github.com/evalbridge/evalbridge/internal/pkg/logger"
	chrepo "github.com/evalbridge/evalbridge/internal/repository/clickhouse"
	pgrepo "github.com/evalbridge/evalbridge/internal/repository/postgres"
	"github.com/evalbridge/evalbridge/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	log.Info("starting worker service")

	deps, cleanup, err := initWorkerDependencies(cfg)
	if err != nil {
		log.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer cleanup()

	workerServer, err := worker.NewServer(log, cfg, deps)
	if err != nil {
		log.Fatal("failed to create worker server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- workerServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down worker...")
		workerServer.Stop()
	case err := <-errCh:
		if err != nil {
			log.Error("worker server error", zap.Error(err))
		}
	}

	log.Info("worker stopped")
}

// initWorkerDependencies initializes the repositories the workers write through
func initWorkerDependencies(cfg *config.Config) (*worker.Dependencies, func(), error) {
	ctx := context.Background()

	chDB, err := database.NewClickHouse(ctx, cfg.ClickHouse)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
	}

	sqlxDB, err := database.NewSQLX(cfg.Postgres)
	if err != nil {
		_ = chDB.Close()
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	deps := &worker.Dependencies{
		ScoreRepo: chrepo.NewScoreRepository(chDB),
		AuditRepo: pgrepo.NewAuditRepository(sqlxDB),
	}

	cleanup := func() {
		_ = chDB.Close()
		_ = sqlxDB.Close()
	}

	return deps, cleanup, nil
}
