package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/synthstream/exportd/internal/infrastructure/config"
	"github.com/synthstream/exportd/internal/infrastructure/logging"
	"github.com/synthstream/exportd/internal/infrastructure/monitoring"
	"github.com/synthstream/exportd/internal/pipeline"
	"github.com/synthstream/exportd/internal/scheduler"
	"github.com/synthstream/exportd/internal/server"
	"github.com/synthstream/exportd/internal/synth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}
	defer logger.Sync()

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	monitor := monitoring.NewMonitor(logger, metrics)

	writer := pipeline.NewWriter(
		synth.NewGenerator(),
		pipeline.NewIntervalPacer(cfg.Export.PacingInterval),
		monitor, metrics, logger,
	)
	converter := pipeline.NewConverter(monitor, metrics, logger)
	archiver := pipeline.NewArchiver(logger, metrics)
	runner := pipeline.NewRunner(cfg.Export, writer, converter, archiver, monitor, metrics, logger)

	sched, err := scheduler.New(logger)
	if err != nil {
		logger.Fatal("Failed to create scheduler", zap.Error(err))
	}
	if err := sched.RunNow(scheduler.ExportTaskName, func() error {
		return runner.Run(context.Background())
	}); err != nil {
		logger.Fatal("Failed to register export job", zap.Error(err))
	}

	srv := server.New(cfg, runner, metrics, prometheus.DefaultGatherer, logger)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	sched.Start()
	logger.Info("exportd started",
		zap.String("task", scheduler.ExportTaskName),
		zap.String("data_dir", cfg.Export.DataDir),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutting down gracefully...")
		if err := sched.Shutdown(); err != nil {
			logger.Error("Error during scheduler shutdown", zap.Error(err))
		}
	case err := <-errChan:
		logger.Fatal("Server error", zap.Error(err))
	}
}
