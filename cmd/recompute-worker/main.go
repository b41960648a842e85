package main

import (
	"context"
	"errors"
	"os"
	"time"

	"planledger/internal/cli"
	"planledger/internal/invalidation"
	"planledger/internal/log"
	"planledger/internal/services"
	"planledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)
	loc, _ := cfg.Location() // checked by Validate
	engine := services.NewEngine(res.Store, invalidation.NewChannel(res.Queue, nil),
		services.WithLocation(loc),
		services.WithDrainConcurrency(cfg.DrainConcurrency),
	)
	w := worker.NewRecomputeWorker(engine, worker.Config{PollInterval: cfg.DrainInterval})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := w.Stop(shutdownCtx); err != nil {
			logger.Warn("Worker stop error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting recompute worker",
		"data_backend", cfg.DataBackend,
		"queue_backend", cfg.QueueBackend,
		"drain_interval", cfg.DrainInterval,
		log.FieldOperation, log.OpStartup)

	if res.Broker != nil {
		// Pick up anything published while no consumer was running, then
		// take messages as they arrive.
		w.DrainOnce(ctx)
		go func() {
			err := res.Broker.ConsumeRecompute(ctx, w.HandleRecomputeMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
				os.Exit(1)
			}
		}()
	} else if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start recompute worker", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recompute worker stopped")
}
