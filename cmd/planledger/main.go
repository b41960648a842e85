package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"planledger/internal/backend"
	"planledger/internal/cli"
	"planledger/internal/config"
	apphttp "planledger/internal/http"
	"planledger/internal/invalidation"
	"planledger/internal/log"
	"planledger/internal/services"
	"planledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	gin.SetMode(gin.ReleaseMode)

	res := cli.InitBackend(context.Background(), logger, cfg)
	engine := newEngine(cfg, res)

	srv := apphttp.NewServer(":"+cfg.Port, engine, apphttp.Options{
		JWTSecret:     cfg.JWTSecret,
		CacheSize:     cfg.CacheSize,
		CacheTTL:      cfg.CacheTTL,
		RatePerMinute: 120,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// An in-memory queue lives in this process only, so nobody else can
	// drain it.
	var drainer *worker.RecomputeWorker
	if backend.QueueType(cfg.QueueBackend) == backend.MemoryQueue {
		drainer = worker.NewRecomputeWorker(engine, worker.Config{PollInterval: cfg.DrainInterval})
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if drainer != nil {
			if err := drainer.Stop(shutdownCtx); err != nil {
				logger.Warn("Drain worker stop error", "error", err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	if drainer != nil {
		if err := drainer.Start(ctx); err != nil {
			logger.Error("Failed to start drain worker", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("Starting planledger server",
		"port", cfg.Port,
		"data_backend", cfg.DataBackend,
		"queue_backend", cfg.QueueBackend,
		"timezone", cfg.Timezone,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

func newEngine(cfg *config.Config, res *backend.BackendResult) *services.Engine {
	loc, _ := cfg.Location() // checked by Validate
	channel := invalidation.NewChannel(res.Queue, nil)
	return services.NewEngine(res.Store, channel,
		services.WithLocation(loc),
		services.WithDrainConcurrency(cfg.DrainConcurrency),
		services.WithLogger(log.ForComponent(log.ComponentEngine)),
	)
}
