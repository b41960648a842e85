// Package worker recomputes plans that other writers marked stale.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"planledger/internal/amqp"
	"planledger/internal/core"
	"planledger/internal/log"
	"planledger/internal/services"
)

// Engine is what the worker needs from services.Engine.
type Engine interface {
	Drain(ctx context.Context) (services.DrainReport, error)
	Recompute(ctx context.Context, planID string) (core.PlanAggregate, error)
}

// Config holds configuration for the recompute worker
type Config struct {
	// PollInterval is how often the pending queue is drained (default: 30s)
	PollInterval time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{PollInterval: 30 * time.Second}
}

// RecomputeWorker drains the pending-recompute queue on a ticker and handles
// recompute messages pushed by a broker.
type RecomputeWorker struct {
	engine Engine
	config Config
	logger *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRecomputeWorker(engine Engine, config Config) *RecomputeWorker {
	if config.PollInterval <= 0 {
		config = DefaultConfig()
	}
	return &RecomputeWorker{
		engine: engine,
		config: config,
		logger: log.ForComponent(log.ComponentWorker),
	}
}

// Start begins the drain loop. Returns an error if already running.
func (w *RecomputeWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("recompute worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	w.logger.InfoContext(ctx, "Recompute worker started", "poll_interval", w.config.PollInterval)
	return nil
}

// Stop signals the loop and waits for the drain in progress to finish.
func (w *RecomputeWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		w.logger.InfoContext(ctx, "Recompute worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Recompute worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *RecomputeWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *RecomputeWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Drain immediately on startup to pick up work left by a previous run.
	w.DrainOnce(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce runs one drain and logs its outcome.
func (w *RecomputeWorker) DrainOnce(ctx context.Context) services.DrainReport {
	report, err := w.engine.Drain(ctx)
	if err != nil {
		w.logger.LogErr(ctx, "Drain failed", err, log.FieldOperation, log.OpDrain)
		return report
	}
	if report.Drained == 0 {
		return report
	}
	w.logger.InfoContext(ctx, "Pending recomputations drained",
		log.FieldOperation, log.OpDrain,
		"drained", report.Drained,
		"recomputed", len(report.Recomputed),
		"dropped", len(report.Dropped),
		"failed", len(report.Failed))
	return report
}

// HandleRecomputeMessage recomputes the plan named by msg. A plan deleted in
// the meantime is acknowledged and dropped; other failures are returned so
// the broker redelivers the message.
func (w *RecomputeWorker) HandleRecomputeMessage(ctx context.Context, msg *amqp.RecomputeMessage) error {
	agg, err := w.engine.Recompute(ctx, msg.PlanID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.InfoContext(ctx, "Dropping recompute for deleted plan", log.FieldPlanID, msg.PlanID, "reason", msg.Reason)
		return nil
	}
	if err != nil {
		return fmt.Errorf("recompute plan %s: %w", msg.PlanID, err)
	}
	w.logger.DebugContext(ctx, "Plan recomputed from message",
		log.FieldPlanID, msg.PlanID,
		"reason", msg.Reason,
		log.FieldStatus, agg.Status)
	return nil
}
