package services

import (
	"context"
	"time"

	"planledger/internal/core"
	"planledger/internal/invalidation"
	"planledger/internal/log"
	"planledger/internal/storage"
)

const defaultDrainConcurrency = 4

// Engine owns installment plans: it generates them, keeps installment and
// ledger statuses in step, recomputes plan aggregates from ledger truth and
// signals staleness on the invalidation channel.
type Engine struct {
	store            storage.Store
	channel          *invalidation.Channel
	logger           *log.Logger
	loc              *time.Location
	now              func() time.Time
	drainConcurrency int
}

type Option func(*Engine)

// WithClock pins "now", which decides the overdue boundary.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone whose start of day is "today".
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithDrainConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.drainConcurrency = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(store storage.Store, channel *invalidation.Channel, opts ...Option) *Engine {
	if channel == nil {
		channel = invalidation.NewChannel(invalidation.NewMemoryQueue(), nil)
	}
	e := &Engine{
		store:            store,
		channel:          channel,
		logger:           log.ForComponent(log.ComponentEngine),
		loc:              time.UTC,
		now:              time.Now,
		drainConcurrency: defaultDrainConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today is the current calendar day in the engine's location.
func (e *Engine) Today() core.Date {
	return core.DateOf(e.now().In(e.loc))
}

// Bus exposes the broadcast half of the channel for subscribers.
func (e *Engine) Bus() *invalidation.Bus {
	return e.channel.Bus
}

func (e *Engine) enqueue(ctx context.Context, planID string) error {
	if err := e.channel.EnqueuePendingRecompute(ctx, planID); err != nil {
		e.logger.ErrorContext(ctx, "Failed to enqueue pending recompute", "plan_id", planID, "error", err)
		return err
	}
	return nil
}
