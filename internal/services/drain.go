package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"planledger/internal/core"
)

// DrainReport summarises one drain of the pending-recompute queue.
type DrainReport struct {
	Drained    int      `json:"drained"`
	Recomputed []string `json:"recomputed"`
	// Dropped plans no longer exist.
	Dropped []string `json:"dropped"`
	// Failed plans were put back on the queue.
	Failed []string `json:"failed"`
}

// Drain empties the pending queue and recomputes every plan in it, a bounded
// number at a time. Plans whose recompute fails are re-enqueued. Once ctx is
// cancelled the remaining plans are not recomputed but put back, so an id
// taken off the queue is never lost.
func (e *Engine) Drain(ctx context.Context) (DrainReport, error) {
	ids, err := e.channel.DrainPendingRecompute(ctx)
	if err != nil {
		// Ids returned alongside the error are already off the queue.
		report := DrainReport{Drained: len(ids), Failed: append([]string(nil), ids...)}
		sort.Strings(report.Failed)
		return report, errors.Join(
			fmt.Errorf("drain pending recompute: %w", err),
			e.requeue(ctx, report.Failed))
	}
	report := DrainReport{Drained: len(ids)}
	if len(ids) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.drainConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			err := ctx.Err()
			if err == nil {
				_, err = e.Recompute(ctx, id)
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Recomputed = append(report.Recomputed, id)
			case ctx.Err() == nil && errors.Is(err, core.ErrNotFound):
				report.Dropped = append(report.Dropped, id)
			default:
				e.logger.WarnContext(ctx, "Pending recompute failed, re-enqueueing", "plan_id", id, "error", err)
				report.Failed = append(report.Failed, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	requeueErr := e.requeue(ctx, report.Failed)

	sort.Strings(report.Recomputed)
	sort.Strings(report.Dropped)
	sort.Strings(report.Failed)

	e.logger.InfoContext(ctx, "Pending queue drained",
		"drained", report.Drained,
		"recomputed", len(report.Recomputed),
		"dropped", len(report.Dropped),
		"failed", len(report.Failed))

	return report, requeueErr
}

// requeue puts ids back on the queue. It ignores cancellation of ctx: the ids
// are already off the queue and would otherwise be lost.
func (e *Engine) requeue(ctx context.Context, ids []string) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, id := range ids {
		if err := e.channel.EnqueuePendingRecompute(ctx, id); err != nil {
			e.logger.ErrorContext(ctx, "Failed to re-enqueue pending recompute", "plan_id", id, "error", err)
			errs = append(errs, fmt.Errorf("re-enqueue %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
