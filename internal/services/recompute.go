package services

import (
	"context"
	"fmt"

	"planledger/internal/core"
	"planledger/internal/invalidation"
)

// Repair is an installment whose cached status disagrees with its ledger entry.
type Repair struct {
	InstallmentID string
	From          core.InstallmentStatus
	To            core.InstallmentStatus
}

// Computation is the outcome of deriving a plan's aggregate from its rows.
type Computation struct {
	Aggregate core.PlanAggregate
	Repairs   []Repair
	// Unmapped lists installments whose ledger status is not valid for the
	// plan kind. They count as unpaid.
	Unmapped []string
}

// ComputeAggregate derives the aggregate of one plan from its installments
// joined with ledger status. A plan is settled once every installment is
// paid, overdue if any unpaid installment fell due before today, otherwise
// pending. The result does not depend on the order of rows.
func ComputeAggregate(planID string, kind core.PlanKind, rows []core.InstallmentLedgerView, today core.Date) Computation {
	c := Computation{Aggregate: core.PlanAggregate{PlanID: planID, InstallmentCount: len(rows)}}
	agg := &c.Aggregate

	pastDue := false
	for _, row := range rows {
		agg.Total = agg.Total.Add(row.Share)

		st, err := core.FromLedger(kind, row.EntryStatus)
		if err != nil {
			c.Unmapped = append(c.Unmapped, row.ID)
			if row.DueDate.Before(today) {
				pastDue = true
			}
			continue
		}
		if st != row.Status {
			c.Repairs = append(c.Repairs, Repair{InstallmentID: row.ID, From: row.Status, To: st})
		}
		if st == core.InstallmentPaid {
			agg.Paid = agg.Paid.Add(row.Share)
			agg.PaidCount++
			continue
		}
		if row.DueDate.Before(today) {
			pastDue = true
		}
	}
	agg.Remaining = agg.Total.Sub(agg.Paid)

	switch {
	case agg.InstallmentCount > 0 && agg.PaidCount == agg.InstallmentCount:
		agg.Status = core.PlanSettled
	case pastDue:
		agg.Status = core.PlanOverdue
	default:
		agg.Status = core.PlanPending
	}
	return c
}

// Recompute re-derives planID's aggregate from ledger truth and stores it.
// Stale installment statuses are repaired on the way; a failed repair is
// logged and does not fail the recomputation. Calling it again without an
// intervening change writes the same aggregate.
func (e *Engine) Recompute(ctx context.Context, planID string) (core.PlanAggregate, error) {
	plan, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return core.PlanAggregate{}, err
	}
	rows, err := e.store.ListPlanInstallments(ctx, planID)
	if err != nil {
		return core.PlanAggregate{}, fmt.Errorf("read installments of plan %s: %w", planID, err)
	}

	c := ComputeAggregate(plan.ID, plan.Kind, rows, e.Today())

	for _, r := range c.Repairs {
		if err := e.store.UpdateInstallmentStatus(ctx, r.InstallmentID, r.To); err != nil {
			e.logger.WarnContext(ctx, "Failed to repair installment status",
				"installment_id", r.InstallmentID, "from", r.From, "to", r.To, "error", err)
			continue
		}
		e.logger.InfoContext(ctx, "Repaired installment status",
			"installment_id", r.InstallmentID, "from", r.From, "to", r.To)
	}
	if len(c.Unmapped) > 0 {
		e.logger.WarnContext(ctx, "Ledger status not valid for plan kind",
			"plan_id", planID, "kind", plan.Kind, "installments", c.Unmapped)
	}

	if err := e.store.UpdatePlanAggregate(ctx, planID, c.Aggregate); err != nil {
		return core.PlanAggregate{}, fmt.Errorf("store aggregate of plan %s: %w", planID, err)
	}

	e.logger.DebugContext(ctx, "Plan recomputed",
		"plan_id", planID,
		"paid_cents", c.Aggregate.Paid.Cents,
		"remaining_cents", c.Aggregate.Remaining.Cents,
		"paid_count", c.Aggregate.PaidCount,
		"status", c.Aggregate.Status)

	e.channel.Broadcast(invalidation.Event{
		Name:   invalidation.PlanRecomputed,
		PlanID: planID,
		Status: string(c.Aggregate.Status),
	})
	return c.Aggregate, nil
}
