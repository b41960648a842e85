package services

import (
	"context"
	"errors"
	"fmt"

	"planledger/internal/core"
	"planledger/internal/invalidation"
)

// CreatePlan stores the plan row, then each period's ledger entry followed by
// its installment, in period order. Generation stops at the first failed
// period and reports a *core.PartialGenerationFailure; what was written stays
// written and the plan is queued for recomputation.
func (e *Engine) CreatePlan(ctx context.Context, d core.PlanDraft) (core.Plan, error) {
	if err := d.Validate(); err != nil {
		return core.Plan{}, err
	}
	periods, err := Generate(requestFromDraft(d))
	if err != nil {
		return core.Plan{}, err
	}

	planID, err := e.store.CreatePlan(ctx, d)
	if err != nil {
		return core.Plan{}, fmt.Errorf("create plan: %w", err)
	}

	for i, p := range periods {
		entryID, err := e.store.CreateEntry(ctx, p.Entry)
		if err != nil {
			return core.Plan{}, e.partialGeneration(ctx, planID, i, len(periods), "", err)
		}
		inst := p.Installment
		inst.PlanID = planID
		inst.EntryID = entryID
		if _, err := e.store.CreateInstallment(ctx, inst); err != nil {
			return core.Plan{}, e.partialGeneration(ctx, planID, i, len(periods), entryID, err)
		}
	}

	if _, err := e.Recompute(ctx, planID); err != nil {
		e.logger.WarnContext(ctx, "Initial recompute failed", "plan_id", planID, "error", err)
		_ = e.enqueue(ctx, planID)
	}

	plan, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return core.Plan{}, err
	}
	e.logger.InfoContext(ctx, "Plan created",
		"plan_id", plan.ID,
		"kind", plan.Kind,
		"total_cents", plan.Total.Cents,
		"installments", plan.InstallmentCount)
	return plan, nil
}

func (e *Engine) partialGeneration(ctx context.Context, planID string, persisted, total int, orphan string, cause error) error {
	failure := &core.PartialGenerationFailure{
		PlanID:        planID,
		Persisted:     persisted,
		Total:         total,
		OrphanEntryID: orphan,
		Err:           cause,
	}
	e.logger.ErrorContext(ctx, "Plan generation stopped", "plan_id", planID, "persisted", persisted, "total", total,
		"orphan_entry_id", orphan, "error", cause)
	_ = e.enqueue(ctx, planID)
	return failure
}

func (e *Engine) GetPlan(ctx context.Context, planID string) (core.Plan, error) {
	return e.store.GetPlan(ctx, planID)
}

func (e *Engine) ListPlans(ctx context.Context, ownerID string, kind core.PlanKind) ([]core.Plan, error) {
	if !kind.Valid() {
		return nil, &core.ValidationError{Field: "kind", Reason: "must be payable or receivable"}
	}
	return e.store.ListPlans(ctx, ownerID, kind)
}

// ListInstallments returns the plan's installments with their ledger status.
func (e *Engine) ListInstallments(ctx context.Context, planID string) ([]core.InstallmentLedgerView, error) {
	if _, err := e.store.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	return e.store.ListPlanInstallments(ctx, planID)
}

// Refresh recomputes one plan on demand.
func (e *Engine) Refresh(ctx context.Context, planID string) (core.PlanAggregate, error) {
	return e.Recompute(ctx, planID)
}

// DeletePlan removes every ledger entry of the plan, sweeps its installments
// and finally the plan row. When the entries cannot be deleted nothing else
// is touched and the error is a *core.CascadeDeleteFailure listing the
// entries still present.
func (e *Engine) DeletePlan(ctx context.Context, planID string) error {
	if _, err := e.store.GetPlan(ctx, planID); err != nil {
		return err
	}
	insts, err := e.store.GetInstallmentsByPlan(ctx, planID)
	if err != nil {
		return fmt.Errorf("read installments of plan %s: %w", planID, err)
	}
	entryIDs := make([]string, 0, len(insts))
	for _, inst := range insts {
		entryIDs = append(entryIDs, inst.EntryID)
	}

	if err := e.store.DeleteEntries(ctx, entryIDs); err != nil {
		failure := &core.CascadeDeleteFailure{PlanID: planID, Remaining: e.remainingEntries(ctx, entryIDs), Err: err}
		e.logger.ErrorContext(ctx, "Plan delete aborted", "plan_id", planID, "remaining", len(failure.Remaining), "error", err)
		return failure
	}
	if err := e.store.DeleteInstallmentsByPlan(ctx, planID); err != nil {
		return fmt.Errorf("sweep installments of plan %s: %w", planID, err)
	}
	if err := e.store.DeletePlan(ctx, planID); err != nil {
		return fmt.Errorf("delete plan %s: %w", planID, err)
	}

	e.logger.InfoContext(ctx, "Plan deleted", "plan_id", planID, "entries", len(entryIDs))
	e.channel.Broadcast(invalidation.Event{Name: invalidation.PlanDeleted, PlanID: planID})
	return nil
}

// remainingEntries re-reads which of ids still exist. Entries whose state
// cannot be read are reported as remaining.
func (e *Engine) remainingEntries(ctx context.Context, ids []string) []string {
	var out []string
	for _, id := range ids {
		if _, err := e.store.GetEntry(ctx, id); errors.Is(err, core.ErrNotFound) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// DeleteResult reports what happened to the plan after an installment delete.
type DeleteResult struct {
	PlanID    string
	Aggregate *core.PlanAggregate
	Enqueued  bool
}

// DeleteInstallment deletes the installment's ledger entry; the installment
// row goes with it by cascade. With recompute the plan aggregate is refreshed
// now, otherwise the plan is queued for the next drain. A failed immediate
// recompute falls back to the queue. installment.deleted is broadcast either
// way so views drop the row before the aggregate catches up.
func (e *Engine) DeleteInstallment(ctx context.Context, installmentID string, recompute bool) (DeleteResult, error) {
	inst, err := e.store.GetInstallment(ctx, installmentID)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := e.store.DeleteEntries(ctx, []string{inst.EntryID}); err != nil {
		return DeleteResult{}, fmt.Errorf("delete ledger entry %s: %w", inst.EntryID, err)
	}
	e.logger.InfoContext(ctx, "Installment deleted", "installment_id", inst.ID, "plan_id", inst.PlanID, "entry_id", inst.EntryID)
	e.channel.Broadcast(invalidation.Event{Name: invalidation.InstallmentDeleted, PlanID: inst.PlanID, InstallmentID: inst.ID})

	res := DeleteResult{PlanID: inst.PlanID}
	if recompute {
		agg, err := e.Recompute(ctx, inst.PlanID)
		if err == nil {
			res.Aggregate = &agg
			return res, nil
		}
		e.logger.WarnContext(ctx, "Recompute after installment delete failed", "plan_id", inst.PlanID, "error", err)
	}
	if err := e.enqueue(ctx, inst.PlanID); err == nil {
		res.Enqueued = true
	}
	return res, nil
}

// OwnedPlan returns the plan if ownerID owns it. Plans of other owners are
// reported as not found.
func (e *Engine) OwnedPlan(ctx context.Context, ownerID, planID string) (core.Plan, error) {
	plan, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return core.Plan{}, err
	}
	if plan.OwnerID != ownerID {
		return core.Plan{}, core.NewNotFound("plan", planID)
	}
	return plan, nil
}

// OwnedInstallment returns the installment if ownerID owns its plan.
func (e *Engine) OwnedInstallment(ctx context.Context, ownerID, installmentID string) (core.Installment, error) {
	inst, err := e.store.GetInstallment(ctx, installmentID)
	if err != nil {
		return core.Installment{}, err
	}
	plan, err := e.store.GetPlan(ctx, inst.PlanID)
	if err != nil {
		return core.Installment{}, err
	}
	if plan.OwnerID != ownerID {
		return core.Installment{}, core.NewNotFound("installment", installmentID)
	}
	return inst, nil
}

// OwnedEntry returns the ledger entry if ownerID owns it.
func (e *Engine) OwnedEntry(ctx context.Context, ownerID, entryID string) (core.LedgerEntry, error) {
	entry, err := e.store.GetEntry(ctx, entryID)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	if entry.OwnerID != ownerID {
		return core.LedgerEntry{}, core.NewNotFound("ledger entry", entryID)
	}
	return entry, nil
}
