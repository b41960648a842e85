package services

import (
	"context"
	"errors"
	"fmt"

	"planledger/internal/core"
	"planledger/internal/invalidation"
)

// SyncResult describes a completed status change. The status change itself
// succeeded; RecomputeErr and EnqueueErr report follow-up steps that did not.
type SyncResult struct {
	Installment  core.Installment
	PlanID       string
	EntryID      string
	EntryStatus  core.LedgerStatus
	Aggregate    *core.PlanAggregate
	RecomputeErr error
	EnqueueErr   error
}

// SetInstallmentStatus moves an installment to status and mirrors it onto the
// ledger entry. The installment is written first, then the ledger; a failure
// between the two comes back as *core.PartialWriteFailure. After both writes
// the plan is recomputed, queued for other views and the change broadcast.
func (e *Engine) SetInstallmentStatus(ctx context.Context, installmentID string, status core.InstallmentStatus) (SyncResult, error) {
	if _, err := core.ParseInstallmentStatus(string(status)); err != nil {
		return SyncResult{}, err
	}
	inst, err := e.store.GetInstallment(ctx, installmentID)
	if err != nil {
		return SyncResult{}, err
	}
	plan, err := e.store.GetPlan(ctx, inst.PlanID)
	if err != nil {
		return SyncResult{}, err
	}
	ledgerStatus, err := core.ToLedger(plan.Kind, status)
	if err != nil {
		return SyncResult{}, err
	}

	if err := e.store.UpdateInstallmentStatus(ctx, inst.ID, status); err != nil {
		return SyncResult{}, fmt.Errorf("update installment %s status: %w", inst.ID, err)
	}
	if err := e.store.UpdateEntryStatus(ctx, inst.EntryID, ledgerStatus); err != nil {
		e.logger.ErrorContext(ctx, "Ledger write failed after installment write",
			"installment_id", inst.ID, "entry_id", inst.EntryID, "status", status, "error", err)
		// Recomputation realigns the installment with the ledger later.
		_ = e.enqueue(ctx, plan.ID)
		return SyncResult{}, &core.PartialWriteFailure{
			InstallmentID:      inst.ID,
			EntryID:            inst.EntryID,
			InstallmentWritten: true,
			LedgerWritten:      false,
			Err:                err,
		}
	}

	inst.Status = status
	res := SyncResult{Installment: inst, PlanID: plan.ID, EntryID: inst.EntryID, EntryStatus: ledgerStatus}
	e.afterStatusChange(ctx, &res)
	return res, nil
}

// SetEntryStatus is the ledger-side form of SetInstallmentStatus: the entry
// is written first, then the installment projected from it. Entries that do
// not belong to a plan are updated alone.
func (e *Engine) SetEntryStatus(ctx context.Context, entryID string, status core.LedgerStatus) (SyncResult, error) {
	if _, err := core.ParseLedgerStatus(string(status)); err != nil {
		return SyncResult{}, err
	}
	entry, err := e.store.GetEntry(ctx, entryID)
	if err != nil {
		return SyncResult{}, err
	}

	inst, err := e.store.GetInstallmentByEntry(ctx, entry.ID)
	if errors.Is(err, core.ErrNotFound) {
		if err := validEntryStatus(entry.Type, status); err != nil {
			return SyncResult{}, err
		}
		if err := e.store.UpdateEntryStatus(ctx, entry.ID, status); err != nil {
			return SyncResult{}, fmt.Errorf("update ledger entry %s status: %w", entry.ID, err)
		}
		return SyncResult{EntryID: entry.ID, EntryStatus: status}, nil
	}
	if err != nil {
		return SyncResult{}, err
	}

	plan, err := e.store.GetPlan(ctx, inst.PlanID)
	if err != nil {
		return SyncResult{}, err
	}
	instStatus, err := core.FromLedger(plan.Kind, status)
	if err != nil {
		return SyncResult{}, err
	}

	if err := e.store.UpdateEntryStatus(ctx, entry.ID, status); err != nil {
		return SyncResult{}, fmt.Errorf("update ledger entry %s status: %w", entry.ID, err)
	}
	if err := e.store.UpdateInstallmentStatus(ctx, inst.ID, instStatus); err != nil {
		e.logger.ErrorContext(ctx, "Installment write failed after ledger write",
			"installment_id", inst.ID, "entry_id", entry.ID, "status", status, "error", err)
		_ = e.enqueue(ctx, plan.ID)
		return SyncResult{}, &core.PartialWriteFailure{
			InstallmentID:      inst.ID,
			EntryID:            entry.ID,
			InstallmentWritten: false,
			LedgerWritten:      true,
			Err:                err,
		}
	}

	inst.Status = instStatus
	res := SyncResult{Installment: inst, PlanID: plan.ID, EntryID: entry.ID, EntryStatus: status}
	e.afterStatusChange(ctx, &res)
	return res, nil
}

func (e *Engine) afterStatusChange(ctx context.Context, res *SyncResult) {
	agg, err := e.Recompute(ctx, res.PlanID)
	if err != nil {
		e.logger.ErrorContext(ctx, "Recompute after status change failed", "plan_id", res.PlanID, "error", err)
		res.RecomputeErr = err
	} else {
		res.Aggregate = &agg
	}

	res.EnqueueErr = e.enqueue(ctx, res.PlanID)

	e.channel.Broadcast(invalidation.Event{
		Name:          invalidation.InstallmentStatusChanged,
		PlanID:        res.PlanID,
		InstallmentID: res.Installment.ID,
		Status:        string(res.Installment.Status),
	})

	e.logger.InfoContext(ctx, "Installment status changed",
		"plan_id", res.PlanID,
		"installment_id", res.Installment.ID,
		"status", res.Installment.Status,
		"entry_status", res.EntryStatus)
}

// validEntryStatus rejects received on expenses and paid on income.
func validEntryStatus(t core.EntryType, st core.LedgerStatus) error {
	kind := core.Payable
	if t == core.EntryIncome {
		kind = core.Receivable
	}
	_, err := core.FromLedger(kind, st)
	return err
}
