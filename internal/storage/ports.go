package storage

import (
	"context"

	"planledger/internal/core"
)

// Ports implemented by every backend (sqlite, postgres, memory).
type (
	LedgerStore interface {
		CreateEntry(ctx context.Context, d core.LedgerEntryDraft) (id string, err error)
		UpdateEntryStatus(ctx context.Context, id string, status core.LedgerStatus) error
		// DeleteEntries removes the entries as a set. Installments referencing
		// them are removed by the store's cascade.
		DeleteEntries(ctx context.Context, ids []string) error
		GetEntry(ctx context.Context, id string) (core.LedgerEntry, error)
	}

	InstallmentRepository interface {
		CreateInstallment(ctx context.Context, d core.InstallmentDraft) (id string, err error)
		GetInstallment(ctx context.Context, id string) (core.Installment, error)
		GetInstallmentByEntry(ctx context.Context, entryID string) (core.Installment, error)
		// GetInstallmentsByPlan returns the plan's installments ordered by sequence.
		GetInstallmentsByPlan(ctx context.Context, planID string) ([]core.Installment, error)
		// ListPlanInstallments joins every installment with its ledger entry's
		// current status, ordered by sequence.
		ListPlanInstallments(ctx context.Context, planID string) ([]core.InstallmentLedgerView, error)
		UpdateInstallmentStatus(ctx context.Context, id string, status core.InstallmentStatus) error
		DeleteInstallmentsByPlan(ctx context.Context, planID string) error
	}

	PlanRepository interface {
		CreatePlan(ctx context.Context, d core.PlanDraft) (id string, err error)
		UpdatePlanAggregate(ctx context.Context, id string, agg core.PlanAggregate) error
		GetPlan(ctx context.Context, id string) (core.Plan, error)
		ListPlans(ctx context.Context, ownerID string, kind core.PlanKind) ([]core.Plan, error)
		DeletePlan(ctx context.Context, id string) error
	}

	// Store bundles the three repositories of a single backend.
	Store interface {
		LedgerStore
		InstallmentRepository
		PlanRepository
		Close() error
	}
)
