package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"planledger/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "planledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedPlan(t *testing.T, repo *SQLiteRepository, n int) (string, []string) {
	t.Helper()
	ctx := context.Background()
	planID, err := repo.CreatePlan(ctx, core.PlanDraft{
		OwnerID:          "u1",
		Kind:             core.Payable,
		Description:      "Laptop",
		Counterparty:     "Shop",
		Total:            core.Money{Cents: int64(n) * 1000},
		InstallmentCount: n,
		FirstDueDate:     core.NewDate(2024, 1, 31),
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	var entries []string
	for i := 1; i <= n; i++ {
		due := core.NewDate(2024, 1, 31).AddMonths(i - 1)
		entryID, err := repo.CreateEntry(ctx, core.LedgerEntryDraft{
			OwnerID:     "u1",
			Type:        core.EntryExpense,
			Description: "Laptop",
			Value:       core.Money{Cents: 1000},
			Date:        due,
			Status:      core.LedgerPending,
		})
		if err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
		if _, err := repo.CreateInstallment(ctx, core.InstallmentDraft{
			PlanID:   planID,
			EntryID:  entryID,
			Sequence: i,
			DueDate:  due,
			Share:    core.Money{Cents: 1000},
			Status:   core.InstallmentPending,
		}); err != nil {
			t.Fatalf("CreateInstallment: %v", err)
		}
		entries = append(entries, entryID)
	}
	return planID, entries
}

func TestSQLiteRepositoryPlanRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	planID, _ := seedPlan(t, repo, 3)

	p, err := repo.GetPlan(ctx, planID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if p.Kind != core.Payable || p.Total.Cents != 3000 || p.Remaining.Cents != 3000 || p.Status != core.PlanPending {
		t.Fatalf("unexpected plan: %+v", p)
	}
	if p.FirstDueDate.String() != "2024-01-31" {
		t.Fatalf("first due date = %s", p.FirstDueDate)
	}

	items, err := repo.GetInstallmentsByPlan(ctx, planID)
	if err != nil {
		t.Fatalf("GetInstallmentsByPlan: %v", err)
	}
	want := []string{"2024-01-31", "2024-02-29", "2024-03-31"}
	if len(items) != len(want) {
		t.Fatalf("got %d installments, want %d", len(items), len(want))
	}
	for i, inst := range items {
		if inst.Sequence != i+1 || inst.DueDate.String() != want[i] {
			t.Errorf("installment %d: seq=%d due=%s", i, inst.Sequence, inst.DueDate)
		}
	}

	plans, err := repo.ListPlans(ctx, "u1", core.Payable)
	if err != nil || len(plans) != 1 {
		t.Fatalf("ListPlans: %v %v", plans, err)
	}
	plans, err = repo.ListPlans(ctx, "u1", core.Receivable)
	if err != nil || len(plans) != 0 {
		t.Fatalf("ListPlans receivable: %v %v", plans, err)
	}
}

func TestSQLiteRepositoryNotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetPlan(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetPlan err = %v", err)
	}
	if _, err := repo.GetInstallment(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetInstallment err = %v", err)
	}
	if err := repo.UpdateEntryStatus(ctx, "missing", core.LedgerPaid); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateEntryStatus err = %v", err)
	}
	if err := repo.UpdateInstallmentStatus(ctx, "missing", core.InstallmentPaid); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateInstallmentStatus err = %v", err)
	}
	if err := repo.DeletePlan(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeletePlan err = %v", err)
	}
}

func TestSQLiteRepositoryStatusJoin(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	planID, entries := seedPlan(t, repo, 2)

	if err := repo.UpdateEntryStatus(ctx, entries[0], core.LedgerPaid); err != nil {
		t.Fatalf("UpdateEntryStatus: %v", err)
	}
	views, err := repo.ListPlanInstallments(ctx, planID)
	if err != nil {
		t.Fatalf("ListPlanInstallments: %v", err)
	}
	if views[0].EntryStatus != core.LedgerPaid || views[0].Status != core.InstallmentPending {
		t.Fatalf("view[0] = %+v", views[0])
	}
	if views[1].EntryStatus != core.LedgerPending {
		t.Fatalf("view[1] = %+v", views[1])
	}
}

func TestSQLiteRepositoryEntryDeleteCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	planID, entries := seedPlan(t, repo, 3)

	if err := repo.DeleteEntries(ctx, entries[:1]); err != nil {
		t.Fatalf("DeleteEntries: %v", err)
	}
	items, err := repo.GetInstallmentsByPlan(ctx, planID)
	if err != nil {
		t.Fatalf("GetInstallmentsByPlan: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("installments after entry delete = %d, want 2", len(items))
	}
	if _, err := repo.GetInstallmentByEntry(ctx, entries[0]); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetInstallmentByEntry err = %v", err)
	}

	if err := repo.DeleteEntries(ctx, entries[1:]); err != nil {
		t.Fatalf("DeleteEntries: %v", err)
	}
	if err := repo.DeletePlan(ctx, planID); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}
	if _, err := repo.GetPlan(ctx, planID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetPlan after delete err = %v", err)
	}
}

func TestSQLiteRepositoryUpdateAggregate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	planID, _ := seedPlan(t, repo, 2)

	agg := core.PlanAggregate{
		PlanID:           planID,
		Total:            core.Money{Cents: 2000},
		Paid:             core.Money{Cents: 1000},
		Remaining:        core.Money{Cents: 1000},
		InstallmentCount: 2,
		PaidCount:        1,
		Status:           core.PlanOverdue,
	}
	if err := repo.UpdatePlanAggregate(ctx, planID, agg); err != nil {
		t.Fatalf("UpdatePlanAggregate: %v", err)
	}
	p, err := repo.GetPlan(ctx, planID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if p.Paid.Cents != 1000 || p.PaidCount != 1 || p.Status != core.PlanOverdue {
		t.Fatalf("aggregate not stored: %+v", p)
	}
}

func TestSQLiteRepositoryPendingRecompute(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p1"} {
		if err := repo.EnqueuePendingRecompute(ctx, id); err != nil {
			t.Fatalf("EnqueuePendingRecompute(%s): %v", id, err)
		}
	}
	ids, err := repo.DrainPendingRecompute(ctx)
	if err != nil {
		t.Fatalf("DrainPendingRecompute: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("drained %v, want two distinct ids", ids)
	}
	ids, err = repo.DrainPendingRecompute(ctx)
	if err != nil || len(ids) != 0 {
		t.Fatalf("second drain = %v, %v", ids, err)
	}
}
