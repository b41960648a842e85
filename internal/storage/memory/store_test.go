package memory

import (
	"context"
	"errors"
	"testing"

	"planledger/internal/core"
)

func TestMemoryStoreCascades(t *testing.T) {
	ctx := context.Background()
	s := New()

	planID, err := s.CreatePlan(ctx, core.PlanDraft{
		OwnerID:          "u1",
		Kind:             core.Receivable,
		Description:      "Loan to Bob",
		Counterparty:     "Bob",
		Total:            core.Money{Cents: 300},
		InstallmentCount: 2,
		FirstDueDate:     core.NewDate(2024, 5, 1),
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	var entries []string
	for i := 1; i <= 2; i++ {
		e, err := s.CreateEntry(ctx, core.LedgerEntryDraft{OwnerID: "u1", Type: core.EntryIncome, Status: core.LedgerPending})
		if err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
		if _, err := s.CreateInstallment(ctx, core.InstallmentDraft{PlanID: planID, EntryID: e, Sequence: 3 - i}); err != nil {
			t.Fatalf("CreateInstallment: %v", err)
		}
		entries = append(entries, e)
	}

	items, _ := s.GetInstallmentsByPlan(ctx, planID)
	if len(items) != 2 || items[0].Sequence != 1 || items[1].Sequence != 2 {
		t.Fatalf("installments not ordered by sequence: %+v", items)
	}

	if err := s.DeleteEntries(ctx, entries[:1]); err != nil {
		t.Fatalf("DeleteEntries: %v", err)
	}
	if _, err := s.GetInstallmentByEntry(ctx, entries[0]); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("installment survived its entry: %v", err)
	}

	if err := s.DeletePlan(ctx, planID); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}
	items, _ = s.GetInstallmentsByPlan(ctx, planID)
	if len(items) != 0 {
		t.Fatalf("installments survived plan delete: %+v", items)
	}
	if err := s.DeletePlan(ctx, planID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second DeletePlan err = %v", err)
	}
}

func TestMemoryStoreCreateInstallmentRequiresParents(t *testing.T) {
	s := New()
	_, err := s.CreateInstallment(context.Background(), core.InstallmentDraft{PlanID: "nope", EntryID: "nope"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestMemoryStorePendingQueue(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"a", "b", "a", "c"} {
		_ = s.EnqueuePendingRecompute(ctx, id)
	}
	ids, _ := s.DrainPendingRecompute(ctx)
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("drain = %v", ids)
	}
	ids, _ = s.DrainPendingRecompute(ctx)
	if len(ids) != 0 {
		t.Fatalf("second drain = %v", ids)
	}
}
