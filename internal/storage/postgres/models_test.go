package postgres

import (
	"testing"
	"time"

	"planledger/internal/core"
)

func TestModelConversions(t *testing.T) {
	cat := "cat-1"
	p := planModel{
		ID:                   "p1",
		OwnerID:              "u1",
		Kind:                 "receivable",
		TotalCents:           1000,
		PaidCents:            400,
		RemainingCents:       600,
		InstallmentCount:     5,
		PaidInstallmentCount: 2,
		Status:               "overdue",
		CategoryID:           &cat,
		FirstDueDate:         time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}.toCore()
	if p.Kind != core.Receivable || p.Status != core.PlanOverdue || p.CategoryID != "cat-1" {
		t.Fatalf("plan = %+v", p)
	}
	if p.FirstDueDate.String() != "2024-03-31" || p.Remaining.Cents != 600 || p.PaidCount != 2 {
		t.Fatalf("plan = %+v", p)
	}

	e := entryModel{ID: "e1", EntryType: "income", Status: "received", AmountCents: 200}.toCore()
	if e.Type != core.EntryIncome || e.Status != core.LedgerReceived || e.CategoryID != "" {
		t.Fatalf("entry = %+v", e)
	}
}

func TestOptional(t *testing.T) {
	if optional("") != nil {
		t.Fatal("empty string should map to NULL")
	}
	if v := optional("x"); v == nil || *v != "x" {
		t.Fatalf("optional(x) = %v", v)
	}
}
