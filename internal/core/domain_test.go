package core

import (
	"errors"
	"testing"
)

func TestDateAddMonths(t *testing.T) {
	cases := []struct {
		from Date
		n    int
		want Date
	}{
		{NewDate(2024, 1, 15), 0, NewDate(2024, 1, 15)},
		{NewDate(2024, 1, 15), 11, NewDate(2024, 12, 15)},
		{NewDate(2024, 1, 31), 1, NewDate(2024, 2, 29)}, // leap year clamp
		{NewDate(2023, 1, 31), 1, NewDate(2023, 2, 28)},
		{NewDate(2024, 1, 31), 3, NewDate(2024, 4, 30)},
		{NewDate(2024, 1, 31), 2, NewDate(2024, 3, 31)}, // anchored, not chained
		{NewDate(2024, 11, 30), 3, NewDate(2025, 2, 28)},
		{NewDate(2024, 3, 15), -3, NewDate(2023, 12, 15)},
		{NewDate(2024, 1, 10), -13, NewDate(2022, 12, 10)},
	}
	for i, tc := range cases {
		got := tc.from.AddMonths(tc.n)
		if !got.Equal(tc.want.Time) {
			t.Fatalf("case %d: %s + %d months = %s, want %s", i, tc.from, tc.n, got, tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("got %s", d)
	}
	if _, err := ParseDate("29/02/2024"); err == nil {
		t.Fatalf("expected error for wrong layout")
	}
}

func TestPlanDraftValidate(t *testing.T) {
	good := PlanDraft{
		OwnerID:          "u1",
		Kind:             Payable,
		Description:      "Laptop",
		Counterparty:     "Store",
		Total:            Money{Cents: 120000},
		InstallmentCount: 12,
		FirstDueDate:     NewDate(2024, 1, 15),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	longest := good
	longest.InstallmentCount = MaxInstallments
	if err := longest.Validate(); err != nil {
		t.Fatalf("%d installments should be allowed, got %v", MaxInstallments, err)
	}

	zeroTotal := good
	zeroTotal.Total = Money{}
	if err := zeroTotal.Validate(); err != nil {
		t.Fatalf("zero total should be allowed, got %v", err)
	}

	mutate := []func(d *PlanDraft){
		func(d *PlanDraft) { d.Kind = "loan" },
		func(d *PlanDraft) { d.OwnerID = " " },
		func(d *PlanDraft) { d.Description = "" },
		func(d *PlanDraft) { d.Counterparty = "" },
		func(d *PlanDraft) { d.Total = Money{Cents: -1} },
		func(d *PlanDraft) { d.InstallmentCount = 0 },
		func(d *PlanDraft) { d.InstallmentCount = MaxInstallments + 1 },
		func(d *PlanDraft) { d.InstallmentCount = 2000000000 },
		func(d *PlanDraft) { d.FirstDueDate = Date{} },
	}
	for i, m := range mutate {
		d := good
		m(&d)
		err := d.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
	}
}

func TestPlanKindEntryType(t *testing.T) {
	if Payable.EntryType() != EntryExpense {
		t.Fatalf("payable should book expenses")
	}
	if Receivable.EntryType() != EntryIncome {
		t.Fatalf("receivable should book income")
	}
}

func TestNotFoundIs(t *testing.T) {
	err := error(NewNotFound("plan", "p1"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("NotFoundError should match ErrNotFound")
	}
	if err.Error() != "plan p1 not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
