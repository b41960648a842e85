package core

import "testing"

func TestStatusMappingRoundTrip(t *testing.T) {
	for _, kind := range []PlanKind{Payable, Receivable} {
		for _, st := range InstallmentStatuses() {
			ledger, err := ToLedger(kind, st)
			if err != nil {
				t.Fatalf("%s/%s: %v", kind, st, err)
			}
			back, err := FromLedger(kind, ledger)
			if err != nil {
				t.Fatalf("%s/%s -> %s: %v", kind, st, ledger, err)
			}
			if back != st {
				t.Fatalf("%s/%s round-tripped to %s", kind, st, back)
			}
		}
	}
}

func TestStatusMappingTable(t *testing.T) {
	cases := []struct {
		kind   PlanKind
		st     InstallmentStatus
		ledger LedgerStatus
	}{
		{Payable, InstallmentPending, LedgerPending},
		{Payable, InstallmentPaid, LedgerPaid},
		{Payable, InstallmentOverdue, LedgerOverdue},
		{Receivable, InstallmentPending, LedgerPending},
		{Receivable, InstallmentPaid, LedgerReceived},
		{Receivable, InstallmentOverdue, LedgerOverdue},
	}
	for _, tc := range cases {
		got, err := ToLedger(tc.kind, tc.st)
		if err != nil || got != tc.ledger {
			t.Fatalf("ToLedger(%s, %s) = %s, %v; want %s", tc.kind, tc.st, got, err, tc.ledger)
		}
	}
}

func TestStatusMappingRejectsForeignStatus(t *testing.T) {
	if _, err := FromLedger(Payable, LedgerReceived); err == nil {
		t.Fatalf("received must not map for payables")
	}
	if _, err := FromLedger(Receivable, LedgerPaid); err == nil {
		t.Fatalf("paid must not map for receivables")
	}
	if _, err := ToLedger(Payable, "cancelled"); err == nil {
		t.Fatalf("unknown installment status must fail")
	}
	if _, err := ToLedger("loan", InstallmentPaid); err == nil {
		t.Fatalf("unknown plan kind must fail")
	}
}

func TestParseStatuses(t *testing.T) {
	if _, err := ParseInstallmentStatus("paid"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if _, err := ParseInstallmentStatus("received"); err == nil {
		t.Fatalf("received is not an installment status")
	}
	if _, err := ParseLedgerStatus("received"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if _, err := ParseLedgerStatus("void"); err == nil {
		t.Fatalf("expected error")
	}
}
