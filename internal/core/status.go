package core

import "fmt"

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

const (
	LedgerPending  LedgerStatus = "pending"
	LedgerPaid     LedgerStatus = "paid"
	LedgerReceived LedgerStatus = "received"
	LedgerOverdue  LedgerStatus = "overdue"
)

type (
	InstallmentStatus string

	// LedgerStatus is the authoritative lifecycle state of a ledger entry.
	// Payables use paid, receivables use received.
	LedgerStatus string
)

// InstallmentStatuses lists every installment status in declaration order.
func InstallmentStatuses() []InstallmentStatus {
	return []InstallmentStatus{InstallmentPending, InstallmentPaid, InstallmentOverdue}
}

func ParseInstallmentStatus(s string) (InstallmentStatus, error) {
	st := InstallmentStatus(s)
	switch st {
	case InstallmentPending, InstallmentPaid, InstallmentOverdue:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown installment status %q", s)}
}

func ParseLedgerStatus(s string) (LedgerStatus, error) {
	st := LedgerStatus(s)
	switch st {
	case LedgerPending, LedgerPaid, LedgerReceived, LedgerOverdue:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown ledger status %q", s)}
}

// ToLedger maps an installment status onto the ledger status used by plans
// of the given kind.
func ToLedger(kind PlanKind, st InstallmentStatus) (LedgerStatus, error) {
	if !kind.Valid() {
		return "", &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown plan kind %q", kind)}
	}
	switch st {
	case InstallmentPending:
		return LedgerPending, nil
	case InstallmentPaid:
		if kind == Receivable {
			return LedgerReceived, nil
		}
		return LedgerPaid, nil
	case InstallmentOverdue:
		return LedgerOverdue, nil
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown installment status %q", st)}
}

// FromLedger is the inverse of ToLedger. A ledger status that does not belong
// to the plan kind (received on a payable, paid on a receivable) is rejected.
func FromLedger(kind PlanKind, st LedgerStatus) (InstallmentStatus, error) {
	if !kind.Valid() {
		return "", &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown plan kind %q", kind)}
	}
	switch st {
	case LedgerPending:
		return InstallmentPending, nil
	case LedgerPaid:
		if kind == Payable {
			return InstallmentPaid, nil
		}
	case LedgerReceived:
		if kind == Receivable {
			return InstallmentPaid, nil
		}
	case LedgerOverdue:
		return InstallmentOverdue, nil
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("ledger status %q is not valid for %s plans", st, kind)}
}
