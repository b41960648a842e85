package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Payable    PlanKind = "payable"
	Receivable PlanKind = "receivable"
)

const (
	EntryExpense EntryType = "expense"
	EntryIncome  EntryType = "income"
)

const (
	PlanPending PlanStatus = "pending"
	PlanOverdue PlanStatus = "overdue"
	PlanSettled PlanStatus = "settled"
)

const dateLayout = "2006-01-02"

// MaxInstallments caps the periods of one plan at fifty years of monthly
// payments. It also keeps a plan's entry ids within one SQL IN list.
const MaxInstallments = 600

type (
	PlanKind   string
	EntryType  string
	PlanStatus string

	// Date is a calendar day at UTC midnight.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Plan struct {
		ID               string
		OwnerID          string
		Kind             PlanKind
		Description      string
		Counterparty     string // creditor for payables, payer for receivables
		CategoryID       string
		Total            Money
		Paid             Money
		Remaining        Money
		InstallmentCount int
		PaidCount        int
		Status           PlanStatus
		FirstDueDate     Date
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}

	PlanDraft struct {
		OwnerID          string
		Kind             PlanKind
		Description      string
		Counterparty     string
		CategoryID       string
		Total            Money
		InstallmentCount int
		FirstDueDate     Date
	}

	Installment struct {
		ID       string
		PlanID   string
		EntryID  string
		Sequence int
		DueDate  Date
		Share    Money
		Status   InstallmentStatus
	}

	InstallmentDraft struct {
		PlanID   string
		EntryID  string
		Sequence int
		DueDate  Date
		Share    Money
		Status   InstallmentStatus
	}

	// InstallmentLedgerView is an installment joined with the current status
	// of its ledger entry.
	InstallmentLedgerView struct {
		Installment
		EntryStatus LedgerStatus
	}

	LedgerEntry struct {
		ID          string
		OwnerID     string
		Type        EntryType
		Description string
		Value       Money
		Date        Date
		CategoryID  string
		Status      LedgerStatus
	}

	LedgerEntryDraft struct {
		OwnerID     string
		Type        EntryType
		Description string
		Value       Money
		Date        Date
		CategoryID  string
		Status      LedgerStatus
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	return Date{Time: t}, nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// AddMonths advances d by n calendar months keeping the day of month. When the
// target month is shorter the day is clamped to its last day, so Jan 31 + 1
// month is Feb 28 (or Feb 29 in leap years).
func (d Date) AddMonths(n int) Date {
	y, m := d.Year(), d.Month()-1+n
	y += m / 12
	m %= 12
	if m < 0 {
		m += 12
		y--
	}
	lastDay := time.Date(y, time.Month(m+2), 0, 0, 0, 0, 0, time.UTC).Day()
	day := d.Day()
	if day > lastDay {
		day = lastDay
	}
	return NewDate(y, m+1, day)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "cannot be zero"}
	}
	return nil
}

func (k PlanKind) Valid() bool {
	switch k {
	case Payable, Receivable:
		return true
	}
	return false
}

// EntryType returns the ledger entry type backing installments of this kind.
func (k PlanKind) EntryType() EntryType {
	if k == Receivable {
		return EntryIncome
	}
	return EntryExpense
}

func (d PlanDraft) Validate() error {
	if !d.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "must be payable or receivable"}
	}
	if strings.TrimSpace(d.OwnerID) == "" {
		return &ValidationError{Field: "owner_id", Reason: "is required"}
	}
	if strings.TrimSpace(d.Description) == "" {
		return &ValidationError{Field: "description", Reason: "is required"}
	}
	if len(d.Description) > 200 {
		return &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	}
	if strings.TrimSpace(d.Counterparty) == "" {
		return &ValidationError{Field: "counterparty", Reason: "is required"}
	}
	if d.Total.Cents < 0 {
		return &ValidationError{Field: "total", Reason: "must not be negative"}
	}
	if d.InstallmentCount < 1 {
		return &ValidationError{Field: "installments", Reason: "must be at least 1"}
	}
	if d.InstallmentCount > MaxInstallments {
		return &ValidationError{Field: "installments", Reason: fmt.Sprintf("must be at most %d", MaxInstallments)}
	}
	if err := d.FirstDueDate.Validate(); err != nil {
		return &ValidationError{Field: "first_due_date", Reason: "cannot be zero"}
	}
	return nil
}
