package postgres

import (
	"time"

	"planledger/internal/core"
)

type planModel struct {
	ID                   string    `gorm:"primaryKey;type:uuid"`
	OwnerID              string    `gorm:"not null;index:idx_plans_owner_kind"`
	Kind                 string    `gorm:"not null;index:idx_plans_owner_kind"`
	Description          string    `gorm:"not null"`
	Counterparty         string    `gorm:"not null"`
	CategoryID           *string
	TotalCents           int64     `gorm:"not null"`
	PaidCents            int64     `gorm:"not null;default:0"`
	RemainingCents       int64     `gorm:"not null"`
	InstallmentCount     int       `gorm:"not null"`
	PaidInstallmentCount int       `gorm:"not null;default:0"`
	Status               string    `gorm:"not null;default:pending"`
	FirstDueDate         time.Time `gorm:"type:date;not null"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (planModel) TableName() string { return "plans" }

type entryModel struct {
	ID          string    `gorm:"primaryKey;type:uuid"`
	OwnerID     string    `gorm:"not null;index"`
	EntryType   string    `gorm:"not null"`
	Description string    `gorm:"not null"`
	AmountCents int64     `gorm:"not null"`
	EntryDate   time.Time `gorm:"type:date;not null"`
	CategoryID  *string
	Status      string `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (entryModel) TableName() string { return "ledger_entries" }

// installmentModel belongs to both its plan and its ledger entry; deleting
// either parent removes the row.
type installmentModel struct {
	ID         string     `gorm:"primaryKey;type:uuid"`
	PlanID     string     `gorm:"type:uuid;not null;uniqueIndex:idx_installments_plan_seq"`
	Plan       planModel  `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE;"`
	EntryID    string     `gorm:"type:uuid;not null;uniqueIndex"`
	Entry      entryModel `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE;"`
	Sequence   int        `gorm:"not null;uniqueIndex:idx_installments_plan_seq"`
	DueDate    time.Time  `gorm:"type:date;not null"`
	ShareCents int64      `gorm:"not null"`
	Status     string     `gorm:"not null"`
}

func (installmentModel) TableName() string { return "installments" }

type pendingModel struct {
	PlanID     string    `gorm:"primaryKey"`
	EnqueuedAt time.Time `gorm:"not null;index"`
}

func (pendingModel) TableName() string { return "pending_recompute" }

func (m planModel) toCore() core.Plan {
	return core.Plan{
		ID:               m.ID,
		OwnerID:          m.OwnerID,
		Kind:             core.PlanKind(m.Kind),
		Description:      m.Description,
		Counterparty:     m.Counterparty,
		CategoryID:       deref(m.CategoryID),
		Total:            core.Money{Cents: m.TotalCents},
		Paid:             core.Money{Cents: m.PaidCents},
		Remaining:        core.Money{Cents: m.RemainingCents},
		InstallmentCount: m.InstallmentCount,
		PaidCount:        m.PaidInstallmentCount,
		Status:           core.PlanStatus(m.Status),
		FirstDueDate:     core.DateOf(m.FirstDueDate),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func (m entryModel) toCore() core.LedgerEntry {
	return core.LedgerEntry{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Type:        core.EntryType(m.EntryType),
		Description: m.Description,
		Value:       core.Money{Cents: m.AmountCents},
		Date:        core.DateOf(m.EntryDate),
		CategoryID:  deref(m.CategoryID),
		Status:      core.LedgerStatus(m.Status),
	}
}

func (m installmentModel) toCore() core.Installment {
	return core.Installment{
		ID:       m.ID,
		PlanID:   m.PlanID,
		EntryID:  m.EntryID,
		Sequence: m.Sequence,
		DueDate:  core.DateOf(m.DueDate),
		Share:    core.Money{Cents: m.ShareCents},
		Status:   core.InstallmentStatus(m.Status),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
