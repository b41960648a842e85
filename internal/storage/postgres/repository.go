package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"planledger/internal/core"
	"planledger/internal/storage"
)

// Repository is the hosted-database backend. Schema is kept by AutoMigrate,
// installment foreign keys cascade from plans and ledger entries.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ storage.Store = (*Repository)(nil)

func Open(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := &Repository{db: db, now: time.Now}
	if err := repo.migrate(); err != nil {
		return nil, err
	}
	slog.Info("Postgres repository ready")
	return repo, nil
}

func (r *Repository) migrate() error {
	// Parents first so the installment constraints resolve.
	if err := r.db.AutoMigrate(&planModel{}, &entryModel{}, &installmentModel{}, &pendingModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repository) CreatePlan(ctx context.Context, d core.PlanDraft) (string, error) {
	m := planModel{
		ID:               uuid.NewString(),
		OwnerID:          d.OwnerID,
		Kind:             string(d.Kind),
		Description:      d.Description,
		Counterparty:     d.Counterparty,
		CategoryID:       optional(d.CategoryID),
		TotalCents:       d.Total.Cents,
		RemainingCents:   d.Total.Cents,
		InstallmentCount: d.InstallmentCount,
		Status:           string(core.PlanPending),
		FirstDueDate:     d.FirstDueDate.Time,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return "", fmt.Errorf("create plan: %w", err)
	}
	slog.InfoContext(ctx, "Plan saved to Postgres", "id", m.ID, "kind", m.Kind, "installments", m.InstallmentCount)
	return m.ID, nil
}

func (r *Repository) GetPlan(ctx context.Context, id string) (core.Plan, error) {
	var m planModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Plan{}, core.NewNotFound("plan", id)
	}
	if err != nil {
		return core.Plan{}, fmt.Errorf("get plan %s: %w", id, err)
	}
	return m.toCore(), nil
}

func (r *Repository) ListPlans(ctx context.Context, ownerID string, kind core.PlanKind) ([]core.Plan, error) {
	var rows []planModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ?", ownerID, string(kind)).
		Order("first_due_date, created_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	plans := make([]core.Plan, 0, len(rows))
	for _, m := range rows {
		plans = append(plans, m.toCore())
	}
	return plans, nil
}

func (r *Repository) UpdatePlanAggregate(ctx context.Context, id string, agg core.PlanAggregate) error {
	res := r.db.WithContext(ctx).Model(&planModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_cents":            agg.Total.Cents,
		"paid_cents":             agg.Paid.Cents,
		"remaining_cents":        agg.Remaining.Cents,
		"installment_count":      agg.InstallmentCount,
		"paid_installment_count": agg.PaidCount,
		"status":                 string(agg.Status),
		"updated_at":             r.now().UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("update plan aggregate: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.NewNotFound("plan", id)
	}
	return nil
}

func (r *Repository) DeletePlan(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&planModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete plan: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.NewNotFound("plan", id)
	}
	return nil
}

func (r *Repository) CreateEntry(ctx context.Context, d core.LedgerEntryDraft) (string, error) {
	m := entryModel{
		ID:          uuid.NewString(),
		OwnerID:     d.OwnerID,
		EntryType:   string(d.Type),
		Description: d.Description,
		AmountCents: d.Value.Cents,
		EntryDate:   d.Date.Time,
		CategoryID:  optional(d.CategoryID),
		Status:      string(d.Status),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return "", fmt.Errorf("create ledger entry: %w", err)
	}
	return m.ID, nil
}

func (r *Repository) GetEntry(ctx context.Context, id string) (core.LedgerEntry, error) {
	var m entryModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.LedgerEntry{}, core.NewNotFound("ledger entry", id)
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get ledger entry %s: %w", id, err)
	}
	return m.toCore(), nil
}

func (r *Repository) UpdateEntryStatus(ctx context.Context, id string, status core.LedgerStatus) error {
	res := r.db.WithContext(ctx).Model(&entryModel{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return fmt.Errorf("update ledger entry status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.NewNotFound("ledger entry", id)
	}
	return nil
}

func (r *Repository) DeleteEntries(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&entryModel{}).Error; err != nil {
		return fmt.Errorf("delete ledger entries: %w", err)
	}
	return nil
}

func (r *Repository) CreateInstallment(ctx context.Context, d core.InstallmentDraft) (string, error) {
	m := installmentModel{
		ID:         uuid.NewString(),
		PlanID:     d.PlanID,
		EntryID:    d.EntryID,
		Sequence:   d.Sequence,
		DueDate:    d.DueDate.Time,
		ShareCents: d.Share.Cents,
		Status:     string(d.Status),
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		return "", fmt.Errorf("create installment: %w", err)
	}
	return m.ID, nil
}

func (r *Repository) GetInstallment(ctx context.Context, id string) (core.Installment, error) {
	var m installmentModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Installment{}, core.NewNotFound("installment", id)
	}
	if err != nil {
		return core.Installment{}, fmt.Errorf("get installment %s: %w", id, err)
	}
	return m.toCore(), nil
}

func (r *Repository) GetInstallmentByEntry(ctx context.Context, entryID string) (core.Installment, error) {
	var m installmentModel
	err := r.db.WithContext(ctx).First(&m, "entry_id = ?", entryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Installment{}, core.NewNotFound("installment for ledger entry", entryID)
	}
	if err != nil {
		return core.Installment{}, fmt.Errorf("get installment by entry %s: %w", entryID, err)
	}
	return m.toCore(), nil
}

func (r *Repository) GetInstallmentsByPlan(ctx context.Context, planID string) ([]core.Installment, error) {
	var rows []installmentModel
	if err := r.db.WithContext(ctx).Where("plan_id = ?", planID).Order("sequence").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get installments by plan: %w", err)
	}
	items := make([]core.Installment, 0, len(rows))
	for _, m := range rows {
		items = append(items, m.toCore())
	}
	return items, nil
}

func (r *Repository) ListPlanInstallments(ctx context.Context, planID string) ([]core.InstallmentLedgerView, error) {
	var rows []installmentModel
	err := r.db.WithContext(ctx).
		Joins("Entry").
		Where("installments.plan_id = ?", planID).
		Order("installments.sequence").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list plan installments: %w", err)
	}
	views := make([]core.InstallmentLedgerView, 0, len(rows))
	for _, m := range rows {
		views = append(views, core.InstallmentLedgerView{
			Installment: m.toCore(),
			EntryStatus: core.LedgerStatus(m.Entry.Status),
		})
	}
	return views, nil
}

func (r *Repository) UpdateInstallmentStatus(ctx context.Context, id string, status core.InstallmentStatus) error {
	res := r.db.WithContext(ctx).Model(&installmentModel{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return fmt.Errorf("update installment status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.NewNotFound("installment", id)
	}
	return nil
}

func (r *Repository) DeleteInstallmentsByPlan(ctx context.Context, planID string) error {
	if err := r.db.WithContext(ctx).Where("plan_id = ?", planID).Delete(&installmentModel{}).Error; err != nil {
		return fmt.Errorf("delete installments by plan: %w", err)
	}
	return nil
}

func (r *Repository) EnqueuePendingRecompute(ctx context.Context, planID string) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "plan_id"}}, DoNothing: true}).
		Create(&pendingModel{PlanID: planID, EnqueuedAt: r.now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("enqueue pending recompute: %w", err)
	}
	return nil
}

func (r *Repository) DrainPendingRecompute(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []pendingModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Order("enqueued_at, plan_id").Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			ids = append(ids, row.PlanID)
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Where("plan_id IN ?", ids).Delete(&pendingModel{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("drain pending recompute: %w", err)
	}
	return ids, nil
}
