package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"planledger/internal/core"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Cascades from ledger entries to installments depend on foreign_keys
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite repository ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(timestampLayout)
}

// CreatePlan inserts a plan with zero paid value; aggregates are filled in by
// the first recomputation.
func (r *SQLiteRepository) CreatePlan(ctx context.Context, d core.PlanDraft) (string, error) {
	now := r.stamp()
	row := PlanRow{
		ID:               uuid.NewString(),
		OwnerID:          d.OwnerID,
		Kind:             string(d.Kind),
		Description:      d.Description,
		Counterparty:     d.Counterparty,
		CategoryID:       nullString(d.CategoryID),
		TotalCents:       d.Total.Cents,
		RemainingCents:   d.Total.Cents,
		InstallmentCount: int64(d.InstallmentCount),
		Status:           string(core.PlanPending),
		FirstDueDate:     d.FirstDueDate.String(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := r.queries.InsertPlan(ctx, row); err != nil {
		return "", fmt.Errorf("create plan: %w", err)
	}

	slog.InfoContext(ctx, "Plan saved to SQLite",
		"id", row.ID,
		"kind", row.Kind,
		"total_cents", row.TotalCents,
		"installments", row.InstallmentCount)

	return row.ID, nil
}

func (r *SQLiteRepository) GetPlan(ctx context.Context, id string) (core.Plan, error) {
	row, err := r.queries.GetPlan(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Plan{}, core.NewNotFound("plan", id)
	}
	if err != nil {
		return core.Plan{}, fmt.Errorf("get plan %s: %w", id, err)
	}
	return planFromRow(row)
}

func (r *SQLiteRepository) ListPlans(ctx context.Context, ownerID string, kind core.PlanKind) ([]core.Plan, error) {
	rows, err := r.queries.ListPlans(ctx, ownerID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	plans := make([]core.Plan, 0, len(rows))
	for _, row := range rows {
		p, err := planFromRow(row)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (r *SQLiteRepository) UpdatePlanAggregate(ctx context.Context, id string, agg core.PlanAggregate) error {
	n, err := r.queries.UpdatePlanAggregate(ctx, UpdatePlanAggregateParams{
		TotalCents:           agg.Total.Cents,
		PaidCents:            agg.Paid.Cents,
		RemainingCents:       agg.Remaining.Cents,
		InstallmentCount:     int64(agg.InstallmentCount),
		PaidInstallmentCount: int64(agg.PaidCount),
		Status:               string(agg.Status),
		UpdatedAt:            r.stamp(),
		ID:                   id,
	})
	if err != nil {
		return fmt.Errorf("update plan aggregate: %w", err)
	}
	if n == 0 {
		return core.NewNotFound("plan", id)
	}
	return nil
}

func (r *SQLiteRepository) DeletePlan(ctx context.Context, id string) error {
	n, err := r.queries.DeletePlan(ctx, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if n == 0 {
		return core.NewNotFound("plan", id)
	}
	slog.InfoContext(ctx, "Plan deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) CreateEntry(ctx context.Context, d core.LedgerEntryDraft) (string, error) {
	row := EntryRow{
		ID:          uuid.NewString(),
		OwnerID:     d.OwnerID,
		EntryType:   string(d.Type),
		Description: d.Description,
		AmountCents: d.Value.Cents,
		EntryDate:   d.Date.String(),
		CategoryID:  nullString(d.CategoryID),
		Status:      string(d.Status),
	}
	if err := r.queries.InsertEntry(ctx, row, r.stamp()); err != nil {
		return "", fmt.Errorf("create ledger entry: %w", err)
	}
	return row.ID, nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id string) (core.LedgerEntry, error) {
	row, err := r.queries.GetEntry(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, core.NewNotFound("ledger entry", id)
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get ledger entry %s: %w", id, err)
	}
	date, err := core.ParseDate(row.EntryDate)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("ledger entry %s date %q: %w", id, row.EntryDate, err)
	}
	return core.LedgerEntry{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Type:        core.EntryType(row.EntryType),
		Description: row.Description,
		Value:       core.Money{Cents: row.AmountCents},
		Date:        date,
		CategoryID:  row.CategoryID.String,
		Status:      core.LedgerStatus(row.Status),
	}, nil
}

func (r *SQLiteRepository) UpdateEntryStatus(ctx context.Context, id string, status core.LedgerStatus) error {
	n, err := r.queries.UpdateEntryStatus(ctx, id, string(status), r.stamp())
	if err != nil {
		return fmt.Errorf("update ledger entry status: %w", err)
	}
	if n == 0 {
		return core.NewNotFound("ledger entry", id)
	}
	return nil
}

func (r *SQLiteRepository) DeleteEntries(ctx context.Context, ids []string) error {
	n, err := r.queries.DeleteEntries(ctx, ids)
	if err != nil {
		return fmt.Errorf("delete ledger entries: %w", err)
	}
	slog.InfoContext(ctx, "Ledger entries deleted from SQLite", "requested", len(ids), "deleted", n)
	return nil
}

func (r *SQLiteRepository) CreateInstallment(ctx context.Context, d core.InstallmentDraft) (string, error) {
	row := InstallmentRow{
		ID:         uuid.NewString(),
		PlanID:     d.PlanID,
		EntryID:    d.EntryID,
		Sequence:   int64(d.Sequence),
		DueDate:    d.DueDate.String(),
		ShareCents: d.Share.Cents,
		Status:     string(d.Status),
	}
	if err := r.queries.InsertInstallment(ctx, row); err != nil {
		return "", fmt.Errorf("create installment: %w", err)
	}
	return row.ID, nil
}

func (r *SQLiteRepository) GetInstallment(ctx context.Context, id string) (core.Installment, error) {
	row, err := r.queries.GetInstallment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Installment{}, core.NewNotFound("installment", id)
	}
	if err != nil {
		return core.Installment{}, fmt.Errorf("get installment %s: %w", id, err)
	}
	return installmentFromRow(row)
}

func (r *SQLiteRepository) GetInstallmentByEntry(ctx context.Context, entryID string) (core.Installment, error) {
	row, err := r.queries.GetInstallmentByEntry(ctx, entryID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Installment{}, core.NewNotFound("installment for ledger entry", entryID)
	}
	if err != nil {
		return core.Installment{}, fmt.Errorf("get installment by entry %s: %w", entryID, err)
	}
	return installmentFromRow(row)
}

func (r *SQLiteRepository) GetInstallmentsByPlan(ctx context.Context, planID string) ([]core.Installment, error) {
	rows, err := r.queries.GetInstallmentsByPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("get installments by plan: %w", err)
	}
	items := make([]core.Installment, 0, len(rows))
	for _, row := range rows {
		inst, err := installmentFromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, inst)
	}
	return items, nil
}

func (r *SQLiteRepository) ListPlanInstallments(ctx context.Context, planID string) ([]core.InstallmentLedgerView, error) {
	rows, err := r.queries.ListPlanInstallments(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("list plan installments: %w", err)
	}
	views := make([]core.InstallmentLedgerView, 0, len(rows))
	for _, row := range rows {
		inst, err := installmentFromRow(row.InstallmentRow)
		if err != nil {
			return nil, err
		}
		views = append(views, core.InstallmentLedgerView{
			Installment: inst,
			EntryStatus: core.LedgerStatus(row.EntryStatus),
		})
	}
	return views, nil
}

func (r *SQLiteRepository) UpdateInstallmentStatus(ctx context.Context, id string, status core.InstallmentStatus) error {
	n, err := r.queries.UpdateInstallmentStatus(ctx, id, string(status))
	if err != nil {
		return fmt.Errorf("update installment status: %w", err)
	}
	if n == 0 {
		return core.NewNotFound("installment", id)
	}
	return nil
}

func (r *SQLiteRepository) DeleteInstallmentsByPlan(ctx context.Context, planID string) error {
	if err := r.queries.DeleteInstallmentsByPlan(ctx, planID); err != nil {
		return fmt.Errorf("delete installments by plan: %w", err)
	}
	return nil
}

// EnqueuePendingRecompute records planID in the durable pending table.
// Re-enqueueing an id already present is a no-op.
func (r *SQLiteRepository) EnqueuePendingRecompute(ctx context.Context, planID string) error {
	if err := r.queries.EnqueuePendingRecompute(ctx, planID, r.stamp()); err != nil {
		return fmt.Errorf("enqueue pending recompute: %w", err)
	}
	return nil
}

// DrainPendingRecompute returns every queued plan id and removes them in one
// transaction.
func (r *SQLiteRepository) DrainPendingRecompute(ctx context.Context) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin drain: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	ids, err := q.ListPendingRecompute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending recompute: %w", err)
	}
	if err := q.DeletePendingRecompute(ctx, ids); err != nil {
		return nil, fmt.Errorf("clear pending recompute: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit drain: %w", err)
	}
	return ids, nil
}

func planFromRow(row PlanRow) (core.Plan, error) {
	first, err := core.ParseDate(row.FirstDueDate)
	if err != nil {
		return core.Plan{}, fmt.Errorf("plan %s first due date %q: %w", row.ID, row.FirstDueDate, err)
	}
	created, _ := time.Parse(timestampLayout, row.CreatedAt)
	updated, _ := time.Parse(timestampLayout, row.UpdatedAt)
	return core.Plan{
		ID:               row.ID,
		OwnerID:          row.OwnerID,
		Kind:             core.PlanKind(row.Kind),
		Description:      row.Description,
		Counterparty:     row.Counterparty,
		CategoryID:       row.CategoryID.String,
		Total:            core.Money{Cents: row.TotalCents},
		Paid:             core.Money{Cents: row.PaidCents},
		Remaining:        core.Money{Cents: row.RemainingCents},
		InstallmentCount: int(row.InstallmentCount),
		PaidCount:        int(row.PaidInstallmentCount),
		Status:           core.PlanStatus(row.Status),
		FirstDueDate:     first,
		CreatedAt:        created,
		UpdatedAt:        updated,
	}, nil
}

func installmentFromRow(row InstallmentRow) (core.Installment, error) {
	due, err := core.ParseDate(row.DueDate)
	if err != nil {
		return core.Installment{}, fmt.Errorf("installment %s due date %q: %w", row.ID, row.DueDate, err)
	}
	return core.Installment{
		ID:       row.ID,
		PlanID:   row.PlanID,
		EntryID:  row.EntryID,
		Sequence: int(row.Sequence),
		DueDate:  due,
		Share:    core.Money{Cents: row.ShareCents},
		Status:   core.InstallmentStatus(row.Status),
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
