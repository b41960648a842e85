package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type PlanRow struct {
	ID                   string
	OwnerID              string
	Kind                 string
	Description          string
	Counterparty         string
	CategoryID           sql.NullString
	TotalCents           int64
	PaidCents            int64
	RemainingCents       int64
	InstallmentCount     int64
	PaidInstallmentCount int64
	Status               string
	FirstDueDate         string
	CreatedAt            string
	UpdatedAt            string
}

type EntryRow struct {
	ID          string
	OwnerID     string
	EntryType   string
	Description string
	AmountCents int64
	EntryDate   string
	CategoryID  sql.NullString
	Status      string
}

type InstallmentRow struct {
	ID         string
	PlanID     string
	EntryID    string
	Sequence   int64
	DueDate    string
	ShareCents int64
	Status     string
}

type InstallmentWithEntryRow struct {
	InstallmentRow
	EntryStatus string
}

const planColumns = `id, owner_id, kind, description, counterparty, category_id, total_cents, paid_cents,
	remaining_cents, installment_count, paid_installment_count, status, first_due_date, created_at, updated_at`

const insertPlan = `INSERT INTO plans (` + planColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertPlan(ctx context.Context, p PlanRow) error {
	_, err := q.db.ExecContext(ctx, insertPlan,
		p.ID, p.OwnerID, p.Kind, p.Description, p.Counterparty, p.CategoryID,
		p.TotalCents, p.PaidCents, p.RemainingCents, p.InstallmentCount, p.PaidInstallmentCount,
		p.Status, p.FirstDueDate, p.CreatedAt, p.UpdatedAt)
	return err
}

const getPlan = `SELECT ` + planColumns + ` FROM plans WHERE id = ?`

func (q *Queries) GetPlan(ctx context.Context, id string) (PlanRow, error) {
	return scanPlan(q.db.QueryRowContext(ctx, getPlan, id))
}

const listPlans = `SELECT ` + planColumns + ` FROM plans
WHERE owner_id = ? AND kind = ?
ORDER BY first_due_date, created_at`

func (q *Queries) ListPlans(ctx context.Context, ownerID, kind string) ([]PlanRow, error) {
	rows, err := q.db.QueryContext(ctx, listPlans, ownerID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PlanRow
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const updatePlanAggregate = `UPDATE plans
SET total_cents = ?, paid_cents = ?, remaining_cents = ?, installment_count = ?,
	paid_installment_count = ?, status = ?, updated_at = ?
WHERE id = ?`

type UpdatePlanAggregateParams struct {
	TotalCents           int64
	PaidCents            int64
	RemainingCents       int64
	InstallmentCount     int64
	PaidInstallmentCount int64
	Status               string
	UpdatedAt            string
	ID                   string
}

func (q *Queries) UpdatePlanAggregate(ctx context.Context, arg UpdatePlanAggregateParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updatePlanAggregate,
		arg.TotalCents, arg.PaidCents, arg.RemainingCents, arg.InstallmentCount,
		arg.PaidInstallmentCount, arg.Status, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deletePlan = `DELETE FROM plans WHERE id = ?`

func (q *Queries) DeletePlan(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deletePlan, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const insertEntry = `INSERT INTO ledger_entries
	(id, owner_id, entry_type, description, amount_cents, entry_date, category_id, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertEntry(ctx context.Context, e EntryRow, now string) error {
	_, err := q.db.ExecContext(ctx, insertEntry,
		e.ID, e.OwnerID, e.EntryType, e.Description, e.AmountCents, e.EntryDate, e.CategoryID, e.Status, now, now)
	return err
}

const getEntry = `SELECT id, owner_id, entry_type, description, amount_cents, entry_date, category_id, status
FROM ledger_entries WHERE id = ?`

func (q *Queries) GetEntry(ctx context.Context, id string) (EntryRow, error) {
	var e EntryRow
	err := q.db.QueryRowContext(ctx, getEntry, id).Scan(
		&e.ID, &e.OwnerID, &e.EntryType, &e.Description, &e.AmountCents, &e.EntryDate, &e.CategoryID, &e.Status)
	return e, err
}

const updateEntryStatus = `UPDATE ledger_entries SET status = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateEntryStatus(ctx context.Context, id, status, now string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateEntryStatus, status, now, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteEntries builds one IN (...) statement for the whole id set.
func (q *Queries) DeleteEntries(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	stmt := `DELETE FROM ledger_entries WHERE id IN (?` + strings.Repeat(", ?", len(ids)-1) + `)`
	res, err := q.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const insertInstallment = `INSERT INTO installments (id, plan_id, entry_id, sequence, due_date, share_cents, status)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertInstallment(ctx context.Context, i InstallmentRow) error {
	_, err := q.db.ExecContext(ctx, insertInstallment,
		i.ID, i.PlanID, i.EntryID, i.Sequence, i.DueDate, i.ShareCents, i.Status)
	return err
}

const installmentColumns = `id, plan_id, entry_id, sequence, due_date, share_cents, status`

const getInstallment = `SELECT ` + installmentColumns + ` FROM installments WHERE id = ?`

func (q *Queries) GetInstallment(ctx context.Context, id string) (InstallmentRow, error) {
	return scanInstallment(q.db.QueryRowContext(ctx, getInstallment, id))
}

const getInstallmentByEntry = `SELECT ` + installmentColumns + ` FROM installments WHERE entry_id = ?`

func (q *Queries) GetInstallmentByEntry(ctx context.Context, entryID string) (InstallmentRow, error) {
	return scanInstallment(q.db.QueryRowContext(ctx, getInstallmentByEntry, entryID))
}

const getInstallmentsByPlan = `SELECT ` + installmentColumns + ` FROM installments
WHERE plan_id = ? ORDER BY sequence`

func (q *Queries) GetInstallmentsByPlan(ctx context.Context, planID string) ([]InstallmentRow, error) {
	rows, err := q.db.QueryContext(ctx, getInstallmentsByPlan, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InstallmentRow
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listPlanInstallments = `SELECT i.id, i.plan_id, i.entry_id, i.sequence, i.due_date, i.share_cents, i.status, e.status
FROM installments i
JOIN ledger_entries e ON e.id = i.entry_id
WHERE i.plan_id = ?
ORDER BY i.sequence`

func (q *Queries) ListPlanInstallments(ctx context.Context, planID string) ([]InstallmentWithEntryRow, error) {
	rows, err := q.db.QueryContext(ctx, listPlanInstallments, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InstallmentWithEntryRow
	for rows.Next() {
		var r InstallmentWithEntryRow
		if err := rows.Scan(&r.ID, &r.PlanID, &r.EntryID, &r.Sequence, &r.DueDate, &r.ShareCents, &r.Status, &r.EntryStatus); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const updateInstallmentStatus = `UPDATE installments SET status = ? WHERE id = ?`

func (q *Queries) UpdateInstallmentStatus(ctx context.Context, id, status string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateInstallmentStatus, status, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteInstallmentsByPlan = `DELETE FROM installments WHERE plan_id = ?`

func (q *Queries) DeleteInstallmentsByPlan(ctx context.Context, planID string) error {
	_, err := q.db.ExecContext(ctx, deleteInstallmentsByPlan, planID)
	return err
}

const enqueuePendingRecompute = `INSERT INTO pending_recompute (plan_id, enqueued_at) VALUES (?, ?)
ON CONFLICT (plan_id) DO NOTHING`

func (q *Queries) EnqueuePendingRecompute(ctx context.Context, planID, now string) error {
	_, err := q.db.ExecContext(ctx, enqueuePendingRecompute, planID, now)
	return err
}

const listPendingRecompute = `SELECT plan_id FROM pending_recompute ORDER BY enqueued_at, plan_id`

func (q *Queries) ListPendingRecompute(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listPendingRecompute)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeletePendingRecompute clears only the ids that were read, so a plan
// enqueued concurrently with a drain stays queued.
func (q *Queries) DeletePendingRecompute(ctx context.Context, planIDs []string) error {
	if len(planIDs) == 0 {
		return nil
	}
	args := make([]interface{}, len(planIDs))
	for i, id := range planIDs {
		args[i] = id
	}
	stmt := `DELETE FROM pending_recompute WHERE plan_id IN (?` + strings.Repeat(", ?", len(planIDs)-1) + `)`
	_, err := q.db.ExecContext(ctx, stmt, args...)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row rowScanner) (PlanRow, error) {
	var p PlanRow
	err := row.Scan(&p.ID, &p.OwnerID, &p.Kind, &p.Description, &p.Counterparty, &p.CategoryID,
		&p.TotalCents, &p.PaidCents, &p.RemainingCents, &p.InstallmentCount, &p.PaidInstallmentCount,
		&p.Status, &p.FirstDueDate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanInstallment(row rowScanner) (InstallmentRow, error) {
	var i InstallmentRow
	err := row.Scan(&i.ID, &i.PlanID, &i.EntryID, &i.Sequence, &i.DueDate, &i.ShareCents, &i.Status)
	return i, err
}
