package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"planledger/internal/core"
	"planledger/internal/storage"
)

// Store keeps every row in maps guarded by one mutex. Deleting a ledger entry
// or a plan removes the installments referencing it, like the SQL cascades.
type Store struct {
	mu           sync.Mutex
	plans        map[string]core.Plan
	entries      map[string]core.LedgerEntry
	installments map[string]core.Installment
	pending      []string
	now          func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		plans:        map[string]core.Plan{},
		entries:      map[string]core.LedgerEntry{},
		installments: map[string]core.Installment{},
		now:          time.Now,
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreatePlan(_ context.Context, d core.PlanDraft) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	p := core.Plan{
		ID:               uuid.NewString(),
		OwnerID:          d.OwnerID,
		Kind:             d.Kind,
		Description:      d.Description,
		Counterparty:     d.Counterparty,
		CategoryID:       d.CategoryID,
		Total:            d.Total,
		Remaining:        d.Total,
		InstallmentCount: d.InstallmentCount,
		Status:           core.PlanPending,
		FirstDueDate:     d.FirstDueDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.plans[p.ID] = p
	return p.ID, nil
}

func (s *Store) GetPlan(_ context.Context, id string) (core.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return core.Plan{}, core.NewNotFound("plan", id)
	}
	return p, nil
}

func (s *Store) ListPlans(_ context.Context, ownerID string, kind core.PlanKind) ([]core.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Plan
	for _, p := range s.plans {
		if p.OwnerID == ownerID && p.Kind == kind {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstDueDate.Equal(out[j].FirstDueDate.Time) {
			return out[i].FirstDueDate.Before(out[j].FirstDueDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdatePlanAggregate(_ context.Context, id string, agg core.PlanAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return core.NewNotFound("plan", id)
	}
	agg.Apply(&p)
	p.UpdatedAt = s.now().UTC()
	s.plans[id] = p
	return nil
}

func (s *Store) DeletePlan(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return core.NewNotFound("plan", id)
	}
	delete(s.plans, id)
	for iid, inst := range s.installments {
		if inst.PlanID == id {
			delete(s.installments, iid)
		}
	}
	return nil
}

func (s *Store) CreateEntry(_ context.Context, d core.LedgerEntryDraft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := core.LedgerEntry{
		ID:          uuid.NewString(),
		OwnerID:     d.OwnerID,
		Type:        d.Type,
		Description: d.Description,
		Value:       d.Value,
		Date:        d.Date,
		CategoryID:  d.CategoryID,
		Status:      d.Status,
	}
	s.entries[e.ID] = e
	return e.ID, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return core.LedgerEntry{}, core.NewNotFound("ledger entry", id)
	}
	return e, nil
}

func (s *Store) UpdateEntryStatus(_ context.Context, id string, status core.LedgerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return core.NewNotFound("ledger entry", id)
	}
	e.Status = status
	s.entries[id] = e
	return nil
}

func (s *Store) DeleteEntries(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		delete(s.entries, id)
		gone[id] = struct{}{}
	}
	for iid, inst := range s.installments {
		if _, ok := gone[inst.EntryID]; ok {
			delete(s.installments, iid)
		}
	}
	return nil
}

func (s *Store) CreateInstallment(_ context.Context, d core.InstallmentDraft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[d.PlanID]; !ok {
		return "", core.NewNotFound("plan", d.PlanID)
	}
	if _, ok := s.entries[d.EntryID]; !ok {
		return "", core.NewNotFound("ledger entry", d.EntryID)
	}
	inst := core.Installment{
		ID:       uuid.NewString(),
		PlanID:   d.PlanID,
		EntryID:  d.EntryID,
		Sequence: d.Sequence,
		DueDate:  d.DueDate,
		Share:    d.Share,
		Status:   d.Status,
	}
	s.installments[inst.ID] = inst
	return inst.ID, nil
}

func (s *Store) GetInstallment(_ context.Context, id string) (core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.installments[id]
	if !ok {
		return core.Installment{}, core.NewNotFound("installment", id)
	}
	return inst, nil
}

func (s *Store) GetInstallmentByEntry(_ context.Context, entryID string) (core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range s.installments {
		if inst.EntryID == entryID {
			return inst, nil
		}
	}
	return core.Installment{}, core.NewNotFound("installment for ledger entry", entryID)
}

func (s *Store) GetInstallmentsByPlan(_ context.Context, planID string) ([]core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byPlanLocked(planID), nil
}

func (s *Store) ListPlanInstallments(_ context.Context, planID string) ([]core.InstallmentLedgerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.byPlanLocked(planID)
	views := make([]core.InstallmentLedgerView, 0, len(items))
	for _, inst := range items {
		e, ok := s.entries[inst.EntryID]
		if !ok {
			continue
		}
		views = append(views, core.InstallmentLedgerView{Installment: inst, EntryStatus: e.Status})
	}
	return views, nil
}

func (s *Store) UpdateInstallmentStatus(_ context.Context, id string, status core.InstallmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.installments[id]
	if !ok {
		return core.NewNotFound("installment", id)
	}
	inst.Status = status
	s.installments[id] = inst
	return nil
}

func (s *Store) DeleteInstallmentsByPlan(_ context.Context, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, inst := range s.installments {
		if inst.PlanID == planID {
			delete(s.installments, id)
		}
	}
	return nil
}

// EnqueuePendingRecompute appends planID unless it is already queued.
func (s *Store) EnqueuePendingRecompute(_ context.Context, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.pending {
		if id == planID {
			return nil
		}
	}
	s.pending = append(s.pending, planID)
	return nil
}

func (s *Store) DrainPendingRecompute(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.pending
	s.pending = nil
	return ids, nil
}

func (s *Store) byPlanLocked(planID string) []core.Installment {
	var out []core.Installment
	for _, inst := range s.installments {
		if inst.PlanID == planID {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}
