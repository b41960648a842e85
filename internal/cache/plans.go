package cache

import (
	"context"
	"sync/atomic"
	"time"

	"planledger/internal/core"
	"planledger/internal/invalidation"
)

// PlanCache holds recently read plans and their installment lists. Entries
// are dropped as soon as the invalidation bus reports a change to the plan.
type PlanCache struct {
	plans        *LRUCache[core.Plan]
	installments *LRUCache[[]core.InstallmentLedgerView]
	hits         atomic.Int64
	misses       atomic.Int64
}

type Stats struct {
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
	Plans        int   `json:"plans"`
	Installments int   `json:"installments"`
}

func NewPlanCache(size int, ttl time.Duration) *PlanCache {
	return &PlanCache{
		plans:        NewLRUCache[core.Plan](size, ttl),
		installments: NewLRUCache[[]core.InstallmentLedgerView](size, ttl),
	}
}

// Plan returns the cached plan or loads and caches it.
func (c *PlanCache) Plan(ctx context.Context, id string, load func(context.Context, string) (core.Plan, error)) (core.Plan, error) {
	if p, ok := c.plans.Get(id); ok {
		c.hits.Add(1)
		return p, nil
	}
	c.misses.Add(1)
	p, err := load(ctx, id)
	if err != nil {
		return core.Plan{}, err
	}
	c.plans.Set(id, p)
	return p, nil
}

// Installments returns the cached installment list of a plan or loads it.
func (c *PlanCache) Installments(ctx context.Context, planID string, load func(context.Context, string) ([]core.InstallmentLedgerView, error)) ([]core.InstallmentLedgerView, error) {
	if v, ok := c.installments.Get(planID); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)
	v, err := load(ctx, planID)
	if err != nil {
		return nil, err
	}
	c.installments.Set(planID, v)
	return v, nil
}

func (c *PlanCache) Invalidate(planID string) {
	c.plans.Delete(planID)
	c.installments.Delete(planID)
}

// Subscribe evicts a plan on every bus event that names it. The returned
// function removes the subscription.
func (c *PlanCache) Subscribe(bus *invalidation.Bus) func() {
	tok := bus.Subscribe("", func(ev invalidation.Event) {
		if ev.PlanID != "" {
			c.Invalidate(ev.PlanID)
		}
	})
	return func() { bus.Unsubscribe(tok) }
}

// Register hands both underlying caches to m for expiry sweeps.
func (c *PlanCache) Register(m *Manager) {
	m.Register(c.plans)
	m.Register(c.installments)
}

func (c *PlanCache) Stats() Stats {
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Plans:        c.plans.Size(),
		Installments: c.installments.Size(),
	}
}
