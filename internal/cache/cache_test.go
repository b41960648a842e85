package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"planledger/internal/core"
	"planledger/internal/invalidation"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }
	c.Set("k", "v")
	c.Set("j", "w")

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d", c.Size())
	}
}

func TestManagerCleanAllAndStop(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)

	m := NewManager()
	m.Register(c)
	now = now.Add(time.Minute)
	if n := m.CleanAll(); n != 1 {
		t.Fatalf("CleanAll = %d", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestPlanCacheLoadsOnceAndEvictsOnEvent(t *testing.T) {
	ctx := context.Background()
	bus := invalidation.NewBus()
	pc := NewPlanCache(8, time.Hour)
	unsubscribe := pc.Subscribe(bus)
	defer unsubscribe()

	loads := 0
	load := func(_ context.Context, id string) (core.Plan, error) {
		loads++
		return core.Plan{ID: id, Status: core.PlanPending}, nil
	}

	for i := 0; i < 3; i++ {
		if _, err := pc.Plan(ctx, "p1", load); err != nil {
			t.Fatal(err)
		}
	}
	if loads != 1 {
		t.Fatalf("loads = %d, want 1", loads)
	}

	bus.Broadcast(invalidation.Event{Name: invalidation.PlanRecomputed, PlanID: "p1"})
	if _, err := pc.Plan(ctx, "p1", load); err != nil {
		t.Fatal(err)
	}
	if loads != 2 {
		t.Fatalf("loads after invalidation = %d, want 2", loads)
	}

	st := pc.Stats()
	if st.Hits != 2 || st.Misses != 2 || st.Plans != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestPlanCacheDoesNotStoreErrors(t *testing.T) {
	ctx := context.Background()
	pc := NewPlanCache(8, time.Hour)
	boom := errors.New("boom")
	_, err := pc.Installments(ctx, "p1", func(context.Context, string) ([]core.InstallmentLedgerView, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if pc.Stats().Installments != 0 {
		t.Fatal("failed load was cached")
	}
}

func TestPlanCacheUnsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := invalidation.NewBus()
	pc := NewPlanCache(8, time.Hour)
	unsubscribe := pc.Subscribe(bus)
	unsubscribe()

	_, _ = pc.Plan(ctx, "p1", func(_ context.Context, id string) (core.Plan, error) { return core.Plan{ID: id}, nil })
	bus.Broadcast(invalidation.Event{Name: invalidation.PlanDeleted, PlanID: "p1"})
	if pc.Stats().Plans != 1 {
		t.Fatal("unsubscribed cache still evicted")
	}
}
