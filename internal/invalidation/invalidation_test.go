package invalidation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestBusDeliversToMatchingSubscribers(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(PlanRecomputed, func(ev Event) { got = append(got, "recomputed:"+ev.PlanID) })
	bus.Subscribe("", func(ev Event) { got = append(got, "all:"+ev.Name) })

	bus.Broadcast(Event{Name: PlanRecomputed, PlanID: "p1"})
	bus.Broadcast(Event{Name: PlanDeleted, PlanID: "p1"})

	want := []string{"recomputed:p1", "all:" + PlanRecomputed, "all:" + PlanDeleted}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	tok := bus.Subscribe(PlanDeleted, func(Event) { calls++ })
	bus.Broadcast(Event{Name: PlanDeleted})
	bus.Unsubscribe(tok)
	bus.Broadcast(Event{Name: PlanDeleted})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestBusSurvivesPanickingSubscriber(t *testing.T) {
	bus := NewBus()
	reached := false
	bus.Subscribe("", func(Event) { panic("boom") })
	bus.Subscribe("", func(Event) { reached = true })
	bus.Broadcast(Event{Name: PlanRecomputed})
	if !reached {
		t.Fatal("second subscriber not called after first panicked")
	}
}

func TestBusConcurrentBroadcast(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	n := 0
	bus.Subscribe("", func(Event) {
		mu.Lock()
		n++
		mu.Unlock()
	})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Broadcast(Event{Name: PlanRecomputed})
		}()
	}
	wg.Wait()
	if n != 20 {
		t.Fatalf("n = %d, want 20", n)
	}
}

func TestMemoryQueueDedupAndDrain(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	for _, id := range []string{"p2", "p1", "p2"} {
		if err := q.EnqueuePendingRecompute(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}
	ids, _ := q.DrainPendingRecompute(ctx)
	if len(ids) != 2 || ids[0] != "p2" || ids[1] != "p1" {
		t.Fatalf("drain = %v", ids)
	}
	_ = q.EnqueuePendingRecompute(ctx, "p2")
	ids, _ = q.DrainPendingRecompute(ctx)
	if len(ids) != 1 {
		t.Fatalf("re-enqueue after drain lost: %v", ids)
	}
}

type fakeRedis struct {
	set     map[string]struct{}
	saddErr error
}

func (f *fakeRedis) SAdd(_ context.Context, _ string, members ...interface{}) *redis.IntCmd {
	if f.saddErr != nil {
		return redis.NewIntResult(0, f.saddErr)
	}
	var added int64
	for _, m := range members {
		s := m.(string)
		if _, ok := f.set[s]; !ok {
			f.set[s] = struct{}{}
			added++
		}
	}
	return redis.NewIntResult(added, nil)
}

func (f *fakeRedis) SPopN(_ context.Context, _ string, count int64) *redis.StringSliceCmd {
	var out []string
	for s := range f.set {
		if int64(len(out)) == count {
			break
		}
		out = append(out, s)
		delete(f.set, s)
	}
	return redis.NewStringSliceResult(out, nil)
}

func TestRedisQueue(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{set: map[string]struct{}{}}
	q := NewRedisQueue(fake, "planledger:pending")

	for _, id := range []string{"b", "a", "b"} {
		if err := q.EnqueuePendingRecompute(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	ids, err := q.DrainPendingRecompute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("drain = %v", ids)
	}
}

func TestRedisQueueDrainsMoreThanOneBatch(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{set: map[string]struct{}{}}
	q := NewRedisQueue(fake, "k")
	for i := 0; i < drainBatch+5; i++ {
		_ = q.EnqueuePendingRecompute(ctx, string(rune('a'+i%26))+string(rune('A'+i/26)))
	}
	ids, err := q.DrainPendingRecompute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != drainBatch+5 {
		t.Fatalf("drained %d ids, want %d", len(ids), drainBatch+5)
	}
}

func TestRedisQueueEnqueueError(t *testing.T) {
	boom := errors.New("connection refused")
	q := NewRedisQueue(&fakeRedis{set: map[string]struct{}{}, saddErr: boom}, "k")
	if err := q.EnqueuePendingRecompute(context.Background(), "p1"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}
