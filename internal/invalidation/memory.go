package invalidation

import (
	"context"
	"sync"
)

// MemoryQueue keeps pending ids in insertion order. It does not survive a
// restart and is meant for tests and single-process development.
type MemoryQueue struct {
	mu    sync.Mutex
	order []string
	set   map[string]struct{}
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{set: map[string]struct{}{}}
}

func (q *MemoryQueue) EnqueuePendingRecompute(_ context.Context, planID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.set[planID]; ok {
		return nil
	}
	q.set[planID] = struct{}{}
	q.order = append(q.order, planID)
	return nil
}

func (q *MemoryQueue) DrainPendingRecompute(_ context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := q.order
	q.order = nil
	q.set = map[string]struct{}{}
	return ids, nil
}

// Len reports how many ids are pending.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
