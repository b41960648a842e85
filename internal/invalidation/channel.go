// Package invalidation carries "this plan is stale" signals between the
// engine and whatever views render plans. It has two halves: a durable,
// de-duplicated pending-recompute queue and an in-process broadcast bus.
package invalidation

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Event names broadcast on the bus.
const (
	InstallmentStatusChanged = "installment.status_changed"
	PlanRecomputed           = "plan.recomputed"
	PlanDeleted              = "plan.deleted"
	InstallmentDeleted       = "installment.deleted"
)

// Queue is durable and at-least-once. Enqueueing an id already pending is a
// no-op; Drain returns every pending id once and clears them. When Drain fails
// part way it returns the ids it already removed together with the error, and
// the caller owns them.
type Queue interface {
	EnqueuePendingRecompute(ctx context.Context, planID string) error
	DrainPendingRecompute(ctx context.Context) ([]string, error)
}

type Event struct {
	Name          string
	PlanID        string
	InstallmentID string
	Status        string
}

type Handler func(Event)

// Token identifies one subscription.
type Token uint64

// Bus delivers each broadcast at most once to every handler subscribed at the
// time of the call. Handlers run synchronously on the broadcasting goroutine.
type Bus struct {
	mu       sync.RWMutex
	next     Token
	handlers map[Token]subscription
}

type subscription struct {
	name    string
	handler Handler
}

func NewBus() *Bus {
	return &Bus{handlers: map[Token]subscription{}}
}

// Subscribe registers handler for events whose Name equals name. An empty
// name receives every event.
func (b *Bus) Subscribe(name string, handler Handler) Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.handlers[b.next] = subscription{name: name, handler: handler}
	return b.next
}

func (b *Bus) Unsubscribe(tok Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, tok)
}

func (b *Bus) Broadcast(ev Event) {
	b.mu.RLock()
	toks := make([]Token, 0, len(b.handlers))
	for tok, sub := range b.handlers {
		if sub.name == "" || sub.name == ev.Name {
			toks = append(toks, tok)
		}
	}
	sort.Slice(toks, func(i, j int) bool { return toks[i] < toks[j] })
	subs := make([]Handler, 0, len(toks))
	for _, tok := range toks {
		subs = append(subs, b.handlers[tok].handler)
	}
	b.mu.RUnlock()

	for _, h := range subs {
		deliver(h, ev)
	}
}

// deliver isolates a panicking subscriber from the rest.
func deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Invalidation subscriber panicked", "event", ev.Name, "plan_id", ev.PlanID, "panic", r)
		}
	}()
	h(ev)
}

// Channel bundles the queue and the bus handed to the engine.
type Channel struct {
	Queue
	*Bus
}

func NewChannel(q Queue, bus *Bus) *Channel {
	if bus == nil {
		bus = NewBus()
	}
	return &Channel{Queue: q, Bus: bus}
}
