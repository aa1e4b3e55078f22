package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/model"
)

// EventUpdate is published after a tick changed at least one transaction.
const EventUpdate = "UPDATE"

// Event carries the transactions a tick changed, in their new state.
type Event struct {
	Type         string
	Transactions []model.Transaction
	Timestamp    time.Time
}

// Handler receives published events. Handlers may see an event more than
// once and must be idempotent.
type Handler func(ctx context.Context, ev Event)

// Bus fans events out to every subscriber in subscription order.
type Bus struct {
	log *zap.Logger

	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
	order    []int
}

// NewBus creates an empty Bus.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{log: log, handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.handlers[id] = h
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
		for i, o := range b.order {
			if o == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Forward subscribes a handler that sends each event on ch. Delivery blocks
// until ch accepts the event or the publishing context ends.
func (b *Bus) Forward(ch chan<- Event) (unsubscribe func()) {
	return b.Subscribe(func(ctx context.Context, ev Event) {
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	})
}

// Publish delivers ev to every subscriber. A panicking handler is logged and
// does not stop delivery to the rest.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, h, ev)
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", zap.String("type", ev.Type), zap.Any("panic", r))
		}
	}()
	h(ctx, ev)
}
