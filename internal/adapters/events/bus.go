package events

import (
	"log/slog"
	"sync"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/goroutine"
	"github.com/bnema/zalo-accounts/internal/ports"
)

type subscriber struct {
	id uint64
	fn func(domain.Event)
}

// Bus delivers each event synchronously to the subscribers registered at
// publish time, in registration order. Nothing is buffered.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber
	log    *slog.Logger
}

var _ ports.EventBus = (*Bus)(nil)

func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log.With("component", "events")}
}

func (b *Bus) Subscribe(fn func(domain.Event)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *Bus) Publish(event domain.Event) {
	b.mu.RLock()
	subs := append([]subscriber(nil), b.subs...)
	b.mu.RUnlock()

	b.log.Debug("publish event", "kind", event.Kind, "subscribers", len(subs))
	for _, s := range subs {
		b.deliver(s, event)
	}
}

func (b *Bus) deliver(s subscriber, event domain.Event) {
	defer goroutine.Recover(b.log, "event subscriber "+string(event.Kind))
	s.fn(event)
}

func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
