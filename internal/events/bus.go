package events

import (
	"sync"

	"go.uber.org/zap"
)

// Bus fans events out to every subscriber over buffered channels. Publishing
// never blocks the caller: a subscriber whose buffer is full misses the event
// (durability lives in the persisted records, not in the bus).
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	closed bool
	log    *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{log: log}
}

// Subscribe registers a new consumer channel. Must be called before the
// events of interest are published; there is no replay.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.log.Warn("event dropped: subscriber buffer full",
				zap.String("kind", string(e.EventKind())))
		}
	}
}

// Close closes all subscriber channels so consumer loops can drain and exit.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
