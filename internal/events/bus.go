package events

import (
	"sync"
)

// Event is the payload contract for the bus. Every event names its own
// topic and the user it concerns, so routing and per-user filtering never
// need a type switch downstream.
type Event interface {
	EventTopic() Topic
	EventUser() string
}

// Bus is a lightweight pub/sub broker using channels. Publishing never
// blocks a trading tick; slow subscribers lose events.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]chan Event
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]chan Event)}
}

// Subscribe registers a listener for a topic and returns the channel and an
// unsubscribe function. Unsubscribing closes the channel.
func (b *Bus) Subscribe(t Topic, buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	b.subs[t] = append(b.subs[t], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[t]
		for i, c := range subs {
			if c == ch {
				close(c)
				b.subs[t] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	return ch, unsub
}

// Publish fans the event out to its topic's subscribers without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.EventTopic()] {
		select {
		case ch <- ev:
		default:
			// drop if subscriber is slow; keep broker non-blocking
		}
	}
}
