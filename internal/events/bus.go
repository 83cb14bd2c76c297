// Package events is a small in-process publish/subscribe topic.
// Owners of changing state publish; interested parties hold one
// subscription each instead of polling.
package events

import "sync"

// Bus fans values of type T out to every current subscriber.
// Delivery never blocks the publisher: a subscriber whose buffer is full
// misses that value.
type Bus[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan T
	closed bool
}

// NewBus returns an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[int]chan T)}
}

// Subscribe registers a subscriber with the given buffer size (at least 1).
// cancel unsubscribes and closes the channel; it is safe to call twice.
func (b *Bus[T]) Subscribe(buffer int) (ch <-chan T, cancel func()) {
	if buffer < 1 {
		buffer = 1
	}
	c := make(chan T, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(c)
		return c, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = c

	var once sync.Once
	return c, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers v to every subscriber with room in its buffer and
// returns how many received it.
func (b *Bus[T]) Publish(v T) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.subs {
		select {
		case c <- v:
			n++
		default:
		}
	}
	return n
}

// Len returns the number of live subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later subscriptions receive a closed channel.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, c := range b.subs {
		delete(b.subs, id)
		close(c)
	}
}
