// Package observe provides a thread-safe current-value holder whose changes
// can be followed by any number of subscribers.
package observe

import (
	"context"
	"sync"
)

// Value holds the latest T. Subscribers always see the most recent value;
// intermediate values may be skipped if a subscriber falls behind.
type Value[T any] struct {
	mu      sync.Mutex
	current T
	subs    map[chan T]struct{}
}

// NewValue returns a Value initialised to v.
func NewValue[T any](v T) *Value[T] {
	return &Value[T]{current: v, subs: make(map[chan T]struct{})}
}

// Load returns the current value.
func (o *Value[T]) Load() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Store replaces the current value and notifies subscribers.
func (o *Value[T]) Store(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = v
	o.publishLocked()
}

// Update applies fn to the current value atomically and returns the result.
func (o *Value[T]) Update(fn func(T) T) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = fn(o.current)
	o.publishLocked()
	return o.current
}

// Subscribe returns a channel that receives the current value immediately and
// every later change. The channel is closed once ctx is done.
func (o *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	o.mu.Lock()
	o.subs[ch] = struct{}{}
	ch <- o.current
	o.mu.Unlock()

	go func() {
		<-ctx.Done()
		o.mu.Lock()
		delete(o.subs, ch)
		close(ch)
		o.mu.Unlock()
	}()
	return ch
}

// Subscribers reports how many subscriptions are active.
func (o *Value[T]) Subscribers() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

func (o *Value[T]) publishLocked() {
	for ch := range o.subs {
		// Drop a stale unread value so the latest one always fits.
		select {
		case <-ch:
		default:
		}
		ch <- o.current
	}
}
