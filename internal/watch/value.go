// Package watch holds a single value that readers wait on. Publishing
// overwrites whatever was there; a slow reader skips straight to the
// newest version instead of queueing the ones it missed.
package watch

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Wait once the value has been closed
var ErrClosed = errors.New("watch: value closed")

// Value is a versioned single slot. The zero Value is not usable; call New.
type Value[T any] struct {
	mu      sync.Mutex
	v       T
	version uint64
	changed chan struct{}
	closed  bool
}

// New creates a Value holding initial at version 1
func New[T any](initial T) *Value[T] {
	return &Value[T]{
		v:       initial,
		version: 1,
		changed: make(chan struct{}),
	}
}

// Publish replaces the value and wakes every waiter. Publishing to a
// closed Value is a no-op.
func (w *Value[T]) Publish(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.v = v
	w.version++
	close(w.changed)
	w.changed = make(chan struct{})
}

// Load returns the current value and its version
func (w *Value[T]) Load() (T, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.v, w.version
}

// Wait blocks until the version is newer than seen, then returns the
// current value. It fails with ErrClosed after Close and with the
// context's error on cancellation.
func (w *Value[T]) Wait(ctx context.Context, seen uint64) (T, uint64, error) {
	for {
		w.mu.Lock()
		if w.version > seen {
			v, ver := w.v, w.version
			w.mu.Unlock()
			return v, ver, nil
		}
		if w.closed {
			w.mu.Unlock()
			var zero T
			return zero, seen, ErrClosed
		}
		ch := w.changed
		w.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			var zero T
			return zero, seen, ctx.Err()
		}
	}
}

// Close wakes all waiters; subsequent waits that have nothing newer to
// return fail with ErrClosed.
func (w *Value[T]) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.changed)
}
