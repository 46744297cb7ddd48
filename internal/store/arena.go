// Package store holds the two entity containers the world is built from:
// a tombstoned Arena with stable indices and a dense append-only List.
package store

import (
	"iter"

	"github.com/vmihailenco/msgpack/v5"
)

// Idx is a slot number in an Arena of E.
//
// An Idx stays in range for the lifetime of the arena but carries no
// generation: once its slot is removed, a later Push may hand the same
// number to a different entity. Treat an Idx as valid only for the world
// snapshot it was read from.
type Idx[E any] int

// Arena is a slot array whose removals leave tombstones, so surviving
// indices never shift. Freed slots are reused by Push.
type Arena[E any] struct {
	slots []*E
}

// NewArena returns an empty arena with room for n slots
func NewArena[E any](n int) Arena[E] {
	return Arena[E]{slots: make([]*E, 0, n)}
}

// Len returns the number of slots, tombstones included
func (a *Arena[E]) Len() int {
	return len(a.slots)
}

// Count returns the number of live slots
func (a *Arena[E]) Count() int {
	n := 0
	for _, s := range a.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Push stores v in the first empty slot, appending only when there is none.
func (a *Arena[E]) Push(v E) Idx[E] {
	for i, s := range a.slots {
		if s == nil {
			a.slots[i] = &v
			return Idx[E](i)
		}
	}
	a.slots = append(a.slots, &v)
	return Idx[E](len(a.slots) - 1)
}

// Remove clears the slot and returns what it held. Removing an empty or
// out-of-range slot returns false and touches nothing.
func (a *Arena[E]) Remove(i Idx[E]) (E, bool) {
	var zero E
	if !a.inRange(i) || a.slots[i] == nil {
		return zero, false
	}
	v := *a.slots[i]
	a.slots[i] = nil
	return v, true
}

// Get returns the value in slot i, or false for a tombstone.
func (a *Arena[E]) Get(i Idx[E]) (E, bool) {
	var zero E
	if !a.inRange(i) || a.slots[i] == nil {
		return zero, false
	}
	return *a.slots[i], true
}

// Ptr returns a pointer into slot i, or nil for a tombstone. The pointer is
// only valid until the slot is next written.
func (a *Arena[E]) Ptr(i Idx[E]) *E {
	if !a.inRange(i) {
		return nil
	}
	return a.slots[i]
}

// Set writes v into slot i, growing the arena with empty slots if needed.
func (a *Arena[E]) Set(i Idx[E], v E) {
	if i < 0 {
		return
	}
	a.Grow(int(i) + 1)
	a.slots[i] = &v
}

// Clear tombstones slot i without reporting the old value
func (a *Arena[E]) Clear(i Idx[E]) {
	if a.inRange(i) {
		a.slots[i] = nil
	}
}

// Grow pads the arena with empty slots up to n
func (a *Arena[E]) Grow(n int) {
	for len(a.slots) < n {
		a.slots = append(a.slots, nil)
	}
}

// Clone returns an arena with its own copy of every live value
func (a *Arena[E]) Clone() Arena[E] {
	out := Arena[E]{slots: make([]*E, len(a.slots))}
	for i, s := range a.slots {
		if s != nil {
			v := *s
			out.slots[i] = &v
		}
	}
	return out
}

// All iterates over live slots in index order
func (a *Arena[E]) All() iter.Seq2[Idx[E], E] {
	return func(yield func(Idx[E], E) bool) {
		for i, s := range a.slots {
			if s == nil {
				continue
			}
			if !yield(Idx[E](i), *s) {
				return
			}
		}
	}
}

func (a *Arena[E]) inRange(i Idx[E]) bool {
	return i >= 0 && int(i) < len(a.slots)
}

// EncodeMsgpack writes the slot array with nil tombstones
func (a Arena[E]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(a.slots)
}

// DecodeMsgpack reads a slot array written by EncodeMsgpack
func (a *Arena[E]) DecodeMsgpack(dec *msgpack.Decoder) error {
	var slots []*E
	if err := dec.Decode(&slots); err != nil {
		return err
	}
	a.slots = slots
	return nil
}
