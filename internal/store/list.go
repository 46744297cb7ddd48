package store

import (
	"iter"

	"github.com/vmihailenco/msgpack/v5"
)

// ListIdx is a position in one List value. It means nothing for any other
// list, including a later copy of the same one.
type ListIdx[E any] int

// List is a dense append-only sequence
type List[E any] struct {
	items []E
}

// NewList wraps items without copying them
func NewList[E any](items []E) List[E] {
	return List[E]{items: items}
}

// Len returns the number of elements
func (l *List[E]) Len() int {
	return len(l.items)
}

// Append adds v to the end of the list
func (l *List[E]) Append(v E) ListIdx[E] {
	l.items = append(l.items, v)
	return ListIdx[E](len(l.items) - 1)
}

// At returns the element at i. It panics on an index from another list
// that happens to be out of range.
func (l *List[E]) At(i ListIdx[E]) E {
	return l.items[i]
}

// All iterates over the elements in order
func (l *List[E]) All() iter.Seq2[ListIdx[E], E] {
	return func(yield func(ListIdx[E], E) bool) {
		for i, v := range l.items {
			if !yield(ListIdx[E](i), v) {
				return
			}
		}
	}
}

// Clone returns a list with its own backing array
func (l *List[E]) Clone() List[E] {
	out := make([]E, len(l.items))
	copy(out, l.items)
	return List[E]{items: out}
}

// EncodeMsgpack writes the elements as a plain array
func (l List[E]) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(l.items)
}

// DecodeMsgpack reads an array written by EncodeMsgpack
func (l *List[E]) DecodeMsgpack(dec *msgpack.Decoder) error {
	var items []E
	if err := dec.Decode(&items); err != nil {
		return err
	}
	l.items = items
	return nil
}
