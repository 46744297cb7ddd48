package spatial

import (
	"maps"

	"github.com/tidwall/rtree"
)

// Entry is one hitbox stored under its owner's key
type Entry[K ~int] struct {
	Key K
	Box Hitbox
}

// Index is an R-tree of hitbox envelopes keyed by a stable slot index.
// Each key holds at most one entry.
type Index[K ~int] struct {
	tree  *rtree.RTreeG[Entry[K]]
	boxes map[K]Hitbox
}

// NewIndex creates an empty Index
func NewIndex[K ~int]() *Index[K] {
	return &Index[K]{
		tree:  &rtree.RTreeG[Entry[K]]{},
		boxes: make(map[K]Hitbox),
	}
}

// Len returns the number of stored hitboxes
func (ix *Index[K]) Len() int {
	return len(ix.boxes)
}

// Lookup returns the hitbox stored for k
func (ix *Index[K]) Lookup(k K) (Hitbox, bool) {
	hb, ok := ix.boxes[k]
	return hb, ok
}

// Insert stores hb under k, replacing any previous entry for k
func (ix *Index[K]) Insert(k K, hb Hitbox) {
	if old, ok := ix.Lookup(k); ok {
		lo, hi := old.Envelope()
		ix.tree.Delete(lo, hi, Entry[K]{Key: k, Box: old})
	}
	lo, hi := hb.Envelope()
	ix.tree.Insert(lo, hi, Entry[K]{Key: k, Box: hb})
	ix.boxes[k] = hb
}

// Remove drops the entry for k and returns its last hitbox
func (ix *Index[K]) Remove(k K) (Hitbox, bool) {
	old, ok := ix.Lookup(k)
	if !ok {
		return Hitbox{}, false
	}
	lo, hi := old.Envelope()
	ix.tree.Delete(lo, hi, Entry[K]{Key: k, Box: old})
	delete(ix.boxes, k)
	return old, true
}

// Update swaps the entry for k only if hb differs from what is stored.
// It reports whether the tree changed.
func (ix *Index[K]) Update(k K, hb Hitbox) bool {
	if old, ok := ix.Lookup(k); ok && old == hb {
		return false
	}
	ix.Insert(k, hb)
	return true
}

// Locate returns the key whose hitbox contains p. If several do, the
// lowest key wins.
func (ix *Index[K]) Locate(p Point) (K, bool) {
	var (
		found K
		hit   bool
	)
	at := [2]float64{float64(p.X), float64(p.Y)}
	ix.tree.Search(at, at, func(_, _ [2]float64, e Entry[K]) bool {
		if !e.Box.Contains(p) {
			return true
		}
		if !hit || e.Key < found {
			found, hit = e.Key, true
		}
		return true
	})
	return found, hit
}

// Clone returns an independent copy. The tree is copied on write.
func (ix *Index[K]) Clone() *Index[K] {
	return &Index[K]{
		tree:  ix.tree.Copy(),
		boxes: maps.Clone(ix.boxes),
	}
}
