package sim

import (
	"fmt"

	"tankarena/internal/spatial"
	"tankarena/internal/store"
)

// Death records a tank removed by the tick that produced a World
type Death struct {
	Tank     store.Idx[Tank]   `msgpack:"t"`
	Owner    store.Idx[Player] `msgpack:"o"`
	Killer   store.Idx[Player] `msgpack:"k"`
	Orphaned bool              `msgpack:"orphan"`
}

// World is one immutable snapshot of the arena. Tick never modifies its
// receiver's entities; the server loop mutates only the latest World
// between ticks.
type World struct {
	Players store.Arena[Player] `msgpack:"players"`
	Tanks   store.Arena[Tank]   `msgpack:"tanks"`
	// TankBullets is index-aligned with Tanks: the bullets that struck each
	// tank last tick, applied as damage on the next one.
	TankBullets store.Arena[[]Bullet] `msgpack:"tank_bullets"`
	Bullets     store.List[Bullet]    `msgpack:"bullets"`
	// Deaths lists the tanks removed by the tick that built this world
	Deaths    []Death `msgpack:"deaths,omitempty"`
	TickCount uint64  `msgpack:"time"`

	collision *spatial.Index[store.Idx[Tank]]
}

// NewWorld creates an empty world at tick zero
func NewWorld() *World {
	return &World{
		Players:     store.NewArena[Player](0),
		Tanks:       store.NewArena[Tank](0),
		TankBullets: store.NewArena[[]Bullet](0),
		Bullets:     store.NewList[Bullet](nil),
		collision:   spatial.NewIndex[store.Idx[Tank]](),
	}
}

// AddPlayer joins a player with a full-health tank at the origin
func (w *World) AddPlayer(name string) store.Idx[Player] {
	p, _ := w.AddPlayerAt(name, spatial.Point{})
	return p
}

// AddPlayerAt joins a player with a full-health tank at pos
func (w *World) AddPlayerAt(name string, pos spatial.Point) (store.Idx[Player], store.Idx[Tank]) {
	p := w.Players.Push(Player{Name: name})
	tank := NewTank(p, pos)
	t := w.Tanks.Push(tank)
	w.align()
	w.TankBullets.Clear(store.Idx[[]Bullet](t))
	w.index().Insert(t, tank.Hitbox())
	return p, t
}

// RemovePlayer empties the player's slot. Its tank stays until the next
// tick finds it orphaned.
func (w *World) RemovePlayer(p store.Idx[Player]) bool {
	_, ok := w.Players.Remove(p)
	return ok
}

// SetInput latches in as the player's input. It reports false for an
// empty slot.
func (w *World) SetInput(p store.Idx[Player], in Input) bool {
	player := w.Players.Ptr(p)
	if player == nil {
		return false
	}
	player.Input = in
	return true
}

// WithInput returns a shallow copy of w whose player p has input in. Only
// the player arena is copied; the rest is shared, which is safe because
// Tick does not mutate its receiver.
func (w *World) WithInput(p store.Idx[Player], in Input) *World {
	out := *w
	out.Players = w.Players.Clone()
	out.SetInput(p, in)
	return &out
}

// Player returns the player in slot p
func (w *World) Player(p store.Idx[Player]) (Player, bool) {
	return w.Players.Get(p)
}

// Tank returns the tank in slot t
func (w *World) Tank(t store.Idx[Tank]) (Tank, bool) {
	return w.Tanks.Get(t)
}

// TankOf finds the tank owned by player p
func (w *World) TankOf(p store.Idx[Player]) (store.Idx[Tank], Tank, bool) {
	for i, t := range w.Tanks.All() {
		if t.Player == p {
			return i, t, true
		}
	}
	return 0, Tank{}, false
}

// Collide returns the tank whose hitbox contains pos
func (w *World) Collide(pos spatial.Point) (store.Idx[Tank], bool) {
	return w.index().Locate(pos)
}

// RebuildIndex recomputes the spatial index from Tanks. A decoded World
// builds its index on first use if this has not run.
func (w *World) RebuildIndex() {
	w.collision = buildIndex(&w.Tanks)
}

// Summary is a one-line description for debug logging
func (w *World) Summary() string {
	return fmt.Sprintf("tick=%d players=%d tanks=%d bullets=%d",
		w.TickCount, w.Players.Count(), w.Tanks.Count(), w.Bullets.Len())
}

// align pads Players, Tanks and TankBullets with empty slots so all three
// have the same length.
func (w *World) align() {
	n := max(w.Players.Len(), w.Tanks.Len(), w.TankBullets.Len())
	w.Players.Grow(n)
	w.Tanks.Grow(n)
	w.TankBullets.Grow(n)
}

func (w *World) index() *spatial.Index[store.Idx[Tank]] {
	if w.collision == nil {
		w.RebuildIndex()
	}
	return w.collision
}

func buildIndex(tanks *store.Arena[Tank]) *spatial.Index[store.Idx[Tank]] {
	ix := spatial.NewIndex[store.Idx[Tank]]()
	for i, t := range tanks.All() {
		ix.Insert(i, t.Hitbox())
	}
	return ix
}
