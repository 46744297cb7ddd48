package sim

import (
	"tankarena/internal/spatial"
	"tankarena/internal/store"
)

// Bullet is a shell in flight. Birth is the tick it was fired on.
type Bullet struct {
	Position spatial.Point     `msgpack:"pos"`
	Angle    float64           `msgpack:"a"`
	Damage   int64             `msgpack:"dmg"`
	Player   store.Idx[Player] `msgpack:"p"`
	Birth    uint64            `msgpack:"birth"`
}

// BulletOutcome is the kind of a BulletUpdate
type BulletOutcome uint8

const (
	BulletMove BulletOutcome = iota
	BulletHit
	BulletDead
)

// BulletUpdate is what one bullet becomes on the next tick
type BulletUpdate struct {
	Outcome BulletOutcome
	Bullet  Bullet
	Target  store.Idx[Tank]
}

// Age returns how many ticks have passed since b was fired. The clock
// wraps, so the subtraction does too.
func (b Bullet) Age(now uint64) uint64 {
	return now - b.Birth
}

// tick advances b one step against the previous tick's tank hitboxes
func (b Bullet) tick(w *World) BulletUpdate {
	if b.Age(w.TickCount) > BulletLifetime {
		return BulletUpdate{Outcome: BulletDead}
	}
	pos := b.Position.Add(perTick(b.Angle, BulletSpeed))
	if target, ok := w.Collide(pos); ok {
		return BulletUpdate{Outcome: BulletHit, Target: target}
	}
	if !InField(pos) {
		return BulletUpdate{Outcome: BulletDead}
	}
	next := b
	next.Position = pos
	return BulletUpdate{Outcome: BulletMove, Bullet: next}
}
