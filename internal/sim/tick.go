package sim

import (
	"tankarena/internal/store"
)

// Tick advances w by one step and returns the new world. Every tank and
// bullet update reads only w, so their order within a tick is irrelevant;
// a bullet that hits a tank on this tick is delivered as damage on the
// next one.
func (w *World) Tick() *World {
	collision := w.index()

	type tankStep struct {
		idx    store.Idx[Tank]
		prev   Tank
		update TankUpdate
	}
	tankSteps := make([]tankStep, 0, w.Tanks.Len())
	for i, t := range w.Tanks.All() {
		hits, _ := w.TankBullets.Get(store.Idx[[]Bullet](i))
		tankSteps = append(tankSteps, tankStep{idx: i, prev: t, update: t.tick(w, hits)})
	}

	bulletSteps := make([]BulletUpdate, 0, w.Bullets.Len())
	for _, b := range w.Bullets.All() {
		bulletSteps = append(bulletSteps, b.tick(w))
	}

	next := &World{
		Players:   w.Players.Clone(),
		Tanks:     w.Tanks.Clone(),
		TickCount: w.TickCount + 1,
	}
	nextCollision := collision.Clone()
	bullets := make([]Bullet, 0, w.Bullets.Len())
	dead := make(map[store.Idx[Tank]]bool)

	for _, s := range tankSteps {
		switch s.update.Outcome {
		case TankDead:
			next.Tanks.Clear(s.idx)
			nextCollision.Remove(s.idx)
			dead[s.idx] = true
			next.Deaths = append(next.Deaths, Death{
				Tank:     s.idx,
				Owner:    s.prev.Player,
				Killer:   s.update.Killer,
				Orphaned: s.update.Orphaned,
			})
		case TankAlive, TankFire:
			next.Tanks.Set(s.idx, s.update.Tank)
			nextCollision.Update(s.idx, s.update.Tank.Hitbox())
			if s.update.Outcome == TankFire {
				bullets = append(bullets, s.update.Bullet)
			}
		}
	}

	next.TankBullets = store.NewArena[[]Bullet](next.Tanks.Len())
	next.align()
	for i, u := range bulletSteps {
		switch u.Outcome {
		case BulletMove:
			bullets = append(bullets, u.Bullet)
		case BulletHit:
			// A tank removed this tick cannot take the hit; dropping it
			// keeps a later tank in the same slot from inheriting it.
			if dead[u.Target] {
				continue
			}
			slot := next.TankBullets.Ptr(store.Idx[[]Bullet](u.Target))
			if slot == nil {
				next.TankBullets.Set(store.Idx[[]Bullet](u.Target), nil)
				slot = next.TankBullets.Ptr(store.Idx[[]Bullet](u.Target))
			}
			*slot = append(*slot, w.Bullets.At(store.ListIdx[Bullet](i)))
		}
	}

	next.Bullets = store.NewList(bullets)
	next.collision = nextCollision
	return next
}
