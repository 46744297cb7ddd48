package sim

import (
	"tankarena/internal/spatial"
	"tankarena/internal/store"
)

// Tank is a player's vehicle. Angle is the hull facing, TurretAngle the
// barrel; both are radians in [0, 2π).
type Tank struct {
	Player      store.Idx[Player] `msgpack:"p"`
	Position    spatial.Point     `msgpack:"pos"`
	Angle       float64           `msgpack:"a"`
	TurretAngle float64           `msgpack:"ta"`
	Health      int64             `msgpack:"hp"`
}

// NewTank creates a full-health tank for player at pos
func NewTank(player store.Idx[Player], pos spatial.Point) Tank {
	return Tank{
		Player:   player,
		Position: pos,
		Health:   TankMaxHealth,
	}
}

// TankOutcome is the kind of a TankUpdate
type TankOutcome uint8

const (
	TankAlive TankOutcome = iota
	TankFire
	TankDead
)

// TankUpdate is what one tank becomes on the next tick
type TankUpdate struct {
	Outcome TankOutcome
	Tank    Tank
	Bullet  Bullet
	// Killer is set for TankDead: the owner of the bullet that finished
	// the tank, or the tank's own player when it was orphaned.
	Killer   store.Idx[Player]
	Orphaned bool
}

// Hitbox returns the tank's collision rectangle
func (t Tank) Hitbox() spatial.Hitbox {
	return spatial.Hitbox{Center: t.Position, Angle: t.Angle}
}

// ApplyDamage folds hits into health. It returns the remaining health and,
// once health reaches zero, the player whose bullet did it.
func ApplyDamage(health int64, hits []Bullet) (int64, store.Idx[Player], bool) {
	for _, b := range hits {
		health -= b.Damage
		if health <= 0 {
			return 0, b.Player, true
		}
	}
	return health, 0, false
}

// tick computes the tank's next state from the previous world and the
// bullets that struck it during the previous tick.
func (t Tank) tick(w *World, hits []Bullet) TankUpdate {
	hp, killer, dead := ApplyDamage(t.Health, hits)
	if dead {
		return TankUpdate{Outcome: TankDead, Killer: killer}
	}
	player, ok := w.Players.Get(t.Player)
	if !ok {
		return TankUpdate{Outcome: TankDead, Killer: t.Player, Orphaned: true}
	}
	in := player.Input

	angle := PositiveAngle(t.Angle + turn(in.Rotate))
	turret := PositiveAngle(t.TurretAngle + turn(in.Turret))
	pos := t.Position
	switch in.Drive {
	case DriveForward:
		pos = pos.Add(perTick(angle, TankSpeed))
	case DriveReverse:
		step := perTick(angle, TankSpeed)
		pos = pos.Add(spatial.Vector{X: -step.X, Y: -step.Y})
	}

	next := Tank{
		Player:      t.Player,
		Position:    pos,
		Angle:       angle,
		TurretAngle: turret,
		Health:      hp,
	}
	if !in.Fire {
		return TankUpdate{Outcome: TankAlive, Tank: next}
	}
	// Muzzle is offset from the pre-tick position along the new turret
	// angle; the shell travels along the pre-tick turret angle.
	return TankUpdate{
		Outcome: TankFire,
		Tank:    next,
		Bullet: Bullet{
			Position: t.Position.Add(spatial.FromAngle(turret, MuzzleOffset*float64(GMOnePixel))),
			Angle:    t.TurretAngle,
			Damage:   BulletDamage,
			Player:   t.Player,
			Birth:    w.TickCount,
		},
	}
}
