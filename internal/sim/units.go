// Package sim is the authoritative world model: tanks, bullets, players
// and the pure tick function that advances them.
package sim

import (
	"math"

	"tankarena/internal/spatial"
)

// GMOnePixel is the number of game meters in one rendered pixel
const GMOnePixel = spatial.GMOnePixel

const (
	UpdatesPerSecond = 60

	TankMaxHealth int64   = 100
	TankSpeed     float64 = 280  // pixels/s
	BulletSpeed   float64 = 1000 // pixels/s
	BulletDamage  int64   = 10
	MuzzleOffset  float64 = 40 // pixels from tank centre

	// BulletLifetime is counted in ticks
	BulletLifetime uint64 = 60 * 10

	// FieldHalfExtent bounds the square play field centred on the origin
	FieldHalfExtent = 2000 * GMOnePixel
)

// TurnRate is applied per tick for each rotate or turret intent: half a
// turn per second.
const TurnRate = 2 * math.Pi * (0.5 / UpdatesPerSecond)

// InField reports whether p lies inside the play field
func InField(p spatial.Point) bool {
	return p.X >= -FieldHalfExtent && p.X <= FieldHalfExtent &&
		p.Y >= -FieldHalfExtent && p.Y <= FieldHalfExtent
}

// perTick converts a speed in pixels/s along angle into a per-tick step
func perTick(angle, pixelsPerSecond float64) spatial.Vector {
	v := spatial.FromAngle(angle, pixelsPerSecond*float64(GMOnePixel))
	return spatial.Vector{X: v.X / UpdatesPerSecond, Y: v.Y / UpdatesPerSecond}
}
