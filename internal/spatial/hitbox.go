// Package spatial resolves point queries against oriented tank hitboxes.
package spatial

import "math"

// GMOnePixel is the number of game meters in one rendered pixel. All
// positions are integer game meters so repeated ticks never drift.
const GMOnePixel int64 = 10000

const (
	// TankHalfLength is measured along the tank's facing direction
	TankHalfLength = 20 * GMOnePixel
	// TankHalfWidth is measured across it
	TankHalfWidth = 15 * GMOnePixel
	// EnvelopeLimit bounds any rotation of the rectangle: the longest half
	// side inflated by sqrt(2), rounded up.
	EnvelopeLimit = (TankHalfLength*1414214 + 999999) / 1000000
)

// Point is a position in game meters
type Point struct {
	X int64 `msgpack:"x"`
	Y int64 `msgpack:"y"`
}

// Vector is a displacement in game meters
type Vector struct {
	X int64
	Y int64
}

// Add returns p moved by v
func (p Point) Add(v Vector) Point {
	return Point{X: p.X + v.X, Y: p.Y + v.Y}
}

// Sub returns the vector from q to p
func (p Point) Sub(q Point) Vector {
	return Vector{X: p.X - q.X, Y: p.Y - q.Y}
}

// SquareLength returns |v|²
func (v Vector) SquareLength() int64 {
	return v.X*v.X + v.Y*v.Y
}

// FromAngle returns a vector of the given length (game meters) pointing
// along angle. Components are truncated toward zero.
func FromAngle(angle, length float64) Vector {
	return Vector{
		X: int64(math.Cos(angle) * length),
		Y: int64(math.Sin(angle) * length),
	}
}

// Hitbox is a tank rectangle centred on Center and rotated by Angle
type Hitbox struct {
	Center Point
	Angle  float64
}

// Envelope returns the axis-aligned box that contains the rectangle at
// every rotation.
func (h Hitbox) Envelope() (lo, hi [2]float64) {
	lo = [2]float64{float64(h.Center.X - EnvelopeLimit), float64(h.Center.Y - EnvelopeLimit)}
	hi = [2]float64{float64(h.Center.X + EnvelopeLimit), float64(h.Center.Y + EnvelopeLimit)}
	return lo, hi
}

// Contains reports whether p lies inside the rotated rectangle (edges count).
func (h Hitbox) Contains(p Point) bool {
	rel := p.Sub(h.Center)
	if rel.SquareLength() > EnvelopeLimit*EnvelopeLimit*2 {
		return false
	}
	local := h.toLocal(rel)
	return abs(local.X) <= TankHalfLength && abs(local.Y) <= TankHalfWidth
}

// toLocal rotates a world-frame offset into the hitbox frame
func (h Hitbox) toLocal(v Vector) Vector {
	sin, cos := math.Sincos(h.Angle)
	x, y := float64(v.X), float64(v.Y)
	// the conversions round each product so no platform fuses them
	return Vector{
		X: int64(float64(x*cos) + float64(y*sin)),
		Y: int64(float64(y*cos) - float64(x*sin)),
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
