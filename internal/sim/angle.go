package sim

import "math"

const tau = 2 * math.Pi

// PositiveAngle wraps a to [0, 2π)
func PositiveAngle(a float64) float64 {
	r := math.Mod(a, tau)
	if r < 0 {
		r += tau
	}
	if r >= tau {
		r = 0
	}
	return r
}

// turn returns the signed per-tick rotation for an intent
func turn(t Turn) float64 {
	switch t {
	case TurnLeft:
		return TurnRate
	case TurnRight:
		return -TurnRate
	}
	return 0
}
