// Package client connects to a game server, predicts the local tank ahead
// of the authoritative world and hands the result to a Renderer.
package client

import (
	"github.com/sirupsen/logrus"

	"tankarena/internal/sim"
	"tankarena/pkg/logger"
)

// Renderer is the presentation capability. It is handed every tank and
// bullet of one world, then asked to present the frame.
type Renderer interface {
	DrawTank(t sim.Tank)
	DrawBullet(b sim.Bullet)
	PresentFrame() error
}

// DrawWorld renders w through r. A nil world presents an empty frame.
func DrawWorld(w *sim.World, r Renderer) error {
	if w != nil {
		for _, t := range w.Tanks.All() {
			r.DrawTank(t)
		}
		for _, b := range w.Bullets.All() {
			r.DrawBullet(b)
		}
	}
	return r.PresentFrame()
}

// NoopRenderer draws nothing
type NoopRenderer struct{}

func (NoopRenderer) DrawTank(sim.Tank)     {}
func (NoopRenderer) DrawBullet(sim.Bullet) {}
func (NoopRenderer) PresentFrame() error   { return nil }

// StatsRenderer counts what it is asked to draw and logs a line every
// LogEvery frames at debug level
type StatsRenderer struct {
	LogEvery int

	Frames  int
	Tanks   int // in the last presented frame
	Bullets int // in the last presented frame

	tanks, bullets int
}

func (r *StatsRenderer) DrawTank(sim.Tank)     { r.tanks++ }
func (r *StatsRenderer) DrawBullet(sim.Bullet) { r.bullets++ }

func (r *StatsRenderer) PresentFrame() error {
	r.Frames++
	r.Tanks, r.Bullets = r.tanks, r.bullets
	r.tanks, r.bullets = 0, 0
	if r.LogEvery > 0 && r.Frames%r.LogEvery == 0 {
		logger.Log.WithFields(logrus.Fields{
			"frames":  r.Frames,
			"tanks":   r.Tanks,
			"bullets": r.Bullets,
		}).Debug("frame")
	}
	return nil
}
