package client

import (
	"context"
	"time"

	"tankarena/internal/sim"
	"tankarena/internal/watch"
)

// FrameRate is the default presentation rate
const FrameRate = 60

// EventLoop drives a presentation backend: it publishes the local input
// and renders the newest world until ctx is done.
type EventLoop interface {
	Run(ctx context.Context, inputs *watch.Value[sim.Input], states *watch.Value[*sim.World]) error
}

// HeadlessLoop renders without a window. Script, if set, supplies the
// input for each frame in place of a keyboard.
type HeadlessLoop struct {
	Renderer Renderer
	Script   func(frame uint64) sim.Input
	FPS      int
}

// Run renders at FPS until ctx is cancelled or presenting fails
func (l *HeadlessLoop) Run(ctx context.Context, inputs *watch.Value[sim.Input], states *watch.Value[*sim.World]) error {
	fps := l.FPS
	if fps <= 0 {
		fps = FrameRate
	}
	r := l.Renderer
	if r == nil {
		r = NoopRenderer{}
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var frame uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if l.Script != nil {
			inputs.Publish(l.Script(frame))
		}
		w, _ := states.Load()
		if err := DrawWorld(w, r); err != nil {
			return err
		}
		frame++
	}
}
