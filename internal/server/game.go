package server

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tankarena/internal/eventlog"
	"tankarena/internal/protocol"
	"tankarena/internal/sim"
	"tankarena/internal/watch"
	"tankarena/pkg/logger"
)

const (
	TickRate     = sim.UpdatesPerSecond // simulation ticks per second
	TickDuration = time.Second / TickRate
	// SummaryEvery is how often (in ticks) the world summary is logged
	SummaryEvery = TickRate
)

// Snapshot is one encoded MsgState frame, shared by every connection
type Snapshot struct {
	Tick  uint64
	Frame []byte
}

// Stats is the live view served on /stats
type Stats struct {
	Tick    uint64 `json:"tick"`
	Players int    `json:"players"`
	Tanks   int    `json:"tanks"`
	Bullets int    `json:"bullets"`
	Conns   int    `json:"conns"`
	Deaths  int    `json:"deaths"`
}

// Game owns the authoritative world. Only Run (or Step, in tests) touches
// it; connections see it through the encoded snapshot.
type Game struct {
	hub    *Hub
	events *eventlog.Recorder
	world  *sim.World
	states *watch.Value[Snapshot]
	done   chan struct{}

	mu     sync.RWMutex
	stats  Stats
	deaths int
}

// NewGame creates a Game around an empty world
func NewGame(hub *Hub, events *eventlog.Recorder) *Game {
	g := &Game{
		hub:    hub,
		events: events,
		world:  sim.NewWorld(),
		done:   make(chan struct{}),
	}
	g.states = watch.New(g.encode())
	return g
}

// Run steps the world at TickRate until ctx is cancelled, then closes the
// snapshot feed so every connection's writer returns. Run must be called
// at most once.
func (g *Game) Run(ctx context.Context) {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()
	defer close(g.done)
	defer g.states.Close()

	for {
		select {
		case <-ticker.C:
			g.Step(g.hub.drain())
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once Run has returned; no join is answered after that
func (g *Game) Done() <-chan struct{} {
	return g.done
}

// Step applies one batch of connection requests and advances the world
// by one tick: joins, then leaves, then inputs, then the tick itself.
func (g *Game) Step(b batch) {
	w := g.world
	for _, j := range b.joins {
		p := w.AddPlayer(j.name)
		j.reply <- p
	}
	for _, p := range b.leaves {
		w.RemovePlayer(p)
	}
	for p, in := range b.inputs {
		w.SetInput(p, in)
	}

	w = w.Tick()
	g.world = w

	for _, d := range w.Deaths {
		g.reportDeath(w.TickCount, d)
	}
	if w.TickCount%SummaryEvery == 0 {
		logger.Log.WithField("tick", w.TickCount).Debug(w.Summary())
	}

	g.states.Publish(g.encode())

	g.mu.Lock()
	g.deaths += len(w.Deaths)
	g.stats = Stats{
		Tick:    w.TickCount,
		Players: w.Players.Count(),
		Tanks:   w.Tanks.Count(),
		Bullets: w.Bullets.Len(),
		Deaths:  g.deaths,
	}
	g.mu.Unlock()
}

func (g *Game) encode() Snapshot {
	frame, err := protocol.EncodeState(g.world)
	if err != nil {
		logger.Log.WithError(err).Error("encode state")
	}
	return Snapshot{Tick: g.world.TickCount, Frame: frame}
}

func (g *Game) reportDeath(tick uint64, d sim.Death) {
	fields := logrus.Fields{
		"tick":   tick,
		"tank":   int(d.Tank),
		"player": int(d.Owner),
	}
	if d.Orphaned {
		logger.Log.WithFields(fields).Info("tank removed, player gone")
		g.events.Track(eventlog.Event{
			Kind: eventlog.KindOrphan, Tick: tick,
			Player: int64(d.Owner), Other: -1,
		})
		return
	}
	fields["killer"] = int(d.Killer)
	logger.Log.WithFields(fields).Info("tank destroyed")
	g.events.Track(eventlog.Event{
		Kind: eventlog.KindKill, Tick: tick,
		Player: int64(d.Owner), Other: int64(d.Killer),
	})
}

// Snapshots is the broadcast feed of encoded world states
func (g *Game) Snapshots() *watch.Value[Snapshot] {
	return g.states
}

// Stats returns the counters of the most recent tick
func (g *Game) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.stats
	s.Conns = g.hub.TotalConns()
	return s
}
