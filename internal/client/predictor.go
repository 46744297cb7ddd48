package client

import (
	"sync"

	"tankarena/internal/sim"
	"tankarena/internal/store"
)

// maxPending bounds the unacknowledged queue if the server stops answering
const maxPending = 256

// Predictor stamps outgoing inputs and replays the ones the server has not
// yet applied on top of each authoritative world.
type Predictor struct {
	player store.Idx[sim.Player]

	mu      sync.Mutex
	next    uint64
	pending []sim.Input
}

// NewPredictor creates a Predictor for the local player. Sequence numbers
// start at 1 so the zero input latched at spawn acknowledges nothing.
func NewPredictor(player store.Idx[sim.Player]) *Predictor {
	return &Predictor{player: player, next: 1}
}

// Issue stamps in with the next sequence number and queues it
func (p *Predictor) Issue(in sim.Input) sim.Input {
	p.mu.Lock()
	defer p.mu.Unlock()
	in.Seq = p.next
	p.next++
	p.pending = append(p.pending, in)
	if len(p.pending) > maxPending {
		p.pending = p.pending[len(p.pending)-maxPending:]
	}
	return in
}

// Reconcile drops every queued input that auth has applied, then ticks auth
// once per remaining input with that input substituted for the local
// player's. auth itself is not modified.
func (p *Predictor) Reconcile(auth *sim.World) *sim.World {
	var ack uint64
	if player, ok := auth.Player(p.player); ok {
		ack = player.Input.Seq
	}

	p.mu.Lock()
	drop := 0
	for drop < len(p.pending) && p.pending[drop].Seq <= ack {
		drop++
	}
	p.pending = append(p.pending[:0], p.pending[drop:]...)
	replay := make([]sim.Input, len(p.pending))
	copy(replay, p.pending)
	p.mu.Unlock()

	w := auth
	for _, in := range replay {
		w = w.WithInput(p.player, in).Tick()
	}
	return w
}

// Pending returns a copy of the unacknowledged inputs, oldest first
func (p *Predictor) Pending() []sim.Input {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]sim.Input, len(p.pending))
	copy(out, p.pending)
	return out
}
