package server

import (
	"sync"

	"tankarena/internal/sim"
	"tankarena/internal/store"
)

// PlayerIdx is a player slot in the live world
type PlayerIdx = store.Idx[sim.Player]

type joinRequest struct {
	name  string
	reply chan PlayerIdx
}

// batch is everything connections asked for since the previous tick
type batch struct {
	joins  []joinRequest
	leaves []PlayerIdx
	inputs map[PlayerIdx]sim.Input
}

// Hub tracks connection limits and collects what connections want from
// the game loop. Connection handlers write into it; only the loop drains it.
type Hub struct {
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	maxConns   int
	maxPerIP   int

	// Inbox, swapped out whole by drain
	mu     sync.Mutex
	joins  []joinRequest
	leaves []PlayerIdx
	inputs map[PlayerIdx]sim.Input
}

// NewHub creates a Hub accepting at most maxConns connections in total
// and maxPerIP from one address
func NewHub(maxConns, maxPerIP int) *Hub {
	return &Hub{
		ipConns:  make(map[string]int),
		maxConns: maxConns,
		maxPerIP: maxPerIP,
		inputs:   make(map[PlayerIdx]sim.Input),
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.maxConns {
		return false
	}
	if h.ipConns[ip] >= h.maxPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}

// Join asks the game loop to add a player. The slot arrives on the
// returned channel once the next tick has processed the request.
func (h *Hub) Join(name string) <-chan PlayerIdx {
	reply := make(chan PlayerIdx, 1)
	h.mu.Lock()
	h.joins = append(h.joins, joinRequest{name: name, reply: reply})
	h.mu.Unlock()
	return reply
}

// Leave asks the game loop to remove a player
func (h *Hub) Leave(p PlayerIdx) {
	h.mu.Lock()
	h.leaves = append(h.leaves, p)
	delete(h.inputs, p)
	h.mu.Unlock()
}

// SetInput records the latest input for p. Inputs arriving within one tick
// overwrite each other; only the newest is applied.
func (h *Hub) SetInput(p PlayerIdx, in sim.Input) {
	h.mu.Lock()
	h.inputs[p] = in
	h.mu.Unlock()
}

// drain takes everything queued so far and leaves the inbox empty
func (h *Hub) drain() batch {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := batch{joins: h.joins, leaves: h.leaves, inputs: h.inputs}
	h.joins = nil
	h.leaves = nil
	h.inputs = make(map[PlayerIdx]sim.Input)
	return b
}
