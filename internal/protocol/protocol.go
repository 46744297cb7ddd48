// Package protocol defines the binary frames exchanged over the game
// websocket. Every frame is a msgpack Envelope whose payload is decoded
// according to its type byte.
package protocol

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"tankarena/internal/sim"
	"tankarena/internal/store"
)

// Server -> Client message types
const (
	MsgWelcome uint8 = 1 // assigned player slot, sent once
	MsgState   uint8 = 2 // full world snapshot
)

// Client -> Server message types
const (
	MsgInput uint8 = 3
)

var (
	ErrEmptyMessage   = errors.New("protocol: empty message")
	ErrUnknownMessage = errors.New("protocol: unknown message type")
	ErrWrongMessage   = errors.New("protocol: unexpected message type")
)

// Envelope wraps every frame. D stays raw until the type is known.
type Envelope struct {
	T uint8              `msgpack:"t"`
	D msgpack.RawMessage `msgpack:"d"`
}

// Welcome tells a new connection which player slot is theirs
type Welcome struct {
	Player store.Idx[sim.Player] `msgpack:"id"`
	Tick   uint64                `msgpack:"tick"`
}

func encode(t uint8, payload any) ([]byte, error) {
	d, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload %d: %w", t, err)
	}
	b, err := msgpack.Marshal(Envelope{T: t, D: d})
	if err != nil {
		return nil, fmt.Errorf("encode envelope %d: %w", t, err)
	}
	return b, nil
}

// EncodeWelcome builds the first frame sent to a connection
func EncodeWelcome(w Welcome) ([]byte, error) {
	return encode(MsgWelcome, w)
}

// EncodeState builds a snapshot frame for w
func EncodeState(w *sim.World) ([]byte, error) {
	return encode(MsgState, w)
}

// EncodeInput builds the frame a client sends for one input
func EncodeInput(in sim.Input) ([]byte, error) {
	return encode(MsgInput, in)
}

// Decode reads the envelope of a frame without touching its payload
func Decode(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, ErrEmptyMessage
	}
	var env Envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.T {
	case MsgWelcome, MsgState, MsgInput:
		return env, nil
	}
	return Envelope{}, fmt.Errorf("%w: %d", ErrUnknownMessage, env.T)
}

func payload(env Envelope, want uint8, v any) error {
	if env.T != want {
		return fmt.Errorf("%w: got %d, want %d", ErrWrongMessage, env.T, want)
	}
	if err := msgpack.Unmarshal(env.D, v); err != nil {
		return fmt.Errorf("decode payload %d: %w", want, err)
	}
	return nil
}

// DecodeWelcome reads a MsgWelcome payload
func DecodeWelcome(env Envelope) (Welcome, error) {
	var w Welcome
	err := payload(env, MsgWelcome, &w)
	return w, err
}

// DecodeState reads a MsgState payload. The returned world has its
// spatial index rebuilt and is ready to tick.
func DecodeState(env Envelope) (*sim.World, error) {
	w := sim.NewWorld()
	if err := payload(env, MsgState, w); err != nil {
		return nil, err
	}
	w.RebuildIndex()
	return w, nil
}

// DecodeInput reads a MsgInput payload
func DecodeInput(env Envelope) (sim.Input, error) {
	var in sim.Input
	err := payload(env, MsgInput, &in)
	return in, err
}
