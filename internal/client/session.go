package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tankarena/internal/protocol"
	"tankarena/internal/sim"
	"tankarena/internal/store"
	"tankarena/internal/watch"
	"tankarena/pkg/logger"
)

// ErrNotJoined is returned by Dial when the server does not open with a
// welcome and a snapshot
var ErrNotJoined = errors.New("client: server did not send welcome")

const (
	sendInterval = time.Second / sim.UpdatesPerSecond
	writeWait    = 10 * time.Second
	frameBuffer  = 64
)

// Session is a joined connection to a game server
type Session struct {
	conn      *websocket.Conn
	player    store.Idx[sim.Player]
	initial   *sim.World
	predictor *Predictor
	log       *logrus.Entry
}

// Dial connects to url and reads the welcome and the first snapshot
func Dial(ctx context.Context, url string) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	s, err := handshake(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func handshake(conn *websocket.Conn) (*Session, error) {
	read := func() (protocol.Envelope, error) {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return protocol.Envelope{}, err
		}
		return protocol.Decode(raw)
	}

	env, err := read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotJoined, err)
	}
	welcome, err := protocol.DecodeWelcome(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotJoined, err)
	}
	env, err = read()
	if err != nil {
		return nil, fmt.Errorf("read initial state: %w", err)
	}
	initial, err := protocol.DecodeState(env)
	if err != nil {
		return nil, fmt.Errorf("read initial state: %w", err)
	}

	return &Session{
		conn:      conn,
		player:    welcome.Player,
		initial:   initial,
		predictor: NewPredictor(welcome.Player),
		log:       logger.Log.WithField("player", int(welcome.Player)),
	}, nil
}

// Player returns the slot the server assigned to us
func (s *Session) Player() store.Idx[sim.Player] {
	return s.player
}

// Initial returns the snapshot received right after the welcome
func (s *Session) Initial() *sim.World {
	return s.initial
}

// Predictor exposes the session's input queue
func (s *Session) Predictor() *Predictor {
	return s.predictor
}

// Run sends the current input every tick and publishes a predicted world
// for every snapshot received. The first failure on either direction
// closes the connection and is returned; cancelling ctx returns nil.
func (s *Session) Run(ctx context.Context, inputs *watch.Value[sim.Input], states *watch.Value[*sim.World]) error {
	defer s.conn.Close()
	states.Publish(s.initial)

	frames := make(chan []byte, frameBuffer)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.sendLoop(gctx, inputs) })
	g.Go(func() error { return s.readLoop(gctx, frames) })
	g.Go(func() error { return s.receiveLoop(gctx, frames, states) })
	g.Go(func() error {
		<-gctx.Done()
		s.conn.Close()
		return nil
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// sendLoop transmits one stamped input per tick
func (s *Session) sendLoop(ctx context.Context, inputs *watch.Value[sim.Input]) error {
	ticker := time.NewTicker(sendInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		in, _ := inputs.Load()
		frame, err := protocol.EncodeInput(s.predictor.Issue(in))
		if err != nil {
			return err
		}
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return fmt.Errorf("send input: %w", err)
		}
	}
}

// readLoop moves raw frames off the socket so receiveLoop can see how many
// are already waiting
func (s *Session) readLoop(ctx context.Context, frames chan<- []byte) error {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		select {
		case frames <- raw:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// receiveLoop decodes only the newest buffered snapshot, reconciles and
// publishes the predicted world
func (s *Session) receiveLoop(ctx context.Context, frames <-chan []byte, states *watch.Value[*sim.World]) error {
	for {
		var raw []byte
		select {
		case raw = <-frames:
		case <-ctx.Done():
			return ctx.Err()
		}
		raw = drainLatest(raw, frames)

		auth, err := decodeState(raw)
		if err != nil {
			s.log.WithError(err).Debug("dropping frame")
			continue
		}
		predicted := s.predictor.Reconcile(auth)
		if s.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
			s.log.WithFields(logrus.Fields{
				"tick":      auth.TickCount,
				"predicted": len(s.predictor.Pending()),
			}).Debug("reconciled")
		}
		states.Publish(predicted)
	}
}

// drainLatest returns the last frame already buffered in frames, or first
// if there is none. Skipped frames are never decoded.
func drainLatest(first []byte, frames <-chan []byte) []byte {
	latest := first
	for {
		select {
		case raw := <-frames:
			latest = raw
		default:
			return latest
		}
	}
}

func decodeState(raw []byte) (*sim.World, error) {
	env, err := protocol.Decode(raw)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeState(env)
}
