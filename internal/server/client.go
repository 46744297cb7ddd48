package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tankarena/internal/eventlog"
	"tankarena/internal/protocol"
	"tankarena/internal/watch"
	"tankarena/pkg/logger"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	maxMessagesPerSec = 120
	defaultName       = "pog"
)

// Client is one websocket connection and the player it controls
type Client struct {
	hub        *Hub
	game       *Game
	conn       *websocket.Conn
	id         ksuid.KSUID
	remoteAddr string
	player     PlayerIdx
	log        *logrus.Entry
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, game *Game, conn *websocket.Conn, remoteAddr string) *Client {
	id := ksuid.New()
	return &Client{
		hub:        hub,
		game:       game,
		conn:       conn,
		id:         id,
		remoteAddr: remoteAddr,
		log: logger.Log.WithFields(logrus.Fields{
			"conn":   id.String(),
			"remote": remoteAddr,
		}),
	}
}

// Serve joins the game, sends the welcome and first snapshot, then runs
// the read and write pumps until either fails. The player is always
// scheduled for removal on the way out.
func (c *Client) Serve(ctx context.Context) error {
	defer c.conn.Close()

	reply := c.hub.Join(defaultName)
	select {
	case c.player = <-reply:
	case <-ctx.Done():
		go abandonJoin(c.hub, c.game.Done(), reply)
		return ctx.Err()
	}
	c.log = c.log.WithField("player", int(c.player))
	c.log.Info("player joined")
	c.game.events.Track(eventlog.Event{
		Kind: eventlog.KindConnect, Player: int64(c.player), Other: -1, Conn: c.id.String(),
	})
	defer func() {
		c.hub.Leave(c.player)
		c.game.events.Track(eventlog.Event{
			Kind: eventlog.KindDisconnect, Player: int64(c.player), Other: -1, Conn: c.id.String(),
		})
	}()

	// the snapshot published after the join reply already holds our tank
	feed := c.game.Snapshots()
	_, seen := feed.Load()
	snap, seen, err := feed.Wait(ctx, seen)
	if err != nil {
		return err
	}
	welcome, err := protocol.EncodeWelcome(protocol.Welcome{Player: c.player, Tick: snap.Tick})
	if err != nil {
		return err
	}
	if err := c.write(websocket.BinaryMessage, welcome); err != nil {
		return fmt.Errorf("send welcome: %w", err)
	}
	if err := c.write(websocket.BinaryMessage, snap.Frame); err != nil {
		return fmt.Errorf("send state: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.ReadPump() })
	g.Go(func() error { return c.WritePump(gctx, feed, seen) })
	g.Go(func() error {
		// unblocks ReadPump once the other side has failed
		<-gctx.Done()
		c.conn.Close()
		return nil
	})
	err = g.Wait()

	switch {
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
		c.log.WithError(err).Warn("connection closed unexpectedly")
	case errors.Is(err, watch.ErrClosed), errors.Is(err, context.Canceled):
		c.log.Info("connection closed by server")
	default:
		c.log.WithError(err).Info("connection closed")
	}
	return err
}

// abandonJoin removes the player a cancelled join produces, if the game
// loop still answers it.
func abandonJoin(hub *Hub, done <-chan struct{}, reply <-chan PlayerIdx) {
	select {
	case p := <-reply:
		hub.Leave(p)
	case <-done:
	}
}

// ReadPump reads input frames and hands them to the hub. It returns the
// first read error.
func (c *Client) ReadPump() error {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			return fmt.Errorf("rate limit exceeded for %s", c.remoteAddr)
		}

		c.handleMessage(message)
	}
}

// handleMessage drops anything that is not a well-formed input
func (c *Client) handleMessage(raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		c.log.WithError(err).Debug("dropping malformed message")
		return
	}
	if env.T != protocol.MsgInput {
		c.log.WithField("type", env.T).Debug("dropping unexpected message")
		return
	}
	in, err := protocol.DecodeInput(env)
	if err != nil {
		c.log.WithError(err).Debug("dropping malformed input")
		return
	}
	c.hub.SetInput(c.player, in)
}

// WritePump sends every snapshot newer than seen. Stale snapshots are
// skipped, never queued. A ping goes out whenever the line has been quiet
// for pingPeriod.
func (c *Client) WritePump(ctx context.Context, feed *watch.Value[Snapshot], seen uint64) error {
	lastPing := time.Now()
	for {
		waitCtx, cancel := context.WithTimeout(ctx, pingPeriod)
		snap, ver, err := feed.Wait(waitCtx, seen)
		cancel()

		switch {
		case err == nil:
			seen = ver
			if err := c.write(websocket.BinaryMessage, snap.Frame); err != nil {
				return err
			}
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		case errors.Is(err, watch.ErrClosed):
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return err
		default:
			return err
		}

		if time.Since(lastPing) >= pingPeriod {
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return err
			}
			lastPing = time.Now()
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
