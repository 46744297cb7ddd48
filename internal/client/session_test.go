package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tankarena/internal/config"
	"tankarena/internal/protocol"
	"tankarena/internal/server"
	"tankarena/internal/sim"
	"tankarena/internal/watch"
)

func startServer(t *testing.T) string {
	t.Helper()
	cfg := config.Default().Server
	s := server.New(cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Game().Run(ctx)
		close(done)
	}()
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + cfg.Path
}

func TestDrainLatest(t *testing.T) {
	frames := make(chan []byte, 4)
	frames <- []byte("b")
	frames <- []byte("c")
	if got := drainLatest([]byte("a"), frames); string(got) != "c" {
		t.Errorf("expected newest frame c, got %s", got)
	}
	if got := drainLatest([]byte("d"), frames); string(got) != "d" {
		t.Errorf("empty buffer should keep the first frame, got %s", got)
	}
}

func TestDialRejectsNonWelcome(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		frame, _ := protocol.EncodeInput(sim.Input{})
		conn.WriteMessage(websocket.BinaryMessage, frame)
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	if !errors.Is(err, ErrNotJoined) {
		t.Errorf("expected ErrNotJoined, got %v", err)
	}
}

func TestSessionPredictsOwnTank(t *testing.T) {
	url := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := Dial(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, ok := s.Initial().TankOf(s.Player()); !ok {
		t.Fatal("initial snapshot should contain our tank")
	}

	inputs := watch.New(sim.Input{Drive: sim.DriveForward})
	states := watch.New[*sim.World](nil)
	runCtx, stop := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() { errc <- s.Run(runCtx, inputs, states) }()

	_, seen := states.Load()
	for {
		w, ver, err := states.Wait(ctx, seen)
		if err != nil {
			t.Fatalf("no predicted world with movement: %v", err)
		}
		seen = ver
		if w == nil {
			continue
		}
		player, _ := w.Player(s.Player())
		_, tank, _ := w.TankOf(s.Player())
		if player.Input.Seq > 0 && tank.Position.X > 0 {
			break
		}
	}

	if n := len(s.Predictor().Pending()); n > 30 {
		t.Errorf("unacknowledged queue should stay small, got %d", n)
	}

	stop()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("cancelled session should return nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}
