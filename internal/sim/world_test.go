package sim

import (
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"tankarena/internal/spatial"
	"tankarena/internal/store"
)

func TestAddPlayerSpawnsFullHealthTank(t *testing.T) {
	w := NewWorld()
	p := w.AddPlayer("pog")

	ti, tank, ok := w.TankOf(p)
	if !ok {
		t.Fatal("expected a tank for the new player")
	}
	if tank.Health != TankMaxHealth || tank.Position != (spatial.Point{}) {
		t.Errorf("unexpected spawn %+v", tank)
	}
	if w.TankBullets.Len() != w.Tanks.Len() {
		t.Errorf("mailbox arena not aligned: %d vs %d", w.TankBullets.Len(), w.Tanks.Len())
	}
	if got, ok := w.Collide(spatial.Point{}); !ok || got != ti {
		t.Errorf("new tank should be indexed, got %d %v", got, ok)
	}
}

func TestAddPlayerReusesFreedSlots(t *testing.T) {
	w := NewWorld()
	w.AddPlayer("a")
	b := w.AddPlayer("b")
	w.AddPlayer("c")

	w.RemovePlayer(b)
	w = w.Tick()
	d := w.AddPlayer("d")
	if d != b {
		t.Errorf("expected player slot %d to be reused, got %d", b, d)
	}
	if w.Tanks.Count() != 3 {
		t.Errorf("expected three tanks, got %d", w.Tanks.Count())
	}
}

func TestSetInputEmptySlot(t *testing.T) {
	w := NewWorld()
	if w.SetInput(3, Input{Fire: true}) {
		t.Error("SetInput on a missing player should report false")
	}
}

func TestWithInputLeavesOriginal(t *testing.T) {
	w := NewWorld()
	p := w.AddPlayer("a")
	w.SetInput(p, Input{Seq: 1})

	c := w.WithInput(p, Input{Drive: DriveForward, Seq: 2})
	orig, _ := w.Player(p)
	got, _ := c.Player(p)
	if orig.Input.Seq != 1 || got.Input.Seq != 2 {
		t.Errorf("unexpected inputs: original %+v copy %+v", orig.Input, got.Input)
	}
}

func TestDecodedWorldRebuildsIndex(t *testing.T) {
	w := NewWorld()
	w.AddPlayerAt("a", spatial.Point{X: px(100)})
	_, bt := w.AddPlayerAt("b", spatial.Point{X: px(-100)})
	w.Bullets.Append(Bullet{Position: spatial.Point{X: px(-200)}, Damage: BulletDamage})

	b, err := msgpack.Marshal(w)
	if err != nil {
		t.Fatal(err)
	}
	var got World
	if err := msgpack.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	got.RebuildIndex()

	if k, ok := got.Collide(spatial.Point{X: px(-100)}); !ok || k != bt {
		t.Errorf("expected tank %d after rebuild, got %d %v", bt, k, ok)
	}
	if got.Bullets.Len() != 1 || got.Tanks.Count() != 2 {
		t.Errorf("decoded world lost entities: %s", got.Summary())
	}
	if _, ok := got.TankBullets.Get(store.Idx[[]Bullet](bt)); ok {
		t.Error("empty mailbox slot should decode as a tombstone")
	}
}

func TestDecodedWorldTicksIdentically(t *testing.T) {
	w := NewWorld()
	a := w.AddPlayer("a")
	w.AddPlayerAt("b", spatial.Point{X: px(60)})
	w.SetInput(a, Input{Fire: true})
	w = w.Tick()

	b, err := msgpack.Marshal(w)
	if err != nil {
		t.Fatal(err)
	}
	var decoded World
	if err := msgpack.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}

	want, err := msgpack.Marshal(w.Tick())
	if err != nil {
		t.Fatal(err)
	}
	got, err := msgpack.Marshal(decoded.Tick())
	if err != nil {
		t.Fatal(err)
	}
	if string(want) != string(got) {
		t.Error("a decoded world without an index should tick identically")
	}
}

func TestSummary(t *testing.T) {
	w := NewWorld()
	w.AddPlayer("a")
	s := w.Summary()
	if !strings.Contains(s, "players=1") || !strings.Contains(s, "tanks=1") {
		t.Errorf("unexpected summary %q", s)
	}
}
