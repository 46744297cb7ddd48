package spatial

import (
	"math"
	"testing"
)

func TestIndexInsertAndLocate(t *testing.T) {
	ix := NewIndex[int]()
	ix.Insert(0, Hitbox{Center: Point{X: px(100), Y: px(100)}})

	k, ok := ix.Locate(Point{X: px(105), Y: px(95)})
	if !ok || k != 0 {
		t.Errorf("expected to locate key 0, got %d %v", k, ok)
	}
	if _, ok := ix.Locate(Point{X: px(3000), Y: px(3000)}); ok {
		t.Error("should not locate anything far away")
	}
}

func TestIndexInsertReplacesKey(t *testing.T) {
	ix := NewIndex[int]()
	ix.Insert(3, Hitbox{})
	ix.Insert(3, Hitbox{Center: Point{X: px(500)}})

	if ix.Len() != 1 {
		t.Fatalf("expected a single entry, got %d", ix.Len())
	}
	if _, ok := ix.Locate(Point{}); ok {
		t.Error("old hitbox should be gone")
	}
	if k, ok := ix.Locate(Point{X: px(500)}); !ok || k != 3 {
		t.Errorf("expected key 3 at new position, got %d %v", k, ok)
	}
}

func TestIndexRemove(t *testing.T) {
	ix := NewIndex[int]()
	ix.Insert(1, Hitbox{})
	if _, ok := ix.Remove(1); !ok {
		t.Fatal("expected remove to report the entry")
	}
	if _, ok := ix.Remove(1); ok {
		t.Error("second remove should report nothing")
	}
	if _, ok := ix.Locate(Point{}); ok {
		t.Error("removed hitbox still located")
	}
}

func TestIndexUpdateOnlyOnChange(t *testing.T) {
	ix := NewIndex[int]()
	hb := Hitbox{Center: Point{X: px(10)}}
	ix.Insert(0, hb)
	if ix.Update(0, hb) {
		t.Error("identical hitbox should not count as a change")
	}
	if !ix.Update(0, Hitbox{Center: Point{X: px(10)}, Angle: math.Pi / 2}) {
		t.Error("rotated hitbox should count as a change")
	}
	if got, _ := ix.Lookup(0); got.Angle != math.Pi/2 {
		t.Errorf("lookup returned stale hitbox %+v", got)
	}
}

func TestIndexOverlapPicksLowestKey(t *testing.T) {
	ix := NewIndex[int]()
	ix.Insert(7, Hitbox{})
	ix.Insert(2, Hitbox{})
	ix.Insert(5, Hitbox{})
	for i := 0; i < 10; i++ {
		if k, _ := ix.Locate(Point{}); k != 2 {
			t.Fatalf("expected lowest key 2, got %d", k)
		}
	}
}

func TestIndexEnvelopeHitButNarrowMiss(t *testing.T) {
	ix := NewIndex[int]()
	ix.Insert(0, Hitbox{})
	// inside the envelope corner, outside the rectangle
	if _, ok := ix.Locate(Point{X: px(19), Y: px(19)}); ok {
		t.Error("narrow phase should reject the envelope corner")
	}
}

func TestIndexCloneIsIndependent(t *testing.T) {
	ix := NewIndex[int]()
	ix.Insert(0, Hitbox{})
	c := ix.Clone()
	c.Remove(0)
	c.Insert(1, Hitbox{Center: Point{X: px(200)}})

	if _, ok := ix.Locate(Point{}); !ok {
		t.Error("original lost its entry after clone mutation")
	}
	if _, ok := ix.Locate(Point{X: px(200)}); ok {
		t.Error("original sees clone insert")
	}
	if ix.Len() != 1 || c.Len() != 1 {
		t.Errorf("unexpected lengths %d %d", ix.Len(), c.Len())
	}
}
