package spatial

import (
	"math"
	"testing"
)

func px(v int64) int64 { return v * GMOnePixel }

func TestHitboxContainsCenter(t *testing.T) {
	hb := Hitbox{}
	if !hb.Contains(Point{}) {
		t.Error("origin hitbox should contain the origin")
	}
}

func TestHitboxEdgesCount(t *testing.T) {
	hb := Hitbox{}
	if !hb.Contains(Point{X: TankHalfLength, Y: TankHalfWidth}) {
		t.Error("corner should be contained")
	}
	if hb.Contains(Point{X: TankHalfLength + 1}) {
		t.Error("just past the front edge should not be contained")
	}
}

func TestHitboxOutsideEnvelope(t *testing.T) {
	hb := Hitbox{Center: Point{X: px(100), Y: px(-50)}, Angle: 1.1}
	cases := []Point{
		{X: px(100) + 2*EnvelopeLimit, Y: px(-50)},
		{X: px(100), Y: px(-50) - 2*EnvelopeLimit},
		{X: px(-3000), Y: px(3000)},
	}
	for _, p := range cases {
		if hb.Contains(p) {
			t.Errorf("point %+v outside the envelope should not be contained", p)
		}
	}
}

func TestHitboxRotationIsAsymmetric(t *testing.T) {
	p := Point{X: px(18)}
	if !(Hitbox{}).Contains(p) {
		t.Fatal("point along the long axis should be contained at 0 rad")
	}
	if (Hitbox{Angle: math.Pi / 2}).Contains(p) {
		t.Error("after a quarter turn the same point lies across the short axis")
	}
	if !(Hitbox{Angle: math.Pi / 2}).Contains(Point{Y: px(18)}) {
		t.Error("rotated long axis should contain the rotated point")
	}
}

func TestHitboxTranslated(t *testing.T) {
	hb := Hitbox{Center: Point{X: px(500), Y: px(500)}, Angle: math.Pi}
	if !hb.Contains(Point{X: px(490), Y: px(505)}) {
		t.Error("expected offset point inside translated hitbox")
	}
	if hb.Contains(Point{X: px(500), Y: px(520)}) {
		t.Error("20px across the short axis should be outside")
	}
}

func TestFromAngle(t *testing.T) {
	v := FromAngle(0, float64(px(40)))
	if v.X != px(40) || v.Y != 0 {
		t.Errorf("expected (%d,0), got %+v", px(40), v)
	}
	v = FromAngle(math.Pi/2, float64(px(40)))
	if v.X != 0 || v.Y != px(40) {
		t.Errorf("expected (0,%d), got %+v", px(40), v)
	}
	// 40px at 135 degrees is about (-282842.7, 282842.7) game meters
	v = FromAngle(3*math.Pi/4, float64(px(40)))
	if v.X != -282842 || v.Y != 282842 {
		t.Errorf("components should truncate toward zero, got %+v", v)
	}
}
