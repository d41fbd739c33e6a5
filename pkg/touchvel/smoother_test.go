package touchvel

import (
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/mvanrijn/driftlock/pkg/geom"
)

func almost(a, b float64) bool {
	return scalar.EqualWithinAbs(a, b, 1e-9)
}

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func frameAt(ms int, touches ...Touch) Frame {
	return Frame{Time: t0.Add(time.Duration(ms) * time.Millisecond), Touches: touches}
}

func touching(x, y float64) Touch {
	return Touch{Pos: geom.Vec{X: x, Y: y}, State: Touching}
}

func TestFrameTouchingIgnoresHover(t *testing.T) {
	f := frameAt(0,
		Touch{Pos: geom.Vec{X: 0.5, Y: 0.5}, State: Hovering},
		Touch{Pos: geom.Vec{X: 0.2, Y: 0.2}, State: NotTouching},
	)
	if f.Touching() {
		t.Fatalf("hovering contacts must not count as touching")
	}

	f = frameAt(0, Touch{Pos: geom.Vec{X: 0.5, Y: 0.5}, State: Breaking})
	if !f.Touching() {
		t.Fatalf("breaking contact still counts as touching")
	}
}

func TestCentroid(t *testing.T) {
	f := frameAt(0, touching(0.2, 0.4), touching(0.6, 0.8))
	c, ok := f.Centroid()
	if !ok {
		t.Fatalf("expected centroid for active contacts")
	}
	if !almost(c.X, 0.4) || !almost(c.Y, 0.6) {
		t.Fatalf("unexpected centroid %v", c)
	}

	if _, ok := frameAt(0).Centroid(); ok {
		t.Fatalf("expected no centroid for empty frame")
	}
}

func TestSmoothedVelocityConverges(t *testing.T) {
	s := NewSmoother(DefaultParams)

	// constant centroid motion of 0.01 pad units per 10ms = 1 unit/s
	for i := 0; i <= 40; i++ {
		s.Consume(frameAt(i*10, touching(0.0+float64(i)*0.01, 0.5)))
	}
	snap := s.Snapshot()
	if !snap.Touching {
		t.Fatalf("expected touching snapshot")
	}
	if snap.Velocity.X < 0.9 || snap.Velocity.X > 1.1 {
		t.Fatalf("expected smoothed X velocity near 1.0 units/s, got %v", snap.Velocity.X)
	}
	if !almost(snap.Velocity.Y, 0) {
		t.Fatalf("expected zero Y velocity, got %v", snap.Velocity.Y)
	}
}

func TestEmptyFrameClearsVelocity(t *testing.T) {
	s := NewSmoother(DefaultParams)
	s.Consume(frameAt(0, touching(0.1, 0.1)))
	s.Consume(frameAt(10, touching(0.3, 0.1)))
	if v := s.Snapshot().Velocity; v.X == 0 {
		t.Fatalf("expected nonzero velocity before lift")
	}

	s.Consume(frameAt(20))
	snap := s.Snapshot()
	if snap.Touching {
		t.Fatalf("expected not touching after empty frame")
	}
	if snap.Velocity != (geom.Vec{}) {
		t.Fatalf("expected velocity cleared on empty frame, got %v", snap.Velocity)
	}
}

func TestFirstFrameHasNoVelocity(t *testing.T) {
	s := NewSmoother(DefaultParams)
	s.Consume(frameAt(0, touching(0.9, 0.9)))
	if v := s.Snapshot().Velocity; v != (geom.Vec{}) {
		t.Fatalf("expected zero velocity on first frame, got %v", v)
	}
}

func TestMultiFingerSuppression(t *testing.T) {
	s := NewSmoother(DefaultParams)
	s.Consume(frameAt(0, touching(0.3, 0.3), touching(0.6, 0.6)))

	snap := s.Snapshot()
	now := t0.Add(100 * time.Millisecond)
	if !snap.SuppressGlide(now) {
		t.Fatalf("expected suppression 100ms after two-finger frame")
	}
	after := t0.Add(200 * time.Millisecond)
	if snap.SuppressGlide(after) {
		t.Fatalf("expected suppression expired after 150ms window")
	}

	// single-finger frames do not refresh the deadline
	s.Consume(frameAt(10, touching(0.35, 0.3)))
	if got := s.Snapshot().SuppressEnd; !got.Equal(t0.Add(DefaultParams.SuppressWindow)) {
		t.Fatalf("expected unchanged deadline, got %v", got)
	}
}

func TestTouchEdgesPosted(t *testing.T) {
	s := NewSmoother(DefaultParams)

	s.Consume(frameAt(0, touching(0.5, 0.5)))
	s.Consume(frameAt(10, touching(0.5, 0.5))) // no transition
	s.Consume(frameAt(20))

	select {
	case v := <-s.Edges():
		if !v {
			t.Fatalf("expected first edge to be touch-down")
		}
	default:
		t.Fatalf("expected a touch-down edge")
	}
	select {
	case v := <-s.Edges():
		if v {
			t.Fatalf("expected second edge to be touch-up")
		}
	default:
		t.Fatalf("expected a touch-up edge")
	}
	select {
	case <-s.Edges():
		t.Fatalf("expected exactly two edges")
	default:
	}
}

func TestVelocityUsesMinDT(t *testing.T) {
	s := NewSmoother(DefaultParams)
	s.Consume(frameAt(0, touching(0.0, 0.0)))
	// second frame arrives "instantly"; divisor must clamp to MinDT
	s.Consume(Frame{Time: t0, Touches: []Touch{touching(0.1, 0.0)}})
	v := s.Snapshot().Velocity
	want := 0.1 / DefaultParams.MinDT.Seconds() * DefaultParams.Alpha
	if !almost(v.X, want) {
		t.Fatalf("expected clamped-dt velocity %v, got %v", want, v.X)
	}
}
