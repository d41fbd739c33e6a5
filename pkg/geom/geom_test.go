package geom

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

// The geometry kernel is exercised as a set of pure functions. The tests
// focus on the properties the magnetism resolver depends on: clamped
// projections, crossing detection including collinear overlap, and the
// frame-equivalence tolerance.

const epsFloat = 1e-9

func almost(a, b float64) bool {
	return scalar.EqualWithinAbs(a, b, epsFloat)
}

func TestMagnitude(t *testing.T) {
	if !almost(Magnitude(Vec{X: 3, Y: 4}), 5) {
		t.Fatalf("expected |(3,4)| = 5, got %v", Magnitude(Vec{X: 3, Y: 4}))
	}
	if !almost(Magnitude(Vec{}), 0) {
		t.Fatalf("expected zero magnitude for zero vector")
	}
}

func TestClamped(t *testing.T) {
	v := Clamped(Vec{X: 30, Y: 40}, 5)
	if !almost(Magnitude(v), 5) {
		t.Fatalf("expected clamped magnitude 5, got %v", Magnitude(v))
	}
	// direction preserved
	if !almost(v.X/v.Y, 30.0/40.0) {
		t.Fatalf("expected direction preserved, got %v", v)
	}

	id := Vec{X: 1, Y: 2}
	if got := Clamped(id, 10); got != id {
		t.Fatalf("expected identity below limit, got %v", got)
	}
	if got := Clamped(Vec{}, 10); got != (Vec{}) {
		t.Fatalf("expected zero vector unchanged, got %v", got)
	}
}

func TestPointSegmentDistance(t *testing.T) {
	a := Vec{X: 0, Y: 0}
	b := Vec{X: 10, Y: 0}

	// orthogonal projection inside the segment
	if d := PointSegmentDistance(Vec{X: 5, Y: 3}, a, b); !almost(d, 3) {
		t.Fatalf("expected distance 3, got %v", d)
	}
	// projection clamped to endpoint a
	if d := PointSegmentDistance(Vec{X: -4, Y: 3}, a, b); !almost(d, 5) {
		t.Fatalf("expected distance 5 past endpoint, got %v", d)
	}
	// degenerate segment
	if d := PointSegmentDistance(Vec{X: 3, Y: 4}, a, a); !almost(d, 5) {
		t.Fatalf("expected |p-a| for degenerate segment, got %v", d)
	}
}

func TestSegmentCircleMatchesSegmentDistance(t *testing.T) {
	// segmentCircle(a,b,c,r) must hold exactly when the segment distance
	// to the center is within r.
	cases := []struct {
		a, b, c Vec
		r       float64
	}{
		{Vec{0, 0}, Vec{10, 0}, Vec{5, 2}, 3},
		{Vec{0, 0}, Vec{10, 0}, Vec{5, 4}, 3},
		{Vec{0, 0}, Vec{0, 0}, Vec{1, 1}, 1.5},
		{Vec{-5, -5}, Vec{5, 5}, Vec{5, -5}, 7.2},
	}
	for i, tc := range cases {
		want := PointSegmentDistance(tc.c, tc.a, tc.b) <= tc.r
		if got := SegmentIntersectsCircle(tc.a, tc.b, tc.c, tc.r); got != want {
			t.Fatalf("case %d: circle test %v, distance test %v", i, got, want)
		}
	}
}

func TestSegmentIntersectsRect(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 20, H: 10}

	// endpoint inside
	if !SegmentIntersectsRect(Vec{X: 15, Y: 15}, Vec{X: 100, Y: 100}, r) {
		t.Fatalf("expected hit with endpoint inside")
	}
	// full crossing without endpoints inside
	if !SegmentIntersectsRect(Vec{X: 0, Y: 15}, Vec{X: 50, Y: 15}, r) {
		t.Fatalf("expected hit crossing two edges")
	}
	// miss
	if SegmentIntersectsRect(Vec{X: 0, Y: 0}, Vec{X: 50, Y: 0}, r) {
		t.Fatalf("expected miss above the frame")
	}
	// collinear overlap along the top edge
	if !SegmentIntersectsRect(Vec{X: 0, Y: 10}, Vec{X: 50, Y: 10}, r) {
		t.Fatalf("expected hit for collinear overlap on edge")
	}
}

func TestPointRectDistance(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 10, H: 10}
	if d := PointRectDistance(Vec{X: 5, Y: 5}, r); !almost(d, 0) {
		t.Fatalf("expected zero inside, got %v", d)
	}
	if d := PointRectDistance(Vec{X: 13, Y: 14}, r); !almost(d, 5) {
		t.Fatalf("expected corner distance 5, got %v", d)
	}
	if d := PointRectDistance(Vec{X: -2, Y: 5}, r); !almost(d, 2) {
		t.Fatalf("expected edge distance 2, got %v", d)
	}
}

func TestEquivalentReflexiveSymmetric(t *testing.T) {
	a := Rect{X: 100, Y: 100, W: 60, H: 40}
	b := Rect{X: 103, Y: 98, W: 55, H: 45}
	c := Rect{X: 120, Y: 100, W: 60, H: 40}

	if !Equivalent(a, a) {
		t.Fatalf("expected reflexivity")
	}
	if Equivalent(a, b) != Equivalent(b, a) {
		t.Fatalf("expected symmetry")
	}
	if !Equivalent(a, b) {
		t.Fatalf("expected frames within tolerance to be equivalent")
	}
	if Equivalent(a, c) {
		t.Fatalf("expected frames 20px apart to differ")
	}
}

func TestRectAccessors(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 30, H: 40}
	if r.MinX() != 10 || r.MaxX() != 40 || r.MinY() != 20 || r.MaxY() != 60 {
		t.Fatalf("unexpected extents: %v", r)
	}
	if r.MidX() != 25 || r.MidY() != 40 {
		t.Fatalf("unexpected midpoints: %v %v", r.MidX(), r.MidY())
	}
	if c := r.Center(); c.X != 25 || c.Y != 40 {
		t.Fatalf("unexpected center: %v", c)
	}
}

func TestIntersectAndUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}

	in := a.Intersect(b)
	if in.X != 5 || in.Y != 5 || in.W != 5 || in.H != 5 {
		t.Fatalf("unexpected intersection: %v", in)
	}
	if ar := a.Intersect(Rect{X: 50, Y: 50, W: 5, H: 5}).Area(); ar != 0 {
		t.Fatalf("expected empty intersection, got area %v", ar)
	}

	un := a.Union(b)
	if un.X != 0 || un.Y != 0 || un.W != 15 || un.H != 15 {
		t.Fatalf("unexpected union: %v", un)
	}
	if got := (Rect{}).Union(b); got != b {
		t.Fatalf("expected union with empty to be identity, got %v", got)
	}
}

func TestInsetGrowsAndShrinks(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 20, H: 20}
	grown := r.Inset(-5, -2)
	if grown.X != 5 || grown.Y != 8 || grown.W != 30 || grown.H != 24 {
		t.Fatalf("unexpected grown frame: %v", grown)
	}
	collapsed := r.Inset(15, 15)
	if collapsed.W != 0 || collapsed.H != 0 {
		t.Fatalf("expected collapsed frame, got %v", collapsed)
	}
}

func TestClampPoint(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 100, H: 50}
	p := r.ClampPoint(Vec{X: -10, Y: 200})
	if p.X != 0 || p.Y != 50 {
		t.Fatalf("unexpected clamp: %v", p)
	}
	inside := Vec{X: 30, Y: 30}
	if got := r.ClampPoint(inside); got != inside {
		t.Fatalf("expected identity inside bounds, got %v", got)
	}
}
