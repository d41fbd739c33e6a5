// Package geom contains the pure planar geometry the pointer engine is
// built on: vectors in desktop pixel space, axis-aligned frames, and the
// distance and crossing tests the magnetism resolver relies on.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vec is a point or displacement in desktop pixel space.
type Vec r2.Vec

// Add returns the vector sum of v and o.
func (v Vec) Add(o Vec) Vec {
	return Vec(r2.Add(r2.Vec(v), r2.Vec(o)))
}

// Sub returns the vector sum of v and -o.
func (v Vec) Sub(o Vec) Vec {
	return Vec(r2.Sub(r2.Vec(v), r2.Vec(o)))
}

// Scale returns v scaled by f.
func (v Vec) Scale(f float64) Vec {
	return Vec(r2.Scale(f, r2.Vec(v)))
}

// Dot returns the dot product of v and o.
func (v Vec) Dot(o Vec) float64 {
	return r2.Dot(r2.Vec(v), r2.Vec(o))
}

// Cross returns the cross product of v and o.
func (v Vec) Cross(o Vec) float64 {
	return r2.Cross(r2.Vec(v), r2.Vec(o))
}

// Magnitude returns the euclidean length of v.
func Magnitude(v Vec) float64 {
	return r2.Norm(r2.Vec(v))
}

// Clamped scales v down to length limit when it is longer, otherwise
// returns v unchanged.
func Clamped(v Vec, limit float64) Vec {
	n := r2.Norm(r2.Vec(v))
	if n <= limit || n == 0 {
		return v
	}
	return v.Scale(limit / n)
}

// Clamp bounds x into [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// PointSegmentDistance returns the distance from p to the segment [a, b].
// A degenerate segment (a == b) yields the distance to a.
func PointSegmentDistance(p, a, b Vec) float64 {
	ab := b.Sub(a)
	len2 := r2.Norm2(r2.Vec(ab))
	if len2 == 0 {
		return Magnitude(p.Sub(a))
	}
	t := Clamp(p.Sub(a).Dot(ab)/len2, 0, 1)
	proj := a.Add(ab.Scale(t))
	return Magnitude(p.Sub(proj))
}

// SegmentIntersectsCircle reports whether the segment [a, b] passes within
// radius of center c.
func SegmentIntersectsCircle(a, b, c Vec, radius float64) bool {
	return PointSegmentDistance(c, a, b) <= radius
}

// orientation of the triplet (a, b, c) by the sign of the 2D cross product.
func orientation(a, b, c Vec) int {
	cross := b.Sub(a).Cross(c.Sub(a))
	switch {
	case cross > 0:
		return 1
	case cross < 0:
		return -1
	}
	return 0
}

// onSegment reports whether the collinear point p lies on the segment [a, b].
func onSegment(p, a, b Vec) bool {
	return p.X >= math.Min(a.X, b.X) && p.X <= math.Max(a.X, b.X) &&
		p.Y >= math.Min(a.Y, b.Y) && p.Y <= math.Max(a.Y, b.Y)
}

// segmentsIntersect reports whether the segments [p1, p2] and [q1, q2]
// intersect, including collinear overlap.
func segmentsIntersect(p1, p2, q1, q2 Vec) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}

	// collinear-overlap fallback
	if o1 == 0 && onSegment(q1, p1, p2) {
		return true
	}
	if o2 == 0 && onSegment(q2, p1, p2) {
		return true
	}
	if o3 == 0 && onSegment(p1, q1, q2) {
		return true
	}
	if o4 == 0 && onSegment(p2, q1, q2) {
		return true
	}
	return false
}
