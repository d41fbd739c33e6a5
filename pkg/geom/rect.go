package geom

import "math"

// Rect is an axis-aligned frame in desktop pixel space. W and H are never
// negative for frames produced by the accessibility layer; the accessors
// assume that.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) MinX() float64 { return r.X }
func (r Rect) MaxX() float64 { return r.X + r.W }
func (r Rect) MinY() float64 { return r.Y }
func (r Rect) MaxY() float64 { return r.Y + r.H }
func (r Rect) MidX() float64 { return r.X + r.W/2 }
func (r Rect) MidY() float64 { return r.Y + r.H/2 }

// Center returns the midpoint of the frame.
func (r Rect) Center() Vec {
	return Vec{X: r.MidX(), Y: r.MidY()}
}

// Area returns W*H.
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Contains reports whether p lies inside the frame, edges included.
func (r Rect) Contains(p Vec) bool {
	return p.X >= r.MinX() && p.X <= r.MaxX() && p.Y >= r.MinY() && p.Y <= r.MaxY()
}

// Inset shrinks the frame by dx horizontally and dy vertically on each
// side. Negative values grow the frame.
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: math.Max(r.W-2*dx, 0), H: math.Max(r.H-2*dy, 0)}
}

// Intersect returns the overlapping region of r and s, which is empty
// (zero W or H) when they do not overlap.
func (r Rect) Intersect(s Rect) Rect {
	minX := math.Max(r.MinX(), s.MinX())
	minY := math.Max(r.MinY(), s.MinY())
	maxX := math.Min(r.MaxX(), s.MaxX())
	maxY := math.Min(r.MaxY(), s.MaxY())
	if maxX <= minX || maxY <= minY {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Union returns the smallest frame containing both r and s.
func (r Rect) Union(s Rect) Rect {
	if r.W == 0 && r.H == 0 {
		return s
	}
	if s.W == 0 && s.H == 0 {
		return r
	}
	minX := math.Min(r.MinX(), s.MinX())
	minY := math.Min(r.MinY(), s.MinY())
	maxX := math.Max(r.MaxX(), s.MaxX())
	maxY := math.Max(r.MaxY(), s.MaxY())
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// ClampPoint moves p to the nearest point inside the frame.
func (r Rect) ClampPoint(p Vec) Vec {
	return Vec{
		X: Clamp(p.X, r.MinX(), r.MaxX()),
		Y: Clamp(p.Y, r.MinY(), r.MaxY()),
	}
}

// PointRectDistance returns the distance from p to the frame, zero when p
// lies inside it.
func PointRectDistance(p Vec, r Rect) float64 {
	dx := math.Max(math.Max(r.MinX()-p.X, 0), p.X-r.MaxX())
	dy := math.Max(math.Max(r.MinY()-p.Y, 0), p.Y-r.MaxY())
	return math.Hypot(dx, dy)
}

// SegmentIntersectsRect reports whether the segment [a, b] touches the
// frame: either endpoint inside, or the segment crossing any of the four
// edges.
func SegmentIntersectsRect(a, b Vec, r Rect) bool {
	if r.Contains(a) || r.Contains(b) {
		return true
	}
	tl := Vec{X: r.MinX(), Y: r.MinY()}
	tr := Vec{X: r.MaxX(), Y: r.MinY()}
	bl := Vec{X: r.MinX(), Y: r.MaxY()}
	br := Vec{X: r.MaxX(), Y: r.MaxY()}
	return segmentsIntersect(a, b, tl, tr) ||
		segmentsIntersect(a, b, tr, br) ||
		segmentsIntersect(a, b, br, bl) ||
		segmentsIntersect(a, b, bl, tl)
}

// Equivalent reports whether two frames describe the same on-screen
// element within the jitter tolerance of the accessibility layer: centers
// within 5px, sizes within 10px.
func Equivalent(l, r Rect) bool {
	return math.Abs(l.MidX()-r.MidX()) < 5 &&
		math.Abs(l.MidY()-r.MidY()) < 5 &&
		math.Abs(l.W-r.W) < 10 &&
		math.Abs(l.H-r.H) < 10
}
