// Package driftlock contains the shared contracts of the pointer
// magnetism daemon: the collaborator interfaces the tick coordinator
// drives, the desktop bounds helper, the daemon configuration, and the
// generic frame poller used by input sources.
//
// The motion engine itself lives in pkg/engine; this package stays free
// of behavior so that platform backends and the core never depend on
// each other.
package driftlock

import (
	"github.com/mvanrijn/driftlock/pkg/eligibility"
	"github.com/mvanrijn/driftlock/pkg/geom"
)

// PointerSource reads the physical pointer location in global desktop
// space.
type PointerSource interface {
	Location() geom.Vec
}

// WarpSink mirrors the virtual cursor onto the OS pointer. Warp must be
// idempotent within a tick and survive display boundaries.
type WarpSink interface {
	Warp(geom.Vec) error
}

// CursorVisibility hides the OS cursor while the overlay draws its own
// artwork. Show must always be safe to call, including during partial
// shutdown.
type CursorVisibility interface {
	Hide() error
	Show() error
}

// Overlay is the cursor artwork window. It receives plain value updates
// from the tick thread and never calls back into the engine.
type Overlay interface {
	Show() error
	Hide()
	Move(geom.Vec)
	Animating() bool
}

// Inspector resolves a screen point to the accessibility element under
// it. ok is false when nothing is known about the point; the engine
// tolerates flicker.
type Inspector interface {
	ElementAt(geom.Vec) (eligibility.Element, bool)
}

// ForeignOverlayDetector reports whether the frontmost window at a point
// belongs to a known screenshot or utility overlay that must own the real
// cursor.
type ForeignOverlayDetector interface {
	ForeignOverlayTopmost(geom.Vec) bool
}

// DisplaySource enumerates the attached display frames.
type DisplaySource interface {
	Displays() []geom.Rect
}

// DesktopBounds returns the union of the display frames. ok is false
// when no display is known.
func DesktopBounds(displays []geom.Rect) (geom.Rect, bool) {
	if len(displays) == 0 {
		return geom.Rect{}, false
	}
	bounds := displays[0]
	for _, d := range displays[1:] {
		bounds = bounds.Union(d)
	}
	return bounds, true
}
