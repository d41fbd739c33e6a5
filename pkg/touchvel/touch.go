// Package touchvel distills raw multi-touch frames into the few signals
// the motion engine needs: a touching/not-touching edge stream, the
// contact centroid, an exponentially smoothed normalized velocity, and a
// short suppression window after multi-finger contact.
package touchvel

import (
	"time"

	"github.com/mvanrijn/driftlock/pkg/geom"
)

// TouchState is the per-contact tracking state reported by the trackpad
// driver.
type TouchState int

const (
	NotTouching TouchState = iota
	Hovering
	Making
	Touching
	Breaking
	Lingering
)

func (s TouchState) String() string {
	states := []string{
		"NotTouching", "Hovering", "Making",
		"Touching", "Breaking", "Lingering",
	}
	if int(s) < len(states) {
		return states[s]
	}
	return "Unknown"
}

// Active reports whether the contact counts as finger-on-pad. Hovering
// fingers are tracked by the driver but carry no intent.
func (s TouchState) Active() bool {
	return s != NotTouching && s != Hovering
}

// Touch is a single contact with a normalized position in [0,1]².
type Touch struct {
	Pos   geom.Vec   `json:"pos"`
	State TouchState `json:"state"`
}

// Frame is one driver sample: the (possibly empty) set of contacts seen
// at Time.
type Frame struct {
	Time    time.Time `json:"time"`
	Touches []Touch   `json:"touches"`
}

// ActiveCount returns the number of contacts in an active state.
func (f Frame) ActiveCount() int {
	n := 0
	for _, t := range f.Touches {
		if t.State.Active() {
			n++
		}
	}
	return n
}

// Touching reports whether any contact is active.
func (f Frame) Touching() bool {
	return f.ActiveCount() > 0
}

// Centroid returns the arithmetic mean of the active contact positions.
// ok is false when the frame holds no active contact.
func (f Frame) Centroid() (c geom.Vec, ok bool) {
	n := 0
	for _, t := range f.Touches {
		if !t.State.Active() {
			continue
		}
		c = c.Add(t.Pos)
		n++
	}
	if n == 0 {
		return geom.Vec{}, false
	}
	return c.Scale(1 / float64(n)), true
}
