package ticker

import (
	"math"
	"time"

	"github.com/mvanrijn/driftlock/pkg/geom"
)

// Probe thresholds: below these raw step lengths the regular per-tick
// query cannot have skipped an element.
const (
	probeMinStep      = 12
	probeMinStepGlide = 18
	probeSpacing      = 35
	probeMaxSamples   = 8
	probeMinSamples   = 3
)

// needsHighVelocityProbe reports whether the raw step was long enough to
// have jumped over an element between two eligibility queries.
func (c *Coordinator) needsHighVelocityProbe() bool {
	e := c.deps.Engine
	dist := geom.Magnitude(e.PreMagnet().Sub(e.PreviousPreMagnet()))
	if e.IsGliding() {
		return dist >= probeMinStepGlide
	}
	return dist >= probeMinStep
}

// probe samples interior points of the raw step and returns the first
// eligible frame found, along with the sample point that produced it.
func (c *Coordinator) probe(now time.Time, current geom.Rect, haveCurrent bool) (geom.Rect, geom.Vec, bool) {
	e := c.deps.Engine
	start := e.PreviousPreMagnet()
	end := e.PreMagnet()
	step := end.Sub(start)
	dist := geom.Magnitude(step)

	n := int(geom.Clamp(math.Ceil(dist/probeSpacing), probeMinSamples, probeMaxSamples))
	for i := 1; i <= n; i++ {
		pt := start.Add(step.Scale(float64(i) / float64(n+1)))
		if c.deps.Foreign != nil && c.deps.Foreign.ForeignOverlayTopmost(pt) {
			continue
		}
		el, ok := c.deps.Inspector.ElementAt(pt)
		if !ok || el.FilePickerPanel {
			continue
		}
		if haveCurrent && geom.Equivalent(el.Frame, current) {
			continue
		}
		if frame, ok := c.deps.Filter.Qualify(el, pt); ok {
			return frame, pt, true
		}
	}
	return geom.Rect{}, geom.Vec{}, false
}
