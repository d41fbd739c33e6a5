package engine

import (
	"github.com/mvanrijn/driftlock/pkg/geom"
)

// strainLimit is the number of consecutive strained ticks after which a
// lock is forcibly released.
const strainLimit = 3

// rawStepFloor filters sensor noise out of the strain measurement.
const rawStepFloor = 2.2

// updateLockStrain counts consecutive ticks in which the user pushes away
// from a locked elongated element along its constrained axis. The main
// escape thresholds can hold such locks indefinitely; strain is the
// relief valve.
func (e *Engine) updateLockStrain() {
	locked := *e.lockedTarget
	if e.strainTarget == nil || !geom.Equivalent(*e.strainTarget, locked) {
		e.strainTarget = copyRect(locked)
		e.strainCount = 0
	}

	decay := func() {
		if e.strainCount > 0 {
			e.strainCount--
		}
	}

	delta := e.preMagnet.Sub(e.prevPreMagnet)
	if geom.Magnitude(delta) < rawStepFloor {
		decay()
		return
	}

	tp := e.params.magneticParams(locked)
	fromCenter := e.preMagnet.Sub(locked.Center())
	if delta.Dot(fromCenter) <= 0 {
		decay()
		return
	}
	if tp.Aspect <= 1.8 || tp.Minor >= 110 {
		decay()
		return
	}
	if !e.crossAxisIntent(locked, delta) {
		decay()
		return
	}
	if geom.Magnitude(fromCenter) < max(tp.Minor*0.38, tp.Snap*0.6, 16) {
		decay()
		return
	}

	e.strainCount++
	if e.strainCount >= strainLimit {
		e.unlock()
		e.escapedFrom = copyRect(locked)
		if e.lastSeen != nil {
			e.currentTarget = copyRect(*e.lastSeen)
		}
	}
}
