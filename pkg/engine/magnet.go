package engine

import (
	"math"

	"github.com/mvanrijn/driftlock/pkg/geom"
)

// pendingSwitchTicks is how many consecutive matching ticks a competing
// candidate needs before it steals an existing lock.
const pendingSwitchTicks = 3

// UpdateMagneticTarget feeds one eligibility result into the engine. A
// nil frame means the current tick produced no candidate; the previous
// candidate then survives for a few ticks of short-term memory.
//
// When the raw position was refreshed this tick, the call resolves
// magnetism against the new target before returning.
func (e *Engine) UpdateMagneticTarget(frame *geom.Rect) {
	if !e.magnetismEnabled {
		e.clearMagnetState()
		return
	}

	if frame == nil {
		e.currentTarget = nil
		e.clearPendingSwitch()
		if e.lastSeenTTL > 0 {
			e.lastSeenTTL--
			if e.lastSeenTTL == 0 {
				e.lastSeen = nil
			}
		}
		return
	}

	e.lastSeen = copyRect(*frame)
	e.lastSeenTTL = lastSeenLifetime

	if e.lockedTarget != nil && !e.resolveAgainstLock(*frame) {
		return
	}

	e.currentTarget = copyRect(*frame)
	if e.rawFresh {
		e.applyMagnetism()
		e.rawFresh = false
	}
}

// resolveAgainstLock runs the hysteresis ladder for an incoming frame
// while a lock is held. It reports whether the caller should continue
// with target adoption; false means the decision is final for this tick.
func (e *Engine) resolveAgainstLock(frame geom.Rect) bool {
	locked := *e.lockedTarget

	// Same element, jittered frame: follow it.
	if geom.Equivalent(frame, locked) {
		e.lockedTarget = copyRect(frame)
		e.currentTarget = copyRect(frame)
		e.clearPendingSwitch()
		return false
	}

	// Heavily overlapping replacement while the raw pointer still sits on
	// the locked element: a container/child flicker, not a real move.
	overlap := locked.Intersect(frame).Area()
	smaller := math.Max(math.Min(locked.Area(), frame.Area()), 1)
	if overlap/smaller >= 0.65 && geom.PointRectDistance(e.preMagnet, locked) <= 6 {
		e.currentTarget = copyRect(locked)
		return false
	}

	// Raw pointer already sits inside the new frame: the user reached it.
	if paddedBy(frame, 8).Contains(e.preMagnet) {
		e.unlock()
		e.currentTarget = copyRect(frame)
		e.clearPendingSwitch()
		return false
	}

	lockedTP := e.params.magneticParams(locked)
	rawDist := geom.Magnitude(e.preMagnet.Sub(locked.Center()))

	base := e.params.TargetSwitchMinDistance
	preliminary := max(lockedTP.Minor*0.95, lockedTP.Snap*1.5)
	switchThreshold := min(base, max(preliminary, lockedTP.Minor, base*0.35))
	if rawDist > switchThreshold {
		e.unlock()
		return true
	}

	exitThreshold := max(lockedTP.Snap*1.1, lockedTP.Minor*0.75)
	align, alignOK := e.alignmentToward(frame.Center())
	newCloser := geom.Magnitude(e.preMagnet.Sub(frame.Center())) < rawDist
	intent := geom.Magnitude(e.velocity) > 60 || geom.Magnitude(e.lastInputDelta) > 2

	if rawDist > exitThreshold && newCloser && alignOK && align > 0.35 && intent {
		if e.pendingSwitch != nil && geom.Equivalent(*e.pendingSwitch, frame) {
			e.pendingConfidence++
		} else {
			e.pendingSwitch = copyRect(frame)
			e.pendingConfidence = 1
		}
		if e.pendingConfidence >= pendingSwitchTicks {
			e.unlock()
			return true
		}
		// lock survives; remember the challenger
		e.currentTarget = copyRect(frame)
		return false
	}

	e.clearPendingSwitch()
	e.currentTarget = copyRect(frame)
	return false
}

// applyMagnetism resolves the virtual position against the magnet state
// after a raw position update. The steps are ordered; later steps observe
// the moves of earlier ones.
func (e *Engine) applyMagnetism() {
	if !e.magnetismEnabled {
		return
	}

	e.resolveRawEscape()

	if e.lockedTarget != nil {
		e.updateLockStrain()
	}

	if e.captureCandidateCrossing() {
		return
	}

	if e.currentTarget == nil {
		e.candidatePreBrake()
		e.unlock()
		return
	}

	target := *e.currentTarget

	// A frame the raw pointer just escaped or strained out of must not be
	// re-acquired within the same resolution pass.
	if e.escapedFrom != nil && geom.Equivalent(target, *e.escapedFrom) {
		e.unlock()
		return
	}

	tp := e.params.magneticParams(target)
	center := target.Center()
	padded := paddedRect(target)

	distance := geom.Magnitude(e.position.Sub(center))
	rectDist := geom.PointRectDistance(e.position, target)
	rawDist := geom.Magnitude(e.preMagnet.Sub(center))
	rawRectDist := geom.PointRectDistance(e.preMagnet, target)

	entered := padded.Contains(e.position) ||
		distance <= tp.Radius || rawDist <= tp.Radius || rectDist <= tp.Radius

	if e.captureCurrentCrossing(target, tp) {
		return
	}

	if e.lockedTarget != nil {
		e.lockedTarget = copyRect(target)
	}

	if e.lockedTarget == nil && entered {
		e.snapTo(target)
		return
	}
	if rawDist <= tp.Snap*1.25 || rawRectDist <= max(tp.Snap*1.25, 10) {
		e.snapTo(target)
		return
	}

	distance = e.softApproachAssist(target, tp, entered, distance)
	rectDist = geom.PointRectDistance(e.position, target)

	if e.highSpeedBrake(target, tp) {
		distance = geom.Magnitude(e.position.Sub(center))
		rectDist = geom.PointRectDistance(e.position, target)
	}

	rawInside := padded.Contains(e.preMagnet) || rawRectDist <= tp.Radius
	rectInside := rectDist <= tp.Radius
	if !rawInside && !rectInside {
		e.unlock()
		return
	}

	if e.lockedTarget == nil {
		e.lockedTarget = copyRect(target)
	}

	if e.gliding && min(distance, rectDist) < tp.Radius && geom.Magnitude(e.velocity) > 35 {
		e.snapTo(target)
		return
	}

	if distance < tp.Snap {
		e.snapTo(target)
		return
	}

	e.outerZonePull(target, tp, distance)
}

// resolveRawEscape unlocks when the raw pointer has moved far enough from
// the locked center. Elongated narrow elements get a tighter, direction-
// gated threshold along their constrained axis.
func (e *Engine) resolveRawEscape() {
	if e.lockedTarget == nil {
		return
	}
	locked := *e.lockedTarget
	tp := e.params.magneticParams(locked)
	center := locked.Center()
	escape := geom.Magnitude(e.preMagnet.Sub(center))

	unlockDistance := max(tp.Minor*0.65, tp.Snap*0.9)
	if tp.Aspect > 1.8 && tp.Minor < 110 {
		delta := e.preMagnet.Sub(e.prevPreMagnet)
		if e.crossAxisIntent(locked, delta) && delta.Dot(e.preMagnet.Sub(center)) > 0 {
			unlockDistance = max(tp.Minor*0.48, tp.Snap*0.75, 18)
		}
	}

	if escape > unlockDistance {
		e.unlock()
		e.escapedFrom = copyRect(locked)
		if e.lastSeen != nil {
			e.currentTarget = copyRect(*e.lastSeen)
		}
	}
}

// crossAxisIntent reports whether delta pushes across the long axis of an
// elongated frame: horizontal movement off a vertical bar, vertical off a
// horizontal one.
func (e *Engine) crossAxisIntent(f geom.Rect, delta geom.Vec) bool {
	dx, dy := math.Abs(delta.X), math.Abs(delta.Y)
	if f.H > f.W {
		return dx > dy*0.9 && dx > 2.5
	}
	return dy > dx*0.9 && dy > 2.5
}

// captureCandidateCrossing adopts the remembered candidate when it beats
// the current target, then snaps if the raw segment crossed it. Returns
// true when a snap ended the resolution.
func (e *Engine) captureCandidateCrossing() bool {
	if e.lastSeen == nil {
		return false
	}
	cand := *e.lastSeen
	if e.bounds != nil && cand.Area() > 0.35*e.bounds.Area() {
		return false
	}

	cp := e.params.magneticParams(cand)
	center := cand.Center()
	centerDist := geom.Magnitude(e.preMagnet.Sub(center))
	rectDist := geom.PointRectDistance(e.preMagnet, cand)

	if centerDist > cp.Radius*1.9+12 && rectDist > cp.Snap*1.8 {
		return false
	}

	candBest := min(centerDist, rectDist)
	adopt := e.currentTarget == nil
	if !adopt {
		cur := *e.currentTarget
		curBest := min(
			geom.Magnitude(e.preMagnet.Sub(cur.Center())),
			geom.PointRectDistance(e.preMagnet, cur),
		)
		adopt = candBest+12 <= curBest
	}
	if adopt {
		e.currentTarget = copyRect(cand)
	}

	travel := e.preMagnet.Sub(e.prevPreMagnet)
	toCenter := center.Sub(e.prevPreMagnet)
	if travel.Dot(toCenter) <= 0 {
		return false
	}
	padded := paddedRect(cand)
	mid := e.prevPreMagnet.Add(travel.Scale(0.5))
	crossed := geom.SegmentIntersectsCircle(e.prevPreMagnet, e.preMagnet, center, cp.Snap*1.5) ||
		geom.SegmentIntersectsRect(e.prevPreMagnet, e.preMagnet, padded) ||
		(geom.Magnitude(travel) > 2*cp.Radius && padded.Contains(mid)) ||
		geom.PointSegmentDistance(center, e.prevPreMagnet, e.preMagnet) <= cp.Snap*1.5
	if crossed {
		e.snapTo(cand)
		return true
	}
	return false
}

// candidatePreBrake dampens momentum when the pointer races past a
// remembered candidate with no current target.
func (e *Engine) candidatePreBrake() {
	if e.lastSeen == nil {
		return
	}
	speed := geom.Magnitude(e.velocity)
	if speed <= 70 {
		return
	}
	cand := *e.lastSeen
	cp := e.params.magneticParams(cand)
	center := cand.Center()
	minDist := min(
		geom.Magnitude(e.position.Sub(center)),
		geom.PointRectDistance(e.position, cand),
		geom.PointSegmentDistance(center, e.prevPreMagnet, e.preMagnet),
	)
	outer := cp.Radius * 1.6
	if minDist >= outer {
		return
	}
	proximity := 1 - minDist/outer
	brake := max(proximity, 0.24) * geom.Clamp((speed-38)/210, 0, 1)
	factor := max(0.03, 1-0.96*brake)
	e.velocity = e.velocity.Scale(factor)
	e.lastInputDelta = e.lastInputDelta.Scale(factor)
}

// captureCurrentCrossing snaps when the raw segment crossed the current
// target this tick.
func (e *Engine) captureCurrentCrossing(target geom.Rect, tp targetParams) bool {
	center := target.Center()
	travel := e.preMagnet.Sub(e.prevPreMagnet)
	toCenter := center.Sub(e.prevPreMagnet)
	if travel.Dot(toCenter) <= 0 {
		return false
	}
	padded := paddedRect(target)
	mid := e.prevPreMagnet.Add(travel.Scale(0.5))
	crossed := geom.SegmentIntersectsCircle(e.prevPreMagnet, e.preMagnet, center, tp.Snap) ||
		geom.SegmentIntersectsCircle(e.prevPreMagnet, e.preMagnet, center, tp.Radius) ||
		geom.PointSegmentDistance(center, e.prevPreMagnet, e.preMagnet) <= tp.Snap*1.25 ||
		geom.SegmentIntersectsRect(e.prevPreMagnet, e.preMagnet, padded) ||
		(geom.Magnitude(travel) > 2*tp.Radius && padded.Contains(mid))
	if crossed {
		e.snapTo(target)
		return true
	}
	return false
}

// softApproachAssist nudges the virtual cursor toward a target the user
// is slowly closing in on. Returns the updated center distance.
func (e *Engine) softApproachAssist(target geom.Rect, tp targetParams, entered bool, distance float64) float64 {
	if entered || e.lockedTarget != nil || e.gliding || e.pendingSwitch != nil {
		return distance
	}
	assistOuter := max(tp.Radius*1.6, tp.Snap+22)
	if distance <= tp.Radius || distance > assistOuter {
		return distance
	}

	align, alignOK := e.alignmentToward(target.Center())
	if !alignOK {
		align = 0.3
	}
	if align <= -0.5 {
		return distance
	}

	span := assistOuter - tp.Radius
	intensity := math.Pow((assistOuter-distance)/span, 1.25)
	speedEase := geom.Clamp(1-geom.Magnitude(e.velocity)/165, 0, 1)
	deltaEase := geom.Clamp(1-geom.Magnitude(e.lastInputDelta)/3.2, 0, 1)
	pull := intensity * speedEase * deltaEase * tp.Strength * 0.35
	if pull <= 0 {
		return distance
	}
	e.position = e.position.Add(target.Center().Sub(e.position).Scale(pull))
	return geom.Magnitude(e.position.Sub(target.Center()))
}

// highSpeedBrake slows a fast approach and, when braking hard, blends a
// partial snap toward the center. Reports whether the position moved.
func (e *Engine) highSpeedBrake(target geom.Rect, tp targetParams) bool {
	speed := geom.Magnitude(e.velocity)
	if speed <= 70 {
		return false
	}
	center := target.Center()
	minDist := min(
		geom.Magnitude(e.position.Sub(center)),
		geom.PointRectDistance(e.position, target),
		geom.PointSegmentDistance(center, e.prevPreMagnet, e.preMagnet),
	)
	outer := tp.Radius * 1.6
	if minDist >= outer {
		return false
	}
	proximity := 1 - minDist/outer
	brake := max(proximity, 0.24) * geom.Clamp((speed-38)/210, 0, 1)
	factor := max(0.03, 1-0.96*brake)
	e.velocity = e.velocity.Scale(factor)
	e.lastInputDelta = e.lastInputDelta.Scale(factor)

	if brake > 0.32 {
		snapAssist := geom.Clamp((brake-0.32)/0.68, 0, 1)
		weight := 0.38 + snapAssist*0.5
		e.position = e.position.Add(center.Sub(e.position).Scale(weight))
		return true
	}
	return false
}

// outerZonePull applies the alignment-gated attraction in the outer zone
// around a locked target.
func (e *Engine) outerZonePull(target geom.Rect, tp targetParams, distance float64) {
	center := target.Center()
	align, alignOK := e.alignmentToward(center)
	if !alignOK {
		align = 0
	}
	slowIntent := geom.Magnitude(e.velocity) < 30 && geom.Magnitude(e.lastInputDelta) < 1.35

	var escapeScale float64
	switch {
	case align <= -0.55:
		e.unlock()
		return
	case align <= 0 && slowIntent && align > -0.4:
		escapeScale = 0.08 * max(0, 1+align/0.4)
	case align <= 0:
		escapeScale = 0
	case align < 0.2:
		f := align / 0.2
		if slowIntent {
			escapeScale = f * f * 0.22
		} else {
			escapeScale = f * f * 0.12
		}
	default:
		base := 0.15
		if slowIntent {
			base = 0.25
		}
		escapeScale = min(1, base+((align-0.2)/0.8)*(1-base))
	}
	if escapeScale <= 0 {
		return
	}

	baseProximity := max(0, 1-distance/tp.Radius)
	shaped := math.Pow(baseProximity, 1.18)
	pull := tp.Strength * (0.18 + shaped*0.92)
	speedMult := min(1+(geom.Magnitude(e.velocity)/e.params.MaxMomentumSpeed)*0.72+baseProximity*0.6, 1.9)
	adjusted := pull * speedMult * escapeScale

	e.position = e.position.Add(center.Sub(e.position).Scale(adjusted))
	e.velocity = e.velocity.Scale(max(0.08, 1-pull*1.05*escapeScale))
}

// alignmentToward measures how much the current intent (velocity and last
// input delta) points at c from the raw position. ok is false when there
// is no intent to measure.
func (e *Engine) alignmentToward(c geom.Vec) (float64, bool) {
	to := c.Sub(e.preMagnet)
	n := geom.Magnitude(to)
	if n == 0 {
		return 1, true
	}
	unit := to.Scale(1 / n)

	wv := min(geom.Magnitude(e.velocity)/300, 1)
	wd := min(geom.Magnitude(e.lastInputDelta)/10, 1)
	if wv+wd == 0 {
		return 0, false
	}

	var sum float64
	if wv > 0 {
		sum += wv * e.velocity.Scale(1/geom.Magnitude(e.velocity)).Dot(unit)
	}
	if wd > 0 {
		sum += wd * e.lastInputDelta.Scale(1/geom.Magnitude(e.lastInputDelta)).Dot(unit)
	}
	return sum / (wv + wd), true
}

// snapTo pins the virtual cursor to the target center with zero velocity
// and takes the lock.
func (e *Engine) snapTo(target geom.Rect) {
	e.prevPosition = e.position
	e.position = e.clampVec(target.Center())
	e.velocity = geom.Vec{}
	e.lastInputDelta = geom.Vec{}
	e.gliding = false
	e.lockedTarget = copyRect(target)
	e.currentTarget = copyRect(target)
	e.clearPendingSwitch()
	if e.warp != nil {
		e.warp(e.position)
	}
}

func (e *Engine) unlock() {
	e.lockedTarget = nil
	e.clearPendingSwitch()
	e.strainCount = 0
	e.strainTarget = nil
}

func (e *Engine) clearPendingSwitch() {
	e.pendingSwitch = nil
	e.pendingConfidence = 0
}

func (e *Engine) clearMagnetState() {
	e.lockedTarget = nil
	e.currentTarget = nil
	e.lastSeen = nil
	e.lastSeenTTL = 0
	e.clearPendingSwitch()
	e.strainCount = 0
	e.strainTarget = nil
	e.escapedFrom = nil
}

// paddedBy grows f by the same margin on every side.
func paddedBy(f geom.Rect, pad float64) geom.Rect {
	return f.Inset(-pad, -pad)
}
