// Package engine implements the pointer motion engine: raw input
// integration, inertial glide, and the magnetism state machine that pins a
// virtual cursor to interactive frames while keeping the raw pointer
// position available for escape decisions.
//
// The engine is not safe for concurrent use. All operations must be
// called from the tick thread; trackpad data reaches it as value
// snapshots taken by the coordinator.
package engine

import (
	"github.com/mvanrijn/driftlock/pkg/geom"
)

// VelocitySource names the stream that supplied the current velocity.
type VelocitySource int

const (
	SourcePointer VelocitySource = iota
	SourceTrackpad
)

func (s VelocitySource) String() string {
	if s == SourceTrackpad {
		return "Trackpad"
	}
	return "Pointer"
}

// WarpFunc mirrors the virtual position onto the OS cursor. The engine
// invokes it on intra-tick snaps; the coordinator also warps at tick end.
type WarpFunc func(geom.Vec)

// Engine holds the full pointer state. Position is the virtual
// (post-magnet) cursor, preMagnet the raw cursor that ignores the
// engine's own pulls.
type Engine struct {
	params Params

	bounds *geom.Rect

	position      geom.Vec
	prevPosition  geom.Vec
	preMagnet     geom.Vec
	prevPreMagnet geom.Vec

	velocity       geom.Vec
	lastInputDelta geom.Vec
	velocitySource VelocitySource
	gliding        bool

	lastPhysical    geom.Vec
	hasLastPhysical bool

	rawFresh bool

	magnetismEnabled  bool
	currentTarget     *geom.Rect
	lockedTarget      *geom.Rect
	pendingSwitch     *geom.Rect
	pendingConfidence int
	lastSeen          *geom.Rect
	lastSeenTTL       int
	strainCount       int
	strainTarget      *geom.Rect
	escapedFrom       *geom.Rect

	warp WarpFunc
}

// lastSeenLifetime is how many candidate-free ticks the last eligibility
// result survives.
const lastSeenLifetime = 6

// New returns an engine primed at the origin with the given parameters.
func New(params Params) *Engine {
	e := &Engine{params: params}
	e.Prime(geom.Vec{})
	return e
}

// SetWarpFunc installs the intra-tick warp hook. A nil hook is allowed.
func (e *Engine) SetWarpFunc(fn WarpFunc) {
	e.warp = fn
}

// Params returns the engine parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Prime resets all state so the virtual and raw cursors start at p.
func (e *Engine) Prime(p geom.Vec) {
	p = e.clampVec(p)
	e.position = p
	e.prevPosition = p
	e.preMagnet = p
	e.prevPreMagnet = p
	e.velocity = geom.Vec{}
	e.lastInputDelta = geom.Vec{}
	e.velocitySource = SourcePointer
	e.gliding = false
	e.lastPhysical = p
	e.hasLastPhysical = true
	e.rawFresh = false
	e.magnetismEnabled = e.params.MagnetismEnabled
	e.clearMagnetState()
}

// UpdateDesktopBounds stores the union of the display frames and
// re-clamps both cursors into it.
func (e *Engine) UpdateDesktopBounds(r geom.Rect) {
	b := r
	e.bounds = &b
	e.position = e.clampVec(e.position)
	e.preMagnet = e.clampVec(e.preMagnet)
}

// SetMagnetismEnabled toggles magnetism. Disabling clears every piece of
// magnet state; the call is idempotent.
func (e *Engine) SetMagnetismEnabled(enabled bool) {
	e.magnetismEnabled = enabled
	if !enabled {
		e.clearMagnetState()
	}
}

// BeginTouch marks the start of finger contact at physical location p.
// The virtual position is preserved; velocity, glide and locks are not.
func (e *Engine) BeginTouch(p geom.Vec) {
	e.velocity = geom.Vec{}
	e.lastInputDelta = geom.Vec{}
	e.velocitySource = SourcePointer
	e.gliding = false
	e.unlock()
	e.lastPhysical = p
	e.hasLastPhysical = true
}

// HandleTouch integrates one physical pointer sample while a finger is
// down. padVel, when non-nil, is the smoothed normalized trackpad
// velocity for the same interval.
func (e *Engine) HandleTouch(p geom.Vec, dt float64, padVel *geom.Vec) {
	if !e.hasLastPhysical {
		e.BeginTouch(p)
	}
	delta := p.Sub(e.lastPhysical)
	e.lastPhysical = p

	rawStart := e.preMagnet
	rawEnd := rawStart.Add(delta)
	e.escapedFrom = nil

	// Fast motion can step over a target between two samples; intercept
	// the raw segment against everything the engine still knows about.
	if e.magnetismEnabled {
		for _, target := range e.knownTargets() {
			tp := e.params.magneticParams(*target)
			center := target.Center()
			toCenter := center.Sub(rawStart)
			if delta.Dot(toCenter) <= 0 {
				continue
			}
			snapRadius := 1.5 * tp.Snap
			if geom.SegmentIntersectsRect(rawStart, rawEnd, paddedRect(*target)) ||
				geom.SegmentIntersectsCircle(rawStart, rawEnd, center, snapRadius) ||
				geom.PointSegmentDistance(center, rawStart, rawEnd) <= snapRadius {
				e.prevPreMagnet = rawStart
				e.preMagnet = e.clampVec(rawEnd)
				e.snapTo(*target)
				e.rawFresh = true
				return
			}
		}
	}

	scaled := delta
	if e.params.PreBrakeEnabled && e.magnetismEnabled {
		if target := e.widestTarget(); target != nil {
			tp := e.params.magneticParams(*target)
			approach := geom.PointSegmentDistance(target.Center(), rawStart, rawEnd)
			outer := 1.6 * tp.Radius
			if approach < outer {
				f := approach / outer
				scaled = delta.Scale(geom.Clamp(f*f, 0.15, 1.0))
			}
		}
	}

	e.prevPosition = e.position
	e.position = e.position.Add(scaled)

	e.velocity = e.chooseVelocity(scaled, dt, padVel)
	e.lastInputDelta = scaled

	// The raw cursor integrates the unscaled delta so escape and strain
	// decisions see the physical motion, not the braked one.
	e.prevPreMagnet = rawStart
	e.preMagnet = rawEnd

	e.rawFresh = true
	e.applyMagnetism()
	e.position = e.clampVec(e.position)
	e.preMagnet = e.clampVec(e.preMagnet)

	e.intraTickWarp()

	if e.gliding {
		e.cancelGlide()
	}
}

// HandleNoTouch advances the engine for one tick with no finger contact:
// the glide path.
func (e *Engine) HandleNoTouch(p geom.Vec, dt float64, suppressGlide, touchJustEnded bool) {
	e.lastPhysical = p
	e.hasLastPhysical = true

	e.escapedFrom = nil
	if touchJustEnded {
		if suppressGlide {
			e.cancelGlide()
			e.velocity = geom.Vec{}
		} else {
			e.beginGlideIfNeeded()
		}
	}

	if !e.gliding {
		return
	}

	e.velocity = e.velocity.Scale(max(0, 1-e.params.GlideDecayPerSecond*dt))
	step := e.velocity.Scale(dt)

	e.prevPosition = e.position
	e.position = e.position.Add(step)
	e.lastInputDelta = step
	e.prevPreMagnet = e.preMagnet
	e.preMagnet = e.position

	e.rawFresh = true
	e.applyMagnetism()
	e.position = e.clampVec(e.position)
	e.preMagnet = e.clampVec(e.preMagnet)
	if e.warp != nil {
		e.warp(e.position)
	}

	if e.gliding && geom.Magnitude(e.velocity) < e.params.glideBand().Min {
		e.cancelGlide()
		e.velocity = geom.Vec{}
	}
}

func (e *Engine) beginGlideIfNeeded() {
	if geom.Magnitude(e.velocity) >= e.params.MinimumGlideVelocity {
		e.gliding = true
		if e.warp != nil {
			e.warp(e.position)
		}
		return
	}
	e.cancelGlide()
	e.velocity = geom.Vec{}
}

func (e *Engine) cancelGlide() {
	e.gliding = false
}

// chooseVelocity picks between the pointer-derived step velocity and the
// trackpad stream, whichever carries more speed.
func (e *Engine) chooseVelocity(scaled geom.Vec, dt float64, padVel *geom.Vec) geom.Vec {
	if dt < 1e-4 {
		dt = 1e-4
	}
	pointer := scaled.Scale(1 / dt)
	e.velocitySource = SourcePointer
	if padVel == nil {
		return pointer
	}
	pixels := e.trackpadVelocityInPixels(*padVel)
	if geom.Magnitude(pixels) > geom.Magnitude(pointer) {
		e.velocitySource = SourceTrackpad
		return geom.Clamped(pixels, e.params.MaxMomentumSpeed)
	}
	return pointer
}

// trackpadVelocityInPixels converts a normalized pad-units/s velocity
// into desktop pixels using the desktop extent as the pad-to-screen
// scale.
func (e *Engine) trackpadVelocityInPixels(v geom.Vec) geom.Vec {
	w, h := 1000.0, 1000.0
	if e.bounds != nil {
		w, h = e.bounds.W, e.bounds.H
	}
	g := e.params.TrackpadVelocityGain
	return geom.Vec{X: v.X * g * w, Y: v.Y * g * h}
}

// intraTickWarp mirrors the virtual position mid-tick when the raw
// pointer is close to a tracked target at moderate speed, so a snap is
// visible before the tick-end warp.
func (e *Engine) intraTickWarp() {
	if e.warp == nil {
		return
	}
	target := e.lockedTarget
	if target == nil {
		target = e.currentTarget
	}
	if target == nil {
		return
	}
	tp := e.params.magneticParams(*target)
	if geom.Magnitude(e.preMagnet.Sub(target.Center())) <= 1.15*tp.Radius &&
		geom.Magnitude(e.velocity) < 1500 {
		e.warp(e.position)
	}
}

// knownTargets returns the lock, the current target and the last seen
// candidate, deduplicated, in that order.
func (e *Engine) knownTargets() []*geom.Rect {
	targets := make([]*geom.Rect, 0, 3)
	for _, t := range []*geom.Rect{e.lockedTarget, e.currentTarget, e.lastSeen} {
		if t == nil {
			continue
		}
		dup := false
		for _, seen := range targets {
			if geom.Equivalent(*seen, *t) {
				dup = true
				break
			}
		}
		if !dup {
			targets = append(targets, t)
		}
	}
	return targets
}

// widestTarget returns the known target with the largest shaped radius.
func (e *Engine) widestTarget() *geom.Rect {
	var best *geom.Rect
	bestRadius := 0.0
	for _, t := range e.knownTargets() {
		if r := e.params.magneticParams(*t).Radius; best == nil || r > bestRadius {
			best = t
			bestRadius = r
		}
	}
	return best
}

func (e *Engine) clampVec(p geom.Vec) geom.Vec {
	if e.bounds == nil {
		return p
	}
	return e.bounds.ClampPoint(p)
}

func copyRect(r geom.Rect) *geom.Rect {
	c := r
	return &c
}

// Accessors used by the coordinator and tests. Targets are returned as
// copies; the engine owns its state.

func (e *Engine) Position() geom.Vec          { return e.position }
func (e *Engine) PreviousPosition() geom.Vec  { return e.prevPosition }
func (e *Engine) PreMagnet() geom.Vec         { return e.preMagnet }
func (e *Engine) PreviousPreMagnet() geom.Vec { return e.prevPreMagnet }
func (e *Engine) Velocity() geom.Vec          { return e.velocity }
func (e *Engine) LastInputDelta() geom.Vec    { return e.lastInputDelta }
func (e *Engine) IsGliding() bool             { return e.gliding }
func (e *Engine) IsLocked() bool              { return e.lockedTarget != nil }
func (e *Engine) MagnetismEnabled() bool      { return e.magnetismEnabled }
func (e *Engine) Source() VelocitySource      { return e.velocitySource }

func (e *Engine) LockedTarget() (geom.Rect, bool) {
	if e.lockedTarget == nil {
		return geom.Rect{}, false
	}
	return *e.lockedTarget, true
}

func (e *Engine) CurrentTarget() (geom.Rect, bool) {
	if e.currentTarget == nil {
		return geom.Rect{}, false
	}
	return *e.currentTarget, true
}

func (e *Engine) LastSeenCandidate() (geom.Rect, bool) {
	if e.lastSeen == nil {
		return geom.Rect{}, false
	}
	return *e.lastSeen, true
}

// DesktopBounds returns the stored bounds, ok false until set.
func (e *Engine) DesktopBounds() (geom.Rect, bool) {
	if e.bounds == nil {
		return geom.Rect{}, false
	}
	return *e.bounds, true
}
