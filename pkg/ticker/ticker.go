// Package ticker runs the fixed-frequency loop that drives the motion
// engine: it reads the pointer and trackpad snapshots, feeds eligibility
// results into the magnetism resolver, mirrors the virtual cursor onto
// the OS pointer, and switches between overlay and hardware-cursor modes.
package ticker

import (
	"context"
	"log"
	"time"

	driftlock "github.com/mvanrijn/driftlock"
	"github.com/mvanrijn/driftlock/pkg/eligibility"
	"github.com/mvanrijn/driftlock/pkg/engine"
	"github.com/mvanrijn/driftlock/pkg/geom"
	"github.com/mvanrijn/driftlock/pkg/touchvel"
)

// Mode is the cursor ownership state.
type Mode int

const (
	// ModeOverlay hides the OS cursor and draws the virtual one.
	ModeOverlay Mode = iota
	// ModeHardware yields the pointer to the OS and disables magnetism,
	// used while a foreign overlay owns the screen.
	ModeHardware
)

func (m Mode) String() string {
	if m == ModeHardware {
		return "Hardware"
	}
	return "Overlay"
}

// Deps are the collaborators the coordinator drives. Engine, Smoother,
// Pointer and Warp are required; the rest degrade gracefully when nil
// (without both Inspector and Filter no magnetic targets are found).
type Deps struct {
	Engine   *engine.Engine
	Smoother *touchvel.Smoother
	Filter   *eligibility.Filter

	Pointer driftlock.PointerSource
	Warp    driftlock.WarpSink

	Inspector driftlock.Inspector
	Foreign   driftlock.ForeignOverlayDetector
	Cursor    driftlock.CursorVisibility
	Overlay   driftlock.Overlay
}

// Options tune the loop.
type Options struct {
	// Rate is the tick period; 2ms at the nominal 500Hz.
	Rate time.Duration
}

var DefaultOptions = Options{
	Rate: 2 * time.Millisecond,
}

// Coordinator owns the tick loop. All engine access happens on the
// goroutine that calls Run (or Tick, in tests).
type Coordinator struct {
	deps Deps
	opts Options

	mode        Mode
	wasTouching bool
	lastTick    time.Time
}

// New returns a Coordinator in overlay mode.
func New(deps Deps, opts Options) *Coordinator {
	if opts.Rate <= 0 {
		opts.Rate = DefaultOptions.Rate
	}
	c := &Coordinator{deps: deps, opts: opts}
	if deps.Engine != nil && deps.Warp != nil {
		deps.Engine.SetWarpFunc(func(p geom.Vec) { c.warp(p) })
	}
	return c
}

// Mode returns the current cursor ownership state.
func (c *Coordinator) Mode() Mode {
	return c.mode
}

// Run drives the loop until ctx is cancelled. The OS cursor is restored
// and warped to the last virtual position on every exit path.
func (c *Coordinator) Run(ctx context.Context) error {
	release := c.acquireCursor()
	defer release()

	tick := time.NewTicker(c.opts.Rate)
	defer tick.Stop()

	for {
		if !c.active() {
			// parked: nothing moves until the next touch edge
			select {
			case <-ctx.Done():
				return nil
			case <-c.deps.Smoother.Edges():
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-c.deps.Smoother.Edges():
			c.Tick(time.Now())
		case now := <-tick.C:
			c.Tick(now)
		}
	}
}

// acquireCursor hides the OS cursor and returns the release that shows
// it again and mirrors the final position, guaranteed to run on
// shutdown, clean or not.
func (c *Coordinator) acquireCursor() func() {
	if c.deps.Cursor != nil {
		if err := c.deps.Cursor.Hide(); err != nil {
			log.Printf("unable to hide cursor: %v", err)
		}
	}
	return func() {
		if c.deps.Cursor != nil {
			if err := c.deps.Cursor.Show(); err != nil {
				log.Printf("unable to restore cursor: %v", err)
			}
		}
		if err := c.deps.Warp.Warp(c.deps.Engine.Position()); err != nil {
			log.Printf("unable to restore pointer position: %v", err)
		}
	}
}

// active reports whether the loop has work: finger contact, an ongoing
// glide, or overlay animation.
func (c *Coordinator) active() bool {
	if c.deps.Smoother.Snapshot().Touching || c.deps.Engine.IsGliding() {
		return true
	}
	return c.deps.Overlay != nil && c.deps.Overlay.Animating()
}

// Tick advances the whole pipeline once.
func (c *Coordinator) Tick(now time.Time) {
	e := c.deps.Engine

	dt := now.Sub(c.lastTick)
	if c.lastTick.IsZero() || dt < c.opts.Rate {
		// overrun protection: never integrate a step shorter than the
		// nominal period
		dt = c.opts.Rate
	}
	c.lastTick = now

	snap := c.deps.Smoother.Snapshot()
	p := c.deps.Pointer.Location()

	if snap.Touching {
		if !c.wasTouching {
			e.BeginTouch(p)
		}
		vel := snap.Velocity
		e.HandleTouch(p, dt.Seconds(), &vel)
	} else {
		e.HandleNoTouch(p, dt.Seconds(), snap.SuppressGlide(now), c.wasTouching)
	}
	c.wasTouching = snap.Touching

	candidate := c.findCandidate(now)
	e.UpdateMagneticTarget(candidate)

	c.resolveMode()
}

// findCandidate queries accessibility at the raw position, runs the
// eligibility filter, and falls back to the high-velocity probe when the
// raw step may have jumped over an element.
func (c *Coordinator) findCandidate(now time.Time) *geom.Rect {
	if c.deps.Inspector == nil || c.deps.Filter == nil {
		return nil
	}
	raw := c.deps.Engine.PreMagnet()

	var elp *eligibility.Element
	var current geom.Rect
	haveCurrent := false
	if el, ok := c.deps.Inspector.ElementAt(raw); ok {
		elp = &el
		current = el.Frame
		haveCurrent = true
	}
	if frame, ok := c.deps.Filter.Evaluate(elp, raw, now); ok {
		f := frame
		return &f
	}

	if !c.needsHighVelocityProbe() {
		return nil
	}
	if frame, _, ok := c.probe(now, current, haveCurrent); ok {
		f := frame
		return &f
	}
	return nil
}

// resolveMode yields the pointer to the OS while a foreign overlay is
// topmost at the raw position, and takes it back afterwards.
func (c *Coordinator) resolveMode() {
	e := c.deps.Engine
	foreign := c.deps.Foreign != nil &&
		c.deps.Foreign.ForeignOverlayTopmost(e.PreMagnet())

	if foreign {
		if c.mode != ModeHardware {
			c.mode = ModeHardware
			if c.deps.Overlay != nil {
				c.deps.Overlay.Hide()
			}
			if c.deps.Cursor != nil {
				if err := c.deps.Cursor.Show(); err != nil {
					log.Printf("unable to show cursor: %v", err)
				}
			}
			c.warp(e.Position())
			e.Prime(e.Position())
			e.SetMagnetismEnabled(false)
		}
		return
	}

	if c.mode != ModeOverlay {
		c.mode = ModeOverlay
		if c.deps.Cursor != nil {
			if err := c.deps.Cursor.Hide(); err != nil {
				log.Printf("unable to hide cursor: %v", err)
			}
		}
		if c.deps.Overlay != nil {
			if err := c.deps.Overlay.Show(); err != nil {
				log.Printf("unable to show overlay: %v", err)
			}
		}
		e.SetMagnetismEnabled(e.Params().MagnetismEnabled)
	}

	c.warp(e.Position())
	if c.deps.Overlay != nil {
		c.deps.Overlay.Move(e.Position())
	}
}

// warp mirrors the virtual position; failures are logged and retried by
// the next tick.
func (c *Coordinator) warp(p geom.Vec) {
	if err := c.deps.Warp.Warp(p); err != nil {
		log.Printf("warp failed: %v", err)
	}
}
