package ticker

import (
	"errors"
	"testing"
	"time"

	"github.com/mvanrijn/driftlock/pkg/eligibility"
	"github.com/mvanrijn/driftlock/pkg/engine"
	"github.com/mvanrijn/driftlock/pkg/geom"
	"github.com/mvanrijn/driftlock/pkg/touchvel"
)

// The coordinator is tested tick by tick against fake collaborators; the
// real loop only adds a timer around Tick.

type fakePointer struct{ p geom.Vec }

func (f *fakePointer) Location() geom.Vec { return f.p }

type fakeWarp struct {
	calls []geom.Vec
	fail  bool
}

func (f *fakeWarp) Warp(p geom.Vec) error {
	if f.fail {
		return errors.New("warp refused")
	}
	f.calls = append(f.calls, p)
	return nil
}

func (f *fakeWarp) last() (geom.Vec, bool) {
	if len(f.calls) == 0 {
		return geom.Vec{}, false
	}
	return f.calls[len(f.calls)-1], true
}

type fakeInspector struct{ elements []eligibility.Element }

func (f *fakeInspector) ElementAt(p geom.Vec) (eligibility.Element, bool) {
	for _, el := range f.elements {
		if el.Frame.Contains(p) {
			return el, true
		}
	}
	return eligibility.Element{}, false
}

type fakeForeign struct{ region *geom.Rect }

func (f *fakeForeign) ForeignOverlayTopmost(p geom.Vec) bool {
	return f.region != nil && f.region.Contains(p)
}

type fakeCursor struct{ hidden, shown int }

func (f *fakeCursor) Hide() error { f.hidden++; return nil }
func (f *fakeCursor) Show() error { f.shown++; return nil }

type fakeOverlay struct {
	visible   bool
	moves     []geom.Vec
	animating bool
}

func (f *fakeOverlay) Show() error     { f.visible = true; return nil }
func (f *fakeOverlay) Hide()           { f.visible = false }
func (f *fakeOverlay) Move(p geom.Vec) { f.moves = append(f.moves, p) }
func (f *fakeOverlay) Animating() bool { return f.animating }

type harness struct {
	c        *Coordinator
	engine   *engine.Engine
	smoother *touchvel.Smoother
	pointer  *fakePointer
	warp     *fakeWarp
	insp     *fakeInspector
	foreign  *fakeForeign
	cursor   *fakeCursor
	overlay  *fakeOverlay
	now      time.Time
}

func newHarness(start geom.Vec) *harness {
	h := &harness{
		smoother: touchvel.NewSmoother(touchvel.DefaultParams),
		pointer:  &fakePointer{p: start},
		warp:     &fakeWarp{},
		insp:     &fakeInspector{},
		foreign:  &fakeForeign{},
		cursor:   &fakeCursor{},
		overlay:  &fakeOverlay{},
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	h.engine = engine.New(engine.DefaultParams)
	h.engine.UpdateDesktopBounds(geom.Rect{X: 0, Y: 0, W: 2000, H: 1200})
	h.engine.Prime(start)
	h.c = New(Deps{
		Engine:    h.engine,
		Smoother:  h.smoother,
		Filter:    eligibility.NewFilter(eligibility.DefaultParams),
		Pointer:   h.pointer,
		Warp:      h.warp,
		Inspector: h.insp,
		Foreign:   h.foreign,
		Cursor:    h.cursor,
		Overlay:   h.overlay,
	}, DefaultOptions)
	return h
}

func (h *harness) touch(on bool) {
	var touches []touchvel.Touch
	if on {
		touches = []touchvel.Touch{{Pos: geom.Vec{X: 0.5, Y: 0.5}, State: touchvel.Touching}}
	}
	h.smoother.Consume(touchvel.Frame{Time: h.now, Touches: touches})
}

func (h *harness) tick() {
	h.now = h.now.Add(2 * time.Millisecond)
	h.c.Tick(h.now)
}

func TestTickIntegratesTouchMotion(t *testing.T) {
	h := newHarness(geom.Vec{X: 100, Y: 100})
	h.touch(true)

	h.tick() // BeginTouch anchors at the current physical location
	h.pointer.p = geom.Vec{X: 120, Y: 100}
	h.tick()

	if got := h.engine.Position(); got.X != 120 || got.Y != 100 {
		t.Fatalf("expected position to follow the pointer, got %v", got)
	}
	if last, ok := h.warp.last(); !ok || last != h.engine.Position() {
		t.Fatalf("expected warp to mirror the virtual position, got %v (%v)", last, ok)
	}
	if len(h.overlay.moves) == 0 {
		t.Fatalf("expected overlay updates")
	}
}

func TestTickSnapsToEligibleElement(t *testing.T) {
	h := newHarness(geom.Vec{X: 120, Y: 110})
	frame := geom.Rect{X: 100, Y: 100, W: 80, H: 30}
	h.insp.elements = []eligibility.Element{{
		Frame: frame, Role: "AXButton", Actions: []string{"AXPress"},
	}}

	h.touch(true)
	h.tick()

	if !h.engine.IsLocked() {
		t.Fatalf("expected lock on the element under the pointer")
	}
	if got := h.engine.Position(); got != frame.Center() {
		t.Fatalf("expected snap to element center %v, got %v", frame.Center(), got)
	}
}

func TestProbeFindsElementSkippedByFastStep(t *testing.T) {
	h := newHarness(geom.Vec{X: 100, Y: 100})
	frame := geom.Rect{X: 300, Y: 90, W: 40, H: 20}
	h.insp.elements = []eligibility.Element{{
		Frame: frame, Role: "AXButton", Actions: []string{"AXPress"},
	}}

	h.touch(true)
	h.tick()
	h.pointer.p = geom.Vec{X: 500, Y: 100}
	h.tick()

	if !h.engine.IsLocked() {
		t.Fatalf("expected probe to capture the skipped element")
	}
	if got := h.engine.Position(); got != frame.Center() {
		t.Fatalf("expected snap to %v, got %v", frame.Center(), got)
	}
}

func TestForeignOverlaySwitchesMode(t *testing.T) {
	h := newHarness(geom.Vec{X: 100, Y: 100})
	h.touch(true)
	h.tick()
	if h.c.Mode() != ModeOverlay {
		t.Fatalf("expected overlay mode initially")
	}

	region := geom.Rect{X: 0, Y: 0, W: 2000, H: 1200}
	h.foreign.region = &region
	h.tick()

	if h.c.Mode() != ModeHardware {
		t.Fatalf("expected hardware mode under foreign overlay")
	}
	if h.cursor.shown == 0 {
		t.Fatalf("expected OS cursor shown in hardware mode")
	}
	if h.overlay.visible {
		t.Fatalf("expected overlay hidden in hardware mode")
	}
	if h.engine.MagnetismEnabled() {
		t.Fatalf("expected magnetism disabled in hardware mode")
	}

	h.foreign.region = nil
	h.tick()
	if h.c.Mode() != ModeOverlay {
		t.Fatalf("expected overlay mode restored")
	}
	if !h.engine.MagnetismEnabled() {
		t.Fatalf("expected magnetism re-enabled")
	}
	if !h.overlay.visible {
		t.Fatalf("expected overlay shown again")
	}
}

func TestWarpFailureDoesNotAbortTick(t *testing.T) {
	h := newHarness(geom.Vec{X: 100, Y: 100})
	h.warp.fail = true
	h.touch(true)
	h.tick()
	h.tick()

	// the loop keeps running; once warping works again it catches up
	h.warp.fail = false
	h.pointer.p = geom.Vec{X: 140, Y: 100}
	h.tick()
	if last, ok := h.warp.last(); !ok || last != h.engine.Position() {
		t.Fatalf("expected warp recovery, got %v (%v)", last, ok)
	}
}

func TestDtClampedToNominalRate(t *testing.T) {
	h := newHarness(geom.Vec{X: 100, Y: 100})
	h.touch(true)
	h.tick()

	// a second tick with the same timestamp must still integrate a full
	// 2ms step
	h.pointer.p = geom.Vec{X: 110, Y: 100}
	h.c.Tick(h.now)
	if got := h.engine.Position(); got.X != 110 {
		t.Fatalf("expected integration despite zero wall-clock dt, got %v", got)
	}
}

func TestActiveStates(t *testing.T) {
	h := newHarness(geom.Vec{X: 100, Y: 100})
	if h.c.active() {
		t.Fatalf("expected idle with no touch, glide or animation")
	}
	h.touch(true)
	if !h.c.active() {
		t.Fatalf("expected active while touching")
	}
	h.touch(false)
	if h.c.active() {
		t.Fatalf("expected idle after release without glide")
	}
	h.overlay.animating = true
	if !h.c.active() {
		t.Fatalf("expected active while overlay animates")
	}
}
