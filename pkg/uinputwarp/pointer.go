package uinputwarp

import (
	"fmt"

	"github.com/mvanrijn/driftlock/pkg/geom"
)

// absRange is the device-side resolution of each absolute axis.
const absRange = 65535

// Pointer is an absolute-axis virtual pointer device. It implements the
// daemon's warp sink: every Warp translates a global desktop coordinate
// into the device range and emits one absolute motion report.
type Pointer struct {
	uinputDevice
	name   string
	bounds geom.Rect
}

// CreatePointer registers a new absolute pointer device spanning bounds,
// the union of all display frames.
func CreatePointer(name string, bounds geom.Rect, opts ...Option) (*Pointer, error) {
	if bounds.W <= 0 || bounds.H <= 0 {
		return nil, fmt.Errorf("desktop bounds %+v are empty", bounds)
	}
	construct := defaultUinputConstructor
	for _, opt := range opts {
		opt(&construct)
	}
	dev, err := createUinputDevice(construct.path)
	if err != nil {
		return nil, fmt.Errorf("could not create absolute pointer device: %w", err)
	}
	p := &Pointer{uinputDevice: dev, name: name, bounds: bounds}

	if err := dev.register(uiSetEvBit, evSyn, evKey, evAbs); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to register event types: %w", err)
	}
	// a pointer without a single button is ignored by some compositors
	if err := dev.register(uiSetKeyBit, btnLeft); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to register button: %w", err)
	}
	if err := dev.register(uiSetAbsBit, absX, absY); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to register absolute axes: %w", err)
	}
	if err := dev.setup(name, construct.id); err != nil {
		dev.Close()
		return nil, err
	}
	if err := dev.registerAbs(absX, 0, absRange, 0); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to set up x axis: %w", err)
	}
	if err := dev.registerAbs(absY, 0, absRange, 0); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to set up y axis: %w", err)
	}
	if err := dev.create(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	return p, nil
}

// UpdateBounds replaces the desktop extent used for coordinate
// translation after a display topology change.
func (p *Pointer) UpdateBounds(bounds geom.Rect) {
	if bounds.W > 0 && bounds.H > 0 {
		p.bounds = bounds
	}
}

// Warp moves the kernel pointer to the global desktop coordinate v.
func (p *Pointer) Warp(v geom.Vec) error {
	v = p.bounds.ClampPoint(v)
	x := int32((v.X - p.bounds.MinX()) / p.bounds.W * absRange)
	y := int32((v.Y - p.bounds.MinY()) / p.bounds.H * absRange)
	if err := p.emit(evAbs, absX, x); err != nil {
		return fmt.Errorf("failed to warp pointer along x axis: %w", err)
	}
	if err := p.emit(evAbs, absY, y); err != nil {
		return fmt.Errorf("failed to warp pointer along y axis: %w", err)
	}
	return p.sync()
}
