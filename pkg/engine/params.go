package engine

import (
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/mvanrijn/driftlock/pkg/geom"
)

// Params alter the motion and magnetism behavior. Start from
// DefaultParams; the zero value disables everything useful.
type Params struct {
	// GlideDecayPerSecond is the exponential friction factor applied to
	// the glide velocity.
	GlideDecayPerSecond float64

	// MinimumGlideVelocity is the speed (px/s) a release must carry for a
	// glide to start.
	MinimumGlideVelocity float64

	// GlideStopSpeedMultiplier scales MinimumGlideVelocity into the speed
	// below which an active glide stops.
	GlideStopSpeedMultiplier float64

	// TrackpadVelocityGain scales the normalized trackpad velocity when
	// it is converted to pixels.
	TrackpadVelocityGain float64

	// MaxMomentumSpeed caps the velocity adopted from the trackpad (px/s).
	MaxMomentumSpeed float64

	// MagnetismRadius is the base attraction radius before per-target
	// shaping.
	MagnetismRadius float64

	// MagneticStrength is the base pull strength before per-target
	// shaping.
	MagneticStrength float64

	// SnapThreshold is the base snap distance before per-target shaping.
	SnapThreshold float64

	// TargetLockDistance is the nominal lock acquisition distance kept
	// for configuration compatibility; per-target lock thresholds are
	// derived from the shaped snap distance.
	TargetLockDistance float64

	// TargetSwitchMinDistance is the hard raw-escape distance beyond
	// which a lock never survives a competing candidate.
	TargetSwitchMinDistance float64

	// MagnetismEnabled is the initial magnetism switch.
	MagnetismEnabled bool

	// PreBrakeEnabled applies the approach-scaled reduction of raw
	// pointer deltas near a target. Disable for applications that do not
	// want pointer-scale deformation.
	PreBrakeEnabled bool
}

var DefaultParams = Params{
	GlideDecayPerSecond:      6.5,
	MinimumGlideVelocity:     220,
	GlideStopSpeedMultiplier: 0.45,
	TrackpadVelocityGain:     0.95,
	MaxMomentumSpeed:         9000,
	MagnetismRadius:          80,
	MagneticStrength:         0.65,
	SnapThreshold:            30,
	TargetLockDistance:       50,
	TargetSwitchMinDistance:  120,
	MagnetismEnabled:         true,
	PreBrakeEnabled:          true,
}

// glideBand is the speed interval an active glide lives in: below Min the
// glide stops, above Max adopted momentum is clamped.
func (p Params) glideBand() r1.Interval {
	return r1.Interval{
		Min: p.MinimumGlideVelocity * p.GlideStopSpeedMultiplier,
		Max: p.MaxMomentumSpeed,
	}
}

// targetParams is the per-frame shaping of the magnetism constants. Small
// frames get tighter radii and stronger pull; elongated frames are
// attenuated so bars and rows do not capture the pointer from far away.
type targetParams struct {
	Radius   float64
	Snap     float64
	Strength float64

	Minor  float64
	Major  float64
	Aspect float64
}

func (p Params) magneticParams(f geom.Rect) targetParams {
	minor := f.W
	major := f.H
	if f.H < f.W {
		minor, major = f.H, f.W
	}
	if minor < 1 {
		minor = 1
	}
	aspect := major / minor
	norm := geom.Clamp(minor/110, 0.22, 1)

	tp := targetParams{
		Radius:   geom.Clamp(p.MagnetismRadius*norm*1.05, minor*0.85, minor*1.8+18),
		Snap:     max(p.SnapThreshold*norm*0.9, minor*0.55, 12),
		Strength: geom.Clamp(p.MagneticStrength*(0.66+norm*0.5), 0.4, p.MagneticStrength*1.12),
		Minor:    minor,
		Major:    major,
		Aspect:   aspect,
	}

	if aspect > 2.4 {
		k := min(0.6, (aspect-2.4)*0.12)
		tp.Radius *= 1 - k
		tp.Snap *= 1 - 0.85*k
		tp.Strength *= max(0.55, 1-0.9*k)
	}
	return tp
}

// paddedRect grows f by the near-rect test padding.
func paddedRect(f geom.Rect) geom.Rect {
	padX := geom.Clamp(f.W*0.22, 6, 18)
	padY := geom.Clamp(f.H*0.60, 6, 18)
	return f.Inset(-padX, -padY)
}
