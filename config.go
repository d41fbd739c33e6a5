package driftlock

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mvanrijn/driftlock/pkg/engine"
	"github.com/mvanrijn/driftlock/pkg/geom"
)

// DisplayConfig is one display frame in global desktop space.
type DisplayConfig struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
	W float64 `toml:"w"`
	H float64 `toml:"h"`
}

// Config is the daemon configuration. Unset file keys keep their
// defaults.
type Config struct {
	// TickRateHz is the nominal frequency of the tick loop.
	TickRateHz int `toml:"tick_rate_hz"`

	// DeviceName is the name of the virtual pointer device registered
	// with the kernel.
	DeviceName string `toml:"device_name"`

	// Displays describe the desktop when no display source is wired in.
	Displays []DisplayConfig `toml:"displays"`

	Engine engine.Params `toml:"engine"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		TickRateHz: 500,
		DeviceName: "driftlock virtual pointer",
		Displays:   []DisplayConfig{{X: 0, Y: 0, W: 1920, H: 1080}},
		Engine:     engine.DefaultParams,
	}
}

// LoadConfig reads a TOML file over the defaults. An empty path returns
// the defaults unchanged; a path that cannot be read is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("could not read config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the tick loop cannot run with.
func (c Config) Validate() error {
	if c.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive, got %d", c.TickRateHz)
	}
	if c.Engine.MaxMomentumSpeed <= 0 {
		return fmt.Errorf("engine max momentum speed must be positive, got %v", c.Engine.MaxMomentumSpeed)
	}
	if c.Engine.GlideStopSpeedMultiplier <= 0 || c.Engine.GlideStopSpeedMultiplier >= 1 {
		return fmt.Errorf("glide stop multiplier must be in (0,1), got %v", c.Engine.GlideStopSpeedMultiplier)
	}
	for i, d := range c.Displays {
		if d.W <= 0 || d.H <= 0 {
			return fmt.Errorf("display %d has empty frame", i)
		}
	}
	return nil
}

// TickInterval returns the tick period.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRateHz)
}

// DisplayRects converts the configured displays to frames.
func (c Config) DisplayRects() []geom.Rect {
	rects := make([]geom.Rect, len(c.Displays))
	for i, d := range c.Displays {
		rects[i] = geom.Rect{X: d.X, Y: d.Y, W: d.W, H: d.H}
	}
	return rects
}
