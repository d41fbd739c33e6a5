package touchvel

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mvanrijn/driftlock/pkg/geom"
)

// Params alter the smoothing behavior. The zero value is not useful; start
// from DefaultParams.
type Params struct {
	// Alpha is the exponential smoothing factor applied to the raw
	// centroid velocity.
	Alpha float64

	// SuppressWindow is how long glide stays suppressed after a frame
	// carried more than one active contact.
	SuppressWindow time.Duration

	// MinDT bounds the velocity divisor when driver frames arrive closer
	// together than the nominal tick period.
	MinDT time.Duration
}

var DefaultParams = Params{
	Alpha:          0.35,
	SuppressWindow: 150 * time.Millisecond,
	MinDT:          2 * time.Millisecond,
}

// Snapshot is the value the tick thread reads once per tick.
type Snapshot struct {
	Touching    bool
	Velocity    geom.Vec // normalized pad units per second, smoothed
	Centroid    geom.Vec // last known contact centroid in [0,1]²
	CentroidOK  bool
	SuppressEnd time.Time
}

// SuppressGlide reports whether glide is suppressed at now.
func (s Snapshot) SuppressGlide(now time.Time) bool {
	return now.Before(s.SuppressEnd)
}

// Smoother consumes driver frames on its own goroutine and publishes a
// value snapshot the tick thread reads without locking. Touching edges are
// additionally posted to a small single-consumer queue so the coordinator
// can wake up on first contact.
type Smoother struct {
	params Params

	snap  atomic.Pointer[Snapshot]
	edges chan bool

	// consumer-side state, touched only by Consume
	touching     bool
	prevCentroid geom.Vec
	hasPrev      bool
	prevTime     time.Time
	smoothed     geom.Vec
	suppressEnd  time.Time
}

// NewSmoother returns a Smoother with the given parameters.
func NewSmoother(params Params) *Smoother {
	s := &Smoother{
		params: params,
		edges:  make(chan bool, 8),
	}
	s.snap.Store(&Snapshot{})
	return s
}

// Edges exposes the touching-transition queue. It never blocks the
// producer; when the consumer lags, stale edges are dropped in favor of
// the newest one.
func (s *Smoother) Edges() <-chan bool {
	return s.edges
}

// Snapshot returns the most recently published value snapshot.
func (s *Smoother) Snapshot() Snapshot {
	return *s.snap.Load()
}

// Consume folds one driver frame into the smoother state and publishes a
// fresh snapshot.
func (s *Smoother) Consume(frame Frame) {
	touching := frame.Touching()
	if touching != s.touching {
		s.touching = touching
		s.postEdge(touching)
	}

	if frame.ActiveCount() > 1 {
		s.suppressEnd = frame.Time.Add(s.params.SuppressWindow)
	}

	var raw geom.Vec
	centroid, ok := frame.Centroid()
	if !ok {
		// empty frame resets the velocity baseline
		s.hasPrev = false
		s.smoothed = geom.Vec{}
	} else {
		if s.hasPrev {
			dt := frame.Time.Sub(s.prevTime)
			if dt < s.params.MinDT {
				dt = s.params.MinDT
			}
			raw = centroid.Sub(s.prevCentroid).Scale(1 / dt.Seconds())
		}
		s.prevCentroid = centroid
		s.prevTime = frame.Time
		s.hasPrev = true
		a := s.params.Alpha
		s.smoothed = s.smoothed.Scale(1 - a).Add(raw.Scale(a))
	}

	s.snap.Store(&Snapshot{
		Touching:    s.touching,
		Velocity:    s.smoothed,
		Centroid:    s.prevCentroid,
		CentroidOK:  s.hasPrev,
		SuppressEnd: s.suppressEnd,
	})
}

func (s *Smoother) postEdge(touching bool) {
	for {
		select {
		case s.edges <- touching:
			return
		default:
		}
		// full queue: drop the oldest edge
		select {
		case <-s.edges:
		default:
		}
	}
}

// Run consumes frames from ch until it closes or ctx is cancelled.
func (s *Smoother) Run(ctx context.Context, ch <-chan Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			s.Consume(frame)
		}
	}
}
