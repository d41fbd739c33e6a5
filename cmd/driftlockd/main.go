// Command driftlockd runs the pointer magnetism daemon: it consumes a
// stream of trackpad frames, simulates the virtual cursor, and mirrors
// it onto a kernel pointer device.
//
// Touch frames arrive as JSON lines (one touchvel.Frame per line), from
// a FIFO fed by the trackpad driver or from a recorded replay file:
//
//	driftlockd -config /etc/driftlock.toml -frames /run/driftlock/touches
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	driftlock "github.com/mvanrijn/driftlock"
	"github.com/mvanrijn/driftlock/pkg/engine"
	"github.com/mvanrijn/driftlock/pkg/geom"
	"github.com/mvanrijn/driftlock/pkg/ticker"
	"github.com/mvanrijn/driftlock/pkg/touchvel"
	"github.com/mvanrijn/driftlock/pkg/uinputwarp"
)

// jsonFrameSource reads one JSON-encoded touch frame per line.
type jsonFrameSource struct {
	scan *bufio.Scanner
}

func (s *jsonFrameSource) FD() int { return -1 }

func (s *jsonFrameSource) Poll() (touchvel.Frame, bool, error) {
	var frame touchvel.Frame
	if !s.scan.Scan() {
		if err := s.scan.Err(); err != nil && !errors.Is(err, io.EOF) {
			return frame, false, err
		}
		return frame, false, driftlock.ErrSourceDrained
	}
	if err := json.Unmarshal(s.scan.Bytes(), &frame); err != nil {
		return frame, true, err
	}
	return frame, true, nil
}

// padPointer maps the trackpad centroid onto the desktop, acting as the
// physical pointer source for an absolute-pointing setup.
type padPointer struct {
	smoother *touchvel.Smoother
	bounds   geom.Rect
	last     geom.Vec
}

func (p *padPointer) Location() geom.Vec {
	snap := p.smoother.Snapshot()
	if snap.CentroidOK {
		p.last = geom.Vec{
			X: p.bounds.MinX() + snap.Centroid.X*p.bounds.W,
			Y: p.bounds.MinY() + snap.Centroid.Y*p.bounds.H,
		}
	}
	return p.last
}

func main() {
	configPath := flag.String("config", "", "path to the daemon configuration")
	framesPath := flag.String("frames", "", "path to the touch frame stream (JSON lines)")
	flag.Parse()

	cfg, err := driftlock.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	if *framesPath == "" {
		log.Fatalf("error: -frames is required")
	}

	bounds, ok := driftlock.DesktopBounds(cfg.DisplayRects())
	if !ok {
		log.Fatalf("error: no displays configured")
	}

	framesFile, err := os.Open(*framesPath)
	if err != nil {
		log.Fatalf("error: unable to open frame stream: %v", err)
	}
	defer framesFile.Close()

	warp, err := uinputwarp.CreatePointer(cfg.DeviceName, bounds)
	if err != nil {
		log.Fatalf("error: unable to create pointer device: %v", err)
	}
	defer warp.Close()

	eng := engine.New(cfg.Engine)
	eng.UpdateDesktopBounds(bounds)
	eng.Prime(bounds.Center())

	smoother := touchvel.NewSmoother(touchvel.DefaultParams)
	frames := make(chan touchvel.Frame, 64)
	src := &jsonFrameSource{scan: bufio.NewScanner(framesFile)}
	driftlock.NewPoller[touchvel.Frame](src).Stream(frames)

	coord := ticker.New(ticker.Deps{
		Engine:   eng,
		Smoother: smoother,
		Pointer:  &padPointer{smoother: smoother, bounds: bounds, last: bounds.Center()},
		Warp:     warp,
	}, ticker.Options{Rate: cfg.TickInterval()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		smoother.Run(ctx, frames)
		return nil
	})
	g.Go(func() error {
		return coord.Run(ctx)
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v", err)
	}
}
