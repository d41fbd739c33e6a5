package driftlock

import (
	"errors"
	"log"
	"time"

	"golang.org/x/sys/unix"
)

// ErrPollAgain is returned by a FrameSource to mark the poll invalid.
var ErrPollAgain = errors.New("invalid polling, should retrying")

// FrameSource defines a source that can be polled for input frames.
type FrameSource[T any] interface {
	// FD returns a non-blocking file descriptor, or a negative value when
	// the source has none. When it becomes readable, Poll() is expected
	// to return data immediately.
	FD() int

	// Poll attempts to retrieve a frame.
	//
	// Return values:
	//   T:     the retrieved frame (invalid if error == ErrPollAgain)
	//   bool:  indicates whether more data is immediately available
	//          without waiting for I/O readiness
	//   error: nil on success. If ErrPollAgain is returned, the call
	//          should be repeated without waiting. Any other error aborts
	//          the attempt.
	Poll() (T, bool, error)
}

// Poller drives a FrameSource using poll(2) or retry logic.
type Poller[T any] struct {
	src      FrameSource[T]
	fd       int
	dontwait bool
}

// NewPoller creates a new Poller for the given source.
// The poller initially assumes that Poll() should be called without waiting.
func NewPoller[T any](src FrameSource[T]) *Poller[T] {
	return &Poller[T]{
		src:      src,
		fd:       -1,
		dontwait: true,
	}
}

// Wait waits for a frame up to the specified timeout. A negative timeout
// is considered forever. It handles ErrPollAgain internally and returns
// the first valid frame or error.
func (p *Poller[T]) Wait(timeout time.Duration) (T, error) {
	for {
		if !p.dontwait {
			if p.fd == -1 {
				p.fd = p.src.FD()
			}
			if p.fd >= 0 {
				fds := [...]unix.PollFd{{
					Fd:     int32(p.fd),
					Events: unix.POLLIN,
				}}
				dur := -1
				if timeout >= 0 {
					dur = int(timeout.Milliseconds())
				}
				unix.Poll(fds[:], dur)
			}
		}
		frame, cont, err := p.src.Poll()
		if errors.Is(err, ErrPollAgain) {
			p.dontwait = true
			time.Sleep(10 * time.Millisecond)
			continue
		}
		p.dontwait = cont && err == nil
		return frame, err
	}
}

func (p *Poller[T]) drain(ch chan<- T) bool {
	for {
		frame, cont, err := p.src.Poll()
		if errors.Is(err, ErrPollAgain) {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if errors.Is(err, ErrSourceDrained) {
			return false
		}
		if err != nil {
			log.Printf("error while polling for frame: %v", err)
			return true
		}
		ch <- frame
		if !cont {
			return true
		}
	}
}

// Stream continuously polls and writes frames into ch. It blocks in a
// background goroutine until the source reports ErrSourceDrained; ch is
// closed when it does.
func (p *Poller[T]) Stream(ch chan<- T) {
	go func() {
		defer close(ch)
		if !p.drain(ch) {
			return
		}
		for {
			if p.fd == -1 {
				p.fd = p.src.FD()
			}
			if p.fd >= 0 {
				fds := [...]unix.PollFd{{
					Fd:     int32(p.fd),
					Events: unix.POLLIN,
				}}
				unix.Poll(fds[:], -1)
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			if !p.drain(ch) {
				return
			}
		}
	}()
}

// ErrSourceDrained is returned by finite sources (such as replays) when
// no further frames will ever be produced.
var ErrSourceDrained = errors.New("frame source drained")

// ReplaySource replays a recorded frame sequence, for offline debugging
// and tests. It implements FrameSource.
type ReplaySource[T any] struct {
	Frames []T
	next   int
}

func (r *ReplaySource[T]) FD() int { return -1 }

func (r *ReplaySource[T]) Poll() (T, bool, error) {
	if r.next >= len(r.Frames) {
		var zero T
		return zero, false, ErrSourceDrained
	}
	frame := r.Frames[r.next]
	r.next++
	return frame, r.next < len(r.Frames), nil
}
