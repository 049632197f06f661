package ai

import (
	"context"
	"errors"
	"time"
)

// ErrSchedulerClosed is returned for calls submitted after Close.
var ErrSchedulerClosed = errors.New("scheduler closed")

// Scheduler serializes outbound generation calls and enforces a minimum
// spacing between consecutive dispatch starts. Callers may submit from any
// goroutine; dispatch itself is strictly sequential through a single
// consumer loop, so no two calls run their external request at once.
// A failed call only rejects its own caller, queued calls keep flowing.
type Scheduler struct {
	interval time.Duration
	calls    chan *scheduledCall
	quit     chan struct{}
	done     chan struct{}
}

type scheduledCall struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// NewScheduler creates a scheduler with the given minimum inter-call
// interval. An interval of zero disables scheduling: calls run
// immediately on the caller's goroutine.
func NewScheduler(interval time.Duration) *Scheduler {
	s := &Scheduler{
		interval: interval,
		calls:    make(chan *scheduledCall),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if interval > 0 {
		go s.run()
	}
	return s
}

// Do submits fn and blocks until it has been dispatched and finished,
// returning fn's error unchanged. Admission is FIFO in submission order.
// A context cancelled while the call is still queued rejects only that
// call; it never consumes a dispatch slot.
func (s *Scheduler) Do(ctx context.Context, fn func(context.Context) error) error {
	if s.interval <= 0 {
		return fn(ctx)
	}

	c := &scheduledCall{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case s.calls <- c:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return ErrSchedulerClosed
	}

	// Once admitted, the consumer loop always resolves the call.
	return <-c.done
}

// Close stops the consumer loop. Calls already dispatched run to
// completion; queued calls are rejected with ErrSchedulerClosed.
// Close must be called at most once.
func (s *Scheduler) Close() {
	if s.interval <= 0 {
		return
	}
	close(s.quit)
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)

	var last time.Time // start time of the most recently dispatched call
	for {
		select {
		case <-s.quit:
			return
		case c := <-s.calls:
			if err := c.ctx.Err(); err != nil {
				c.done <- err
				continue
			}

			if !last.IsZero() {
				if wait := s.interval - time.Since(last); wait > 0 {
					timer := time.NewTimer(wait)
					select {
					case <-timer.C:
					case <-s.quit:
						timer.Stop()
						c.done <- ErrSchedulerClosed
						return
					}
				}
			}

			if err := c.ctx.Err(); err != nil {
				c.done <- err
				continue
			}

			last = time.Now()
			c.done <- c.fn(c.ctx)
		}
	}
}
