// Package mixbcast turns control state into wire frames at a fixed rate.
package mixbcast

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/txn2/pimixer/pkg/mixmetrics"
	"github.com/txn2/pimixer/pkg/mixstate"
)

// DefaultPeriod is far faster than human interaction so slider motion
// reaches the device without visible lag
const DefaultPeriod = 10 * time.Millisecond

// Sink receives outbound frames. *mixqueue.Queue[string] satisfies it.
type Sink interface {
	Enqueue(frame string)
}

// Scheduler enqueues one frame per tick. It does no coalescing; a slow
// consumer lets the sink grow without bound.
type Scheduler struct {
	sink   Sink
	frames uint64
}

// New creates a Scheduler writing to sink. A nil sink disables broadcasting.
func New(sink Sink) *Scheduler {
	return &Scheduler{sink: sink}
}

// Tick enqueues snap as a serial frame, changed or not
func (s *Scheduler) Tick(snap mixstate.Snapshot) bool {
	if s.sink == nil {
		return false
	}
	s.sink.Enqueue(snap.Frame())
	s.frames++
	mixmetrics.FramesEnqueued.Inc()
	return true
}

// Detach stops broadcasting, used once the bridge has gone away
func (s *Scheduler) Detach() {
	if s.sink != nil {
		log.Debugf("Broadcast stopped after %d frames", s.frames)
	}
	s.sink = nil
}

// Active reports whether ticks still produce frames
func (s *Scheduler) Active() bool {
	return s.sink != nil
}

// Frames returns how many frames this scheduler has enqueued
func (s *Scheduler) Frames() uint64 {
	return s.frames
}
