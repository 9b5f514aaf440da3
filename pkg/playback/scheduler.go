// Package playback keeps the running clock that places model audio segments back to back.
package playback

import (
	"sync"
	"time"
)

// Slot is where a segment lands on the session clock.
type Slot struct {
	Start    time.Duration
	Duration time.Duration
}

// End returns when the segment finishes playing.
func (s Slot) End() time.Duration {
	return s.Start + s.Duration
}

// Scheduler hands out contiguous playback slots measured from the session origin.
type Scheduler struct {
	mu     sync.Mutex
	now    func() time.Time
	origin time.Time
	next   time.Duration
}

// NewScheduler starts a clock at the current instant. A nil now uses time.Now.
func NewScheduler(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{now: now, origin: now()}
}

// Elapsed reports the current position of the session clock.
func (s *Scheduler) Elapsed() time.Duration {
	return s.now().Sub(s.origin)
}

// Schedule reserves a slot for a segment: start = max(next, now), next = start + d.
func (s *Scheduler) Schedule(d time.Duration) Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.next
	if elapsed := s.Elapsed(); elapsed > start {
		start = elapsed
	}
	s.next = start + d
	return Slot{Start: start, Duration: d}
}

// Interrupt drops every pending assumption and pulls the clock back to now.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = s.Elapsed()
}

// Next returns the earliest start offset for the next segment.
func (s *Scheduler) Next() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
