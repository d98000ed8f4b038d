package player

import (
	"sync"
	"time"
)

// Scheduler arranges a single future callback, in the shape of an
// animation-frame loop: every tick schedules the next one, and cancelling
// the returned handle drops a pending callback that has not fired yet.
type Scheduler interface {
	Schedule(fn func()) (cancel func())
}

// TickerScheduler fires callbacks after a fixed delay on their own
// goroutine. The default delay approximates a display refresh.
type TickerScheduler struct {
	Interval time.Duration
}

func (s *TickerScheduler) interval() time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	return 16 * time.Millisecond
}

func (s *TickerScheduler) Schedule(fn func()) func() {
	t := time.AfterFunc(s.interval(), fn)
	return func() { t.Stop() }
}

// ManualScheduler holds callbacks until Fire is called. Tests use it to
// drive the clock tick by tick.
type ManualScheduler struct {
	mu      sync.Mutex
	pending func()
	serial  int
}

func (s *ManualScheduler) Schedule(fn func()) func() {
	s.mu.Lock()
	s.pending = fn
	s.serial++
	id := s.serial
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if s.serial == id {
			s.pending = nil
		}
		s.mu.Unlock()
	}
}

// Fire runs the pending callback, if any, and reports whether one ran
func (s *ManualScheduler) Fire() bool {
	s.mu.Lock()
	fn := s.pending
	s.pending = nil
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Pending reports whether a callback is waiting
func (s *ManualScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}
