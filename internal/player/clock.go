package player

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

// MaxTickDelta caps the per-tick playhead advance in seconds. After a
// stall (window hidden, debugger, long GC pause) the playhead steps
// forward gently instead of jumping.
const MaxTickDelta = 0.1

// Reconciler is the media synchronizer hook run once per frame
type Reconciler interface {
	Reconcile(p *timeline.Project, t float64)
}

// FrameFunc receives every presented frame's snapshot and time. The
// reconciler and the frame callback always see the same time value.
type FrameFunc func(p *timeline.Project, t float64)

// Clock drives the playback loop: while the project plays it keeps
// exactly one tick scheduled, advances the playhead by clamped wall-clock
// deltas, and presents a frame per tick. Stopping cancels the pending
// tick.
type Clock struct {
	store   *timeline.Store
	sched   Scheduler
	recon   Reconciler
	onFrame FrameFunc
	logger  zerolog.Logger

	mu       sync.Mutex
	cancel   func()
	lastTick time.Time
	now      func() time.Time
}

func NewClock(store *timeline.Store, sched Scheduler, recon Reconciler, onFrame FrameFunc, logger zerolog.Logger) *Clock {
	return &Clock{
		store:   store,
		sched:   sched,
		recon:   recon,
		onFrame: onFrame,
		logger:  logger.With().Str("component", "player").Logger(),
		now:     time.Now,
	}
}

// SetNow overrides the wall clock, for deterministic tests
func (c *Clock) SetNow(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Toggle flips the transport and adjusts the tick loop to match
func (c *Clock) Toggle() {
	p := c.store.Apply(func(p *timeline.Project) *timeline.Project {
		return p.TogglePlay()
	})
	c.syncLoop(p)
	c.frame(p)
}

// Pause stops playback if it is running
func (c *Clock) Pause() {
	p := c.store.Apply(func(p *timeline.Project) *timeline.Project {
		if !p.Playing {
			return p
		}
		out := p.Clone()
		out.Playing = false
		return out
	})
	c.syncLoop(p)
	c.frame(p)
}

// Seek moves the playhead and presents the frame there, playing or not
func (c *Clock) Seek(t float64) {
	p := c.store.Apply(func(p *timeline.Project) *timeline.Project {
		return p.Seek(t)
	})
	c.frame(p)
}

// Skip moves the playhead by a signed number of seconds
func (c *Clock) Skip(delta float64) {
	c.Seek(c.store.Current().CurrentTime + delta)
}

// Playing reports the transport state of the latest snapshot
func (c *Clock) Playing() bool {
	return c.store.Current().Playing
}

// Resync presents the current frame without moving the playhead. Called
// after external mutations (edits, project load) so the preview and media
// transports catch up.
func (c *Clock) Resync() {
	p := c.store.Current()
	c.syncLoop(p)
	c.frame(p)
}

// syncLoop starts or cancels the tick loop to match the snapshot. At most
// one tick is ever outstanding.
func (c *Clock) syncLoop(p *timeline.Project) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.Playing {
		if c.cancel == nil {
			c.lastTick = c.now()
			c.cancel = c.sched.Schedule(c.tick)
		}
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Clock) tick() {
	c.mu.Lock()
	now := c.now()
	dt := now.Sub(c.lastTick).Seconds()
	if dt > MaxTickDelta {
		dt = MaxTickDelta
	}
	c.lastTick = now
	c.cancel = nil
	c.mu.Unlock()

	p := c.store.Apply(func(p *timeline.Project) *timeline.Project {
		return p.Advance(dt)
	})
	c.frame(p)
	c.syncLoop(p)
}

func (c *Clock) frame(p *timeline.Project) {
	t := p.CurrentTime
	if c.recon != nil {
		c.recon.Reconcile(p, t)
	}
	if c.onFrame != nil {
		c.onFrame(p, t)
	}
}
