package store

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/kawaiicut/internal/timeline"
)

// autosaveDelay is the quiet period after the last change before a save
// fires. Edits arrive in bursts (drags emit one per pointer move); saving
// each one would hammer the database.
const autosaveDelay = time.Second

// Autosaver debounces project saves. Changed feeds it snapshots; the
// latest snapshot wins when the timer fires. Suspend parks it while an
// export owns the playback loop.
type Autosaver struct {
	store  *Store
	delay  time.Duration
	logger zerolog.Logger

	mu        sync.Mutex
	timer     *time.Timer
	pending   *timeline.Project
	suspended bool
}

func NewAutosaver(store *Store, logger zerolog.Logger) *Autosaver {
	return &Autosaver{
		store:  store,
		delay:  autosaveDelay,
		logger: logger.With().Str("component", "autosave").Logger(),
	}
}

// Changed schedules a save of the given snapshot after the quiet period
func (a *Autosaver) Changed(p *timeline.Project) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.suspended {
		return
	}
	a.pending = p
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

func (a *Autosaver) fire() {
	a.mu.Lock()
	p := a.pending
	a.pending = nil
	a.timer = nil
	a.mu.Unlock()
	if p == nil {
		return
	}
	if err := a.store.SaveProject(p); err != nil {
		a.logger.Error().Err(err).Str("project", p.Meta.ID).Msg("autosave failed")
	}
}

// Flush saves any pending snapshot immediately
func (a *Autosaver) Flush() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	a.fire()
}

// Suspend drops pending work and ignores changes until Resume
func (a *Autosaver) Suspend() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.suspended = true
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// Resume re-enables autosaving
func (a *Autosaver) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.suspended = false
}
