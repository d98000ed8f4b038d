package media

import (
	"sync"

	"github.com/rs/zerolog"
)

// AttachResult reports how an ensure-attach call resolved
type AttachResult int

const (
	Attached AttachResult = iota
	AlreadyAttached
	AttachFailed
)

func (r AttachResult) String() string {
	switch r {
	case Attached:
		return "attached"
	case AlreadyAttached:
		return "already-attached"
	case AttachFailed:
		return "failed"
	}
	return "unknown"
}

// Output is the shared audio graph the mixer routes sources into
type Output interface {
	Attach(src string) error
	Resume() error
	Suspend() error
}

// NopOutput is an Output with no audio device behind it. Preview playback
// stays silent but transport state keeps advancing, so exports and sync
// behave identically.
type NopOutput struct{}

func (NopOutput) Attach(string) error { return nil }
func (NopOutput) Resume() error       { return nil }
func (NopOutput) Suspend() error      { return nil }

// Mixer tracks which sources are routed into the shared output. Attaching
// is idempotent per source; a source that failed to attach is retried on
// the next ensure call.
type Mixer struct {
	out    Output
	logger zerolog.Logger

	mu       sync.Mutex
	attached map[string]bool
	running  bool
}

func NewMixer(out Output, logger zerolog.Logger) *Mixer {
	return &Mixer{
		out:      out,
		logger:   logger.With().Str("component", "mixer").Logger(),
		attached: make(map[string]bool),
	}
}

// EnsureAttached routes a source into the output graph if it is not
// already routed
func (m *Mixer) EnsureAttached(src string) AttachResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attached[src] {
		return AlreadyAttached
	}
	if err := m.out.Attach(src); err != nil {
		m.logger.Warn().Err(err).Str("src", src).Msg("audio attach failed")
		return AttachFailed
	}
	m.attached[src] = true
	return Attached
}

// Resume starts the output graph. Browsers gate audio on a user gesture;
// desktop outputs may still need an explicit start after suspension.
func (m *Mixer) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	if err := m.out.Resume(); err != nil {
		return err
	}
	m.running = true
	return nil
}

// Suspend halts the output graph
func (m *Mixer) Suspend() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	if err := m.out.Suspend(); err != nil {
		return err
	}
	m.running = false
	return nil
}

// Running reports whether the output graph is live
func (m *Mixer) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
