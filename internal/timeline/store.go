package timeline

import "sync"

// Store holds the latest project snapshot. Mutators run from different
// event sources (pointer callbacks, the playback tick, the CLI), so access
// is serialized; each Apply sees the latest snapshot and replaces it
// wholesale (last writer wins, no optimistic checks).
type Store struct {
	mu       sync.Mutex
	current  *Project
	onChange func(*Project)
}

// NewStore wraps a project. onChange, if set, fires after every mutation
// that produced a new snapshot; callers use it to drive autosave and
// redraws. It is invoked outside the store lock.
func NewStore(p *Project, onChange func(*Project)) *Store {
	return &Store{current: p, onChange: onChange}
}

// Current returns the latest snapshot. Snapshots are never mutated after
// publication, so the caller may read it without further locking.
func (s *Store) Current() *Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Apply runs a snapshot transformation and publishes its result. A
// transform returning its input unchanged publishes nothing.
func (s *Store) Apply(fn func(*Project) *Project) *Project {
	s.mu.Lock()
	next := fn(s.current)
	changed := next != s.current
	s.current = next
	s.mu.Unlock()

	if changed && s.onChange != nil {
		s.onChange(next)
	}
	return next
}

// Replace swaps in a freshly loaded project
func (s *Store) Replace(p *Project) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(p)
	}
}
