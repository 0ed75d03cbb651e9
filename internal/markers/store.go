package markers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ziadkadry99/mapview/internal/viewport"
)

var (
	// ErrNotFound is returned when a move targets an unknown marker id.
	ErrNotFound = errors.New("marker not found")
	// ErrDuplicateID is wrapped by ConfigError when the initial list repeats an id.
	ErrDuplicateID = errors.New("duplicate marker id")
)

// ConfigError reports an invalid initial marker list.
type ConfigError struct {
	ID  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("marker configuration: %v: %q", e.Err, e.ID)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Marker is a point overlay pinned to the map.
type Marker struct {
	ID       string       `json:"id"`
	Position viewport.Vec `json:"position"`
}

// Store holds marker positions in insertion order.
type Store struct {
	mu    sync.RWMutex
	order []string
	pos   map[string]viewport.Vec
}

// New builds a store from the initial markers. Ids must be unique.
func New(initial []Marker) (*Store, error) {
	s := &Store{
		order: make([]string, 0, len(initial)),
		pos:   make(map[string]viewport.Vec, len(initial)),
	}
	for _, m := range initial {
		if _, dup := s.pos[m.ID]; dup {
			return nil, &ConfigError{ID: m.ID, Err: ErrDuplicateID}
		}
		s.order = append(s.order, m.ID)
		s.pos[m.ID] = m.Position
	}
	return s, nil
}

// MoveAll shifts every marker by delta. Readers observe either the state
// before or after the whole pass.
func (s *Store) MoveAll(delta viewport.Vec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pos {
		s.pos[id] = p.Add(delta)
	}
}

// MoveOne shifts a single marker by delta.
func (s *Store) MoveOne(id string, delta viewport.Vec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pos[id]
	if !ok {
		return fmt.Errorf("moving %q: %w", id, ErrNotFound)
	}
	s.pos[id] = p.Add(delta)
	return nil
}

// Get returns one marker.
func (s *Store) Get(id string) (Marker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pos[id]
	if !ok {
		return Marker{}, false
	}
	return Marker{ID: id, Position: p}, true
}

// Snapshot returns a copy of all markers in insertion order.
func (s *Store) Snapshot() []Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Marker, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, Marker{ID: id, Position: s.pos[id]})
	}
	return out
}

// Len returns the number of markers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
