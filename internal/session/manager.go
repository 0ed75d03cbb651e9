package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/mapview/internal/markers"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Manager owns the live viewer sessions.
type Manager struct {
	sensitivity float64
	initial     []markers.Marker
	log         zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager validates the initial marker list once so a bad configuration
// fails at startup rather than on the first connection.
func NewManager(sensitivity float64, initial []markers.Marker, log zerolog.Logger) (*Manager, error) {
	if sensitivity <= 0 {
		return nil, fmt.Errorf("sensitivity must be positive, got %v", sensitivity)
	}
	if _, err := markers.New(initial); err != nil {
		return nil, err
	}
	cp := make([]markers.Marker, len(initial))
	copy(cp, initial)
	return &Manager{
		sensitivity: sensitivity,
		initial:     cp,
		log:         log,
		sessions:    make(map[string]*Session),
	}, nil
}

// Create mounts a new session.
func (m *Manager) Create() (*Session, error) {
	s, err := New(uuid.New().String(), m.sensitivity, m.initial, m.log)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Info().Str("session", s.ID).Int("markers", len(m.initial)).Msg("session created")
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return s, nil
}

// Close unmounts a session and discards its state.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	m.log.Info().Str("session", id).Msg("session closed")
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sensitivity returns the scale factor given to new sessions.
func (m *Manager) Sensitivity() float64 { return m.sensitivity }

// ReapIdle closes detached sessions unused for longer than maxIdle and
// returns their ids.
func (m *Manager) ReapIdle(now time.Time, maxIdle time.Duration) []string {
	m.mu.Lock()
	var reaped []string
	for id, s := range m.sessions {
		idle, attached := s.idle(now)
		if attached || idle <= maxIdle {
			continue
		}
		delete(m.sessions, id)
		reaped = append(reaped, id)
	}
	m.mu.Unlock()

	for _, id := range reaped {
		m.log.Info().Str("session", id).Dur("max_idle", maxIdle).Msg("idle session reaped")
	}
	return reaped
}

// RunReaper calls ReapIdle periodically until ctx is done. A non-positive
// maxIdle disables reaping.
func (m *Manager) RunReaper(ctx context.Context, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	interval := maxIdle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.ReapIdle(now.UTC(), maxIdle)
		}
	}
}
