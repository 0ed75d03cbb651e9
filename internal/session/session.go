// Package session ties one viewport controller to one marker store so that
// every pan of the map moves the markers by the same delta.
package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/mapview/internal/markers"
	"github.com/ziadkadry99/mapview/internal/viewport"
)

// Snapshot is what a renderer needs to draw one frame.
type Snapshot struct {
	ID          string           `json:"session_id"`
	Sensitivity float64          `json:"sensitivity"`
	Viewport    viewport.State   `json:"viewport"`
	Markers     []markers.Marker `json:"markers"`
}

// Session is a single mounted viewer.
type Session struct {
	ID          string
	CreatedAt   time.Time
	sensitivity float64

	mu         sync.Mutex
	viewport   *viewport.Controller
	markers    *markers.Store
	lastActive time.Time
	attached   bool
	log        zerolog.Logger
}

// New creates a session with its own copy of the initial markers.
func New(id string, sensitivity float64, initial []markers.Marker, log zerolog.Logger) (*Session, error) {
	store, err := markers.New(initial)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Session{
		ID:          id,
		CreatedAt:   now,
		lastActive:  now,
		sensitivity: sensitivity,
		viewport:    viewport.NewController(),
		markers:     store,
		log:         log.With().Str("session", id).Logger(),
	}, nil
}

// Sensitivity returns the fixed drag-to-offset scale factor.
func (s *Session) Sensitivity() float64 { return s.sensitivity }

// LoadImage re-centers the map for the given natural and container sizes.
// On the first load markers keep their configured positions. On later loads
// they move with the offset, so a reload into a resized container leaves
// them pinned to the same map point.
func (s *Session) LoadImage(natural, container viewport.Vec) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now().UTC()
	prev := s.viewport.State()
	s.viewport.OnImageLoad(natural, container)
	if prev.Phase != viewport.PhaseUnloaded {
		if shift := s.viewport.CurrentOffset().Sub(prev.Offset); !shift.IsZero() {
			s.markers.MoveAll(shift)
		}
	}

	st := s.viewport.State()
	s.log.Debug().
		Float64("image_w", natural.X).Float64("image_h", natural.Y).
		Float64("center_x", st.Center.X).Float64("center_y", st.Center.Y).
		Msg("image loaded")
	return s.snapshotLocked()
}

// Drag applies a cumulative drag sample and moves every marker by the
// resulting delta. It returns the delta and the post-move snapshot.
func (s *Session) Drag(cumulative viewport.Vec) (viewport.Vec, Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now().UTC()
	delta := s.viewport.OnDragSample(cumulative, s.sensitivity)
	s.markers.MoveAll(delta)
	return delta, s.snapshotLocked()
}

// Marker returns the current position of one marker.
func (s *Session) Marker(id string) (markers.Marker, error) {
	m, ok := s.markers.Get(id)
	if !ok {
		return markers.Marker{}, markers.ErrNotFound
	}
	return m, nil
}

// Snapshot returns the current viewport and marker positions.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now().UTC()
	return s.snapshotLocked()
}

// Attach marks the session as owned by a live connection. Attached sessions
// are closed by their connection and never reaped for idleness.
func (s *Session) Attach() {
	s.mu.Lock()
	s.attached = true
	s.mu.Unlock()
}

// idle reports how long the session has gone unused at now, and whether a
// connection holds it.
func (s *Session) idle(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive), s.attached
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:          s.ID,
		Sensitivity: s.sensitivity,
		Viewport:    s.viewport.State(),
		Markers:     s.markers.Snapshot(),
	}
}
