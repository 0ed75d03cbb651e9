package viewer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/mapview/internal/session"
	"github.com/ziadkadry99/mapview/internal/viewport"
)

type imageLoadRequest struct {
	Natural   viewport.Vec `json:"natural"`
	Container viewport.Vec `json:"container"`
}

type dragRequest struct {
	Offset viewport.Vec `json:"offset"`
}

func (v *Viewer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := v.sessions.Create()
	if err != nil {
		v.log.Error().Err(err).Msg("creating session")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// lookup resolves the {id} route param, writing a 404 when it is unknown.
func (v *Viewer) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	s, err := v.sessions.Get(id)
	if errors.Is(err, session.ErrNotFound) {
		v.log.Debug().Str("session", id).Msg("unknown session")
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return s, true
}

func (v *Viewer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := v.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (v *Viewer) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	err := v.sessions.Close(chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (v *Viewer) handleImageLoad(w http.ResponseWriter, r *http.Request) {
	s, ok := v.lookup(w, r)
	if !ok {
		return
	}
	var req imageLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	snap := s.LoadImage(v.naturalOr(req.Natural), req.Container)
	writeJSON(w, http.StatusOK, frameOf(snap, viewport.Vec{}))
}

func (v *Viewer) handleDrag(w http.ResponseWriter, r *http.Request) {
	s, ok := v.lookup(w, r)
	if !ok {
		return
	}
	var req dragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	delta, snap := s.Drag(req.Offset)
	writeJSON(w, http.StatusOK, frameOf(snap, delta))
}
