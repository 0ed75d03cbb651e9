// Package viewer serves the map page and the session API the page drives.
package viewer

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/mapview/internal/mapimage"
	"github.com/ziadkadry99/mapview/internal/markers"
	"github.com/ziadkadry99/mapview/internal/session"
	"github.com/ziadkadry99/mapview/internal/viewport"
)

//go:embed index.html
var indexHTML []byte

// Viewer exposes viewer sessions over HTTP and websocket.
type Viewer struct {
	sessions *session.Manager
	asset    *mapimage.Asset
	log      zerolog.Logger
}

// New creates a Viewer. asset may be nil when no map image is configured;
// clients must then report the natural size themselves.
func New(sessions *session.Manager, asset *mapimage.Asset, log zerolog.Logger) *Viewer {
	return &Viewer{
		sessions: sessions,
		asset:    asset,
		log:      log.With().Str("component", "viewer").Logger(),
	}
}

// RegisterRoutes mounts all viewer routes onto the given router.
func (v *Viewer) RegisterRoutes(r chi.Router) {
	r.Get("/", v.ServeIndex)
	r.Get("/map", v.handleMap)
	r.Get("/api/map", v.handleMapInfo)
	r.Get("/ws/viewer", v.handleWebSocket)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", v.handleCreateSession)
		r.Get("/{id}", v.handleGetSession)
		r.Delete("/{id}", v.handleCloseSession)
		r.Post("/{id}/image", v.handleImageLoad)
		r.Post("/{id}/drag", v.handleDrag)
	})
}

// ServeIndex serves the embedded map page.
func (v *Viewer) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

type mapInfo struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (v *Viewer) handleMap(w http.ResponseWriter, r *http.Request) {
	if v.asset == nil {
		writeError(w, http.StatusNotFound, "no map image configured")
		return
	}
	v.asset.ServeHTTP(w, r)
}

func (v *Viewer) handleMapInfo(w http.ResponseWriter, r *http.Request) {
	if v.asset == nil {
		writeError(w, http.StatusNotFound, "no map image configured")
		return
	}
	writeJSON(w, http.StatusOK, mapInfo{
		URL:    "/map",
		Name:   v.asset.Name,
		Format: v.asset.Format,
		Width:  v.asset.Width,
		Height: v.asset.Height,
	})
}

// naturalOr falls back to the served asset's size when the client did not
// report one.
func (v *Viewer) naturalOr(natural viewport.Vec) viewport.Vec {
	if natural.IsZero() && v.asset != nil {
		return v.asset.NaturalSize()
	}
	return natural
}

// frame is the state pushed to a renderer after every event.
type frame struct {
	SessionID string           `json:"session_id"`
	Phase     viewport.Phase   `json:"phase"`
	Offset    viewport.Vec     `json:"offset"`
	Delta     viewport.Vec     `json:"delta"`
	Markers   []markers.Marker `json:"markers"`
}

func frameOf(snap session.Snapshot, delta viewport.Vec) frame {
	return frame{
		SessionID: snap.ID,
		Phase:     snap.Viewport.Phase,
		Offset:    snap.Viewport.Offset,
		Delta:     delta,
		Markers:   snap.Markers,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
