package animals

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the detail drawer API.
func RegisterRoutes(r chi.Router, dir *Directory) {
	r.Route("/api/animals", func(r chi.Router) {
		r.Get("/", handleList(dir))
		r.Get("/{id}", handleGet(dir))
	})
}

func handleList(dir *Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(dir.List())
	}
}

func handleGet(dir *Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := dir.Get(chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}
}
