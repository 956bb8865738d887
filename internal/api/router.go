package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/forcegraph/internal/sceneservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(svc *sceneservice.Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/scenes", h.ListScenes)
	r.Post("/scenes", h.CreateScene)
	r.Get("/catalog", h.ListCatalog)

	r.Route("/scenes/{id}", func(r chi.Router) {
		r.Get("/", h.GetScene)
		r.Delete("/", h.DeleteScene)

		// Rendering.
		r.Get("/frame", h.Frame)
		r.Get("/markup", h.Markup)
		r.Get("/script", h.Script)
		r.Get("/view", h.Document)
		r.Get("/snapshot.svg", h.SnapshotSVG)
		r.Get("/snapshot.png", h.SnapshotPNG)

		// Gestures.
		r.Post("/drag", h.Drag)
		r.Post("/dblclick", h.DoubleClick)
		r.Post("/pin", h.Pin)
		r.Post("/release", h.Release)
		r.Post("/zoom", h.Zoom)
		r.Post("/pan", h.Pan)
		r.Post("/restart", h.Restart)

		// SSE stream (protected by the same auth middleware).
		r.Get("/events", h.Events)
	})

	return r
}

// Health returns the unauthenticated liveness/readiness handler.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
