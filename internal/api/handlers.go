package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/forcegraph/internal/ingest"
	"github.com/starford/forcegraph/internal/sceneservice"
)

// maxSceneBytes bounds the size of an uploaded scene document.
const maxSceneBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *sceneservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *sceneservice.Service) *Handler {
	return &Handler{svc: svc}
}

func sceneID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// ListScenes handles GET /api/scenes.
//
//	@Summary		List live scenes
//	@Tags			scenes
//	@Produce		json
//	@Success		200	{object}	SceneListResponse
//	@Security		BearerAuth
//	@Router			/scenes [get]
func (h *Handler) ListScenes(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, "list scenes", err)
		return
	}
	writeJSON(w, http.StatusOK, SceneListResponse{Scenes: items, Total: len(items)})
}

// ListCatalog handles GET /api/catalog.
//
//	@Summary		List catalogued scene files
//	@Description	Every scene file found in the scenes directory, with whether it backs a live scene.
//	@Tags			scenes
//	@Produce		json
//	@Success		200	{object}	CatalogResponse
//	@Security		BearerAuth
//	@Router			/catalog [get]
func (h *Handler) ListCatalog(w http.ResponseWriter, _ *http.Request) {
	items, err := h.svc.Catalog()
	if err != nil {
		writeServiceError(w, "list catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Files: items, Total: len(items)})
}

// CreateScene handles POST /api/scenes. The body is a scene document in
// JSON or YAML.
//
//	@Summary		Create and start a scene
//	@Tags			scenes
//	@Accept			json
//	@Accept			x-yaml
//	@Produce		json
//	@Success		201	{object}	SceneSummary
//	@Failure		400	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scenes [post]
func (h *Handler) CreateScene(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSceneBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	spec, err := ingest.Parse(bytes.TrimSpace(body))
	if err != nil {
		writeServiceError(w, "create scene", err)
		return
	}
	if err := validateSceneID(spec.ID); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id: "+err.Error()))
		return
	}
	sum, err := h.svc.Create(r.Context(), spec)
	if err != nil {
		writeServiceError(w, "create scene", err)
		return
	}
	writeJSON(w, http.StatusCreated, sum)
}

// GetScene handles GET /api/scenes/{id}.
//
//	@Summary		Get a scene summary
//	@Tags			scenes
//	@Produce		json
//	@Param			id	path		string	true	"Scene id"
//	@Success		200	{object}	SceneSummary
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scenes/{id} [get]
func (h *Handler) GetScene(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Get(r.Context(), sceneID(r))
	if err != nil {
		writeServiceError(w, "get scene", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// DeleteScene handles DELETE /api/scenes/{id}.
//
//	@Summary		Stop a scene and delete its file
//	@Tags			scenes
//	@Param			id	path	string	true	"Scene id"
//	@Success		204	"Scene deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scenes/{id} [delete]
func (h *Handler) DeleteScene(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), sceneID(r)); err != nil {
		writeServiceError(w, "delete scene", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Frame handles GET /api/scenes/{id}/frame.
//
//	@Summary		Current frame of a scene
//	@Tags			render
//	@Produce		json
//	@Param			id	path		string	true	"Scene id"
//	@Success		200	{object}	render.Frame
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scenes/{id}/frame [get]
func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Frame(r.Context(), sceneID(r))
	if err != nil {
		writeServiceError(w, "frame", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// Markup handles GET /api/scenes/{id}/markup.
//
//	@Summary		Container fragment of a scene
//	@Tags			render
//	@Produce		html
//	@Param			id	path	string	true	"Scene id"
//	@Success		200	{string}	string
//	@Security		BearerAuth
//	@Router			/scenes/{id}/markup [get]
func (h *Handler) Markup(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Markup(sceneID(r))
	if err != nil {
		writeServiceError(w, "markup", err)
		return
	}
	writeHTML(w, []byte(m))
}

// Script handles GET /api/scenes/{id}/script.
//
//	@Summary		Client script fragment of a scene
//	@Tags			render
//	@Produce		html
//	@Param			id	path	string	true	"Scene id"
//	@Success		200	{string}	string
//	@Security		BearerAuth
//	@Router			/scenes/{id}/script [get]
func (h *Handler) Script(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Script(r.Context(), sceneID(r))
	if err != nil {
		writeServiceError(w, "script", err)
		return
	}
	writeHTML(w, []byte(s))
}

// Document handles GET /api/scenes/{id}/view.
//
//	@Summary		Standalone HTML page of a scene
//	@Tags			render
//	@Produce		html
//	@Param			id	path	string	true	"Scene id"
//	@Success		200	{string}	string
//	@Security		BearerAuth
//	@Router			/scenes/{id}/view [get]
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.WriteDocument(r.Context(), &buf, sceneID(r)); err != nil {
		writeServiceError(w, "document", err)
		return
	}
	writeHTML(w, buf.Bytes())
}

// SnapshotSVG handles GET /api/scenes/{id}/snapshot.svg.
//
//	@Summary		SVG snapshot of a scene
//	@Tags			render
//	@Produce		image/svg+xml
//	@Param			id	path	string	true	"Scene id"
//	@Success		200	{file}	file
//	@Security		BearerAuth
//	@Router			/scenes/{id}/snapshot.svg [get]
func (h *Handler) SnapshotSVG(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.WriteSVG(r.Context(), &buf, sceneID(r)); err != nil {
		writeServiceError(w, "svg snapshot", err)
		return
	}
	writeBytes(w, "image/svg+xml", buf.Bytes())
}

// SnapshotPNG handles GET /api/scenes/{id}/snapshot.png.
//
//	@Summary		PNG snapshot of a scene
//	@Tags			render
//	@Produce		image/png
//	@Param			id	path	string	true	"Scene id"
//	@Success		200	{file}	file
//	@Security		BearerAuth
//	@Router			/scenes/{id}/snapshot.png [get]
func (h *Handler) SnapshotPNG(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.WritePNG(r.Context(), &buf, sceneID(r)); err != nil {
		writeServiceError(w, "png snapshot", err)
		return
	}
	writeBytes(w, "image/png", buf.Bytes())
}

// Drag handles POST /api/scenes/{id}/drag.
//
//	@Summary		Apply one phase of a node drag
//	@Tags			gestures
//	@Accept			json
//	@Param			id		path	string		true	"Scene id"
//	@Param			body	body	DragRequest	true	"Drag phase"
//	@Success		204		"Applied"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scenes/{id}/drag [post]
func (h *Handler) Drag(w http.ResponseWriter, r *http.Request) {
	var req DragRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.Drag(r.Context(), sceneID(r), req.Phase, req.Node, req.X, req.Y); err != nil {
		writeServiceError(w, "drag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DoubleClick handles POST /api/scenes/{id}/dblclick.
//
//	@Summary		Recentre a node
//	@Tags			gestures
//	@Accept			json
//	@Param			id		path	string		true	"Scene id"
//	@Param			body	body	NodeRequest	true	"Node"
//	@Success		204		"Applied"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scenes/{id}/dblclick [post]
func (h *Handler) DoubleClick(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.DoubleClick(r.Context(), sceneID(r), req.Node); err != nil {
		writeServiceError(w, "dblclick", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pin handles POST /api/scenes/{id}/pin.
//
//	@Summary		Pin a node at world coordinates
//	@Tags			gestures
//	@Accept			json
//	@Param			id		path	string		true	"Scene id"
//	@Param			body	body	PinRequest	true	"Node and position"
//	@Success		204		"Applied"
//	@Security		BearerAuth
//	@Router			/scenes/{id}/pin [post]
func (h *Handler) Pin(w http.ResponseWriter, r *http.Request) {
	var req PinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.Pin(r.Context(), sceneID(r), req.Node, req.X, req.Y); err != nil {
		writeServiceError(w, "pin", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Release handles POST /api/scenes/{id}/release.
//
//	@Summary		Release a pinned node
//	@Tags			gestures
//	@Accept			json
//	@Param			id		path	string		true	"Scene id"
//	@Param			body	body	NodeRequest	true	"Node"
//	@Success		204		"Applied"
//	@Security		BearerAuth
//	@Router			/scenes/{id}/release [post]
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.Release(r.Context(), sceneID(r), req.Node); err != nil {
		writeServiceError(w, "release", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Zoom handles POST /api/scenes/{id}/zoom.
//
//	@Summary		Zoom the viewport about a point
//	@Tags			gestures
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Scene id"
//	@Param			body	body		ZoomRequest	true	"Zoom"
//	@Success		200		{object}	ViewResponse
//	@Security		BearerAuth
//	@Router			/scenes/{id}/zoom [post]
func (h *Handler) Zoom(w http.ResponseWriter, r *http.Request) {
	var req ZoomRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v, err := h.svc.Zoom(sceneID(r), req.Factor, req.X, req.Y)
	if err != nil {
		writeServiceError(w, "zoom", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Pan handles POST /api/scenes/{id}/pan.
//
//	@Summary		Pan the viewport
//	@Tags			gestures
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Scene id"
//	@Param			body	body		PanRequest	true	"Offset"
//	@Success		200		{object}	ViewResponse
//	@Security		BearerAuth
//	@Router			/scenes/{id}/pan [post]
func (h *Handler) Pan(w http.ResponseWriter, r *http.Request) {
	var req PanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v, err := h.svc.Pan(sceneID(r), req.DX, req.DY)
	if err != nil {
		writeServiceError(w, "pan", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Restart handles POST /api/scenes/{id}/restart.
//
//	@Summary		Re-heat the layout
//	@Tags			gestures
//	@Param			id	path	string	true	"Scene id"
//	@Success		204	"Applied"
//	@Security		BearerAuth
//	@Router			/scenes/{id}/restart [post]
func (h *Handler) Restart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Restart(r.Context(), sceneID(r)); err != nil {
		writeServiceError(w, "restart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events handles GET /api/scenes/{id}/events.
//
//	@Summary		Server-sent layout events (tick, settled, view)
//	@Tags			render
//	@Produce		text/event-stream
//	@Param			id	path	string	true	"Scene id"
//	@Security		BearerAuth
//	@Router			/scenes/{id}/events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	stream, err := h.svc.Events(sceneID(r))
	if err != nil {
		writeServiceError(w, "events", err)
		return
	}
	slog.Debug("sse client connected", slog.String("scene", sceneID(r)))
	stream.ServeHTTP(w, r)
}

func writeHTML(w http.ResponseWriter, b []byte) {
	writeBytes(w, "text/html; charset=utf-8", b)
}

func writeBytes(w http.ResponseWriter, contentType string, b []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
