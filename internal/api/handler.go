package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/videogen/genqueue/internal/admission"
	"github.com/videogen/genqueue/internal/outputs"
	"github.com/videogen/genqueue/internal/query"
	"github.com/videogen/genqueue/internal/queue"
	"github.com/videogen/genqueue/internal/registry"
)

const (
	defaultListLimit   = 50
	maxListLimit       = 200
	defaultPreviewWide = 320
	minPreviewWide     = 32
	maxPreviewWide     = 1920
)

// Thumbnailer renders a scaled JPEG preview of an image stream.
type Thumbnailer interface {
	Thumbnail(r io.Reader, width int) ([]byte, error)
}

type Handler struct {
	admission *admission.Controller
	store     *queue.Store
	query     *query.Service
	registry  *registry.Registry
	catalog   *outputs.Catalog
	thumbs    Thumbnailer
	safeCfg   map[string]any
}

func NewHandler(
	adm *admission.Controller,
	store *queue.Store,
	qs *query.Service,
	reg *registry.Registry,
	catalog *outputs.Catalog,
	thumbs Thumbnailer,
	safeCfg map[string]any,
) *Handler {
	return &Handler{
		admission: adm,
		store:     store,
		query:     qs,
		registry:  reg,
		catalog:   catalog,
		thumbs:    thumbs,
		safeCfg:   safeCfg,
	}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	respondOK(w, http.StatusOK, "generation queue API is running", map[string]any{
		"api_version": "1.0.0",
		"endpoints": map[string]string{
			"models":   "/api/v1/models",
			"generate": "/api/v1/generate",
			"queue":    "/api/v1/queue",
			"status":   "/api/v1/status/{task_id}",
			"outputs":  "/api/v1/outputs",
			"download": "/api/v1/download/{filename}",
		},
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	respondOK(w, http.StatusOK, "server configuration", h.safeCfg)
}

func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	models := h.registry.List()
	respondOK(w, http.StatusOK, fmt.Sprintf("Found %d models", len(models)),
		map[string]any{"models": models})
}

func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "model")

	def, err := h.registry.Definition(id)
	if err != nil {
		respondError(w, statusCode(err), err.Error())
		return
	}
	settings, err := h.registry.DefaultSettings(id)
	if err != nil {
		respondError(w, statusCode(err), err.Error())
		return
	}

	respondOK(w, http.StatusOK, fmt.Sprintf("Model info for %q", id), map[string]any{
		"id":               def.ID,
		"name":             def.Name,
		"description":      def.Description,
		"family":           def.Family,
		"is_i2v":           def.IsI2V,
		"is_t2v":           def.IsT2V,
		"visible":          def.Visible,
		"default_settings": settings,
	})
}

func (h *Handler) GetModelSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "model")

	settings, err := h.registry.DefaultSettings(id)
	if err != nil {
		respondError(w, statusCode(err), err.Error())
		return
	}
	respondOK(w, http.StatusOK, fmt.Sprintf("Default settings for %q", id), settings)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req admission.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.admission.Submit(&req)
	if err != nil {
		respondError(w, statusCode(err), err.Error())
		return
	}

	respondOK(w, http.StatusOK, "generation task added to queue", receipt)
}

func (h *Handler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	view := h.query.QueueView()
	respondOK(w, http.StatusOK, fmt.Sprintf("Queue has %d tasks", view.TotalTasks), view)
}

func (h *Handler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := h.query.StatusOf(r.Context(), id)
	if err != nil {
		respondError(w, statusCode(err), err.Error())
		return
	}
	respondOK(w, http.StatusOK, fmt.Sprintf("Task %d status", id), st)
}

func (h *Handler) RemoveTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Remove(id); err != nil {
		respondError(w, statusCode(err), err.Error())
		return
	}
	respondOK(w, http.StatusOK, fmt.Sprintf("Task %d removed from queue", id),
		map[string]int64{"removed_task_id": id})
}

func (h *Handler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	removed := h.store.Clear(true)
	respondOK(w, http.StatusOK, fmt.Sprintf("Cleared %d tasks from queue", removed),
		map[string]int{"removed_count": removed})
}

func (h *Handler) ListOutputs(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(r, "offset", 0, 0, 1<<31-1)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	typeFilter := outputs.FileType(r.URL.Query().Get("file_type"))

	files, total, err := h.catalog.List(limit, offset, typeFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondOK(w, http.StatusOK, fmt.Sprintf("Found %d files", total), map[string]any{
		"files":  files,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	path, err := h.catalog.Resolve(name)
	if err != nil {
		respondError(w, statusCode(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", outputs.ContentType(path))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	width, err := intParam(r, "width", defaultPreviewWide, minPreviewWide, maxPreviewWide)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	path, err := h.catalog.Resolve(name)
	if err != nil {
		respondError(w, statusCode(err), err.Error())
		return
	}

	if outputs.Classify(path) != outputs.TypeImage {
		respondError(w, http.StatusBadRequest, "preview not available for this file type")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	thumb, err := h.thumbs.Thumbnail(f, width)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(thumb)
}

func taskID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "taskID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}

func intParam(r *http.Request, name string, fallback, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, fmt.Errorf("%s must be an integer in [%d, %d]", name, min, max)
	}
	return v, nil
}
