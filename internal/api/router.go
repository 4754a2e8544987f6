package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", h.Index)
		r.Get("/health", h.Health)
		r.Get("/config", h.Config)

		r.Get("/models", h.ListModels)
		r.Get("/models/{model}", h.GetModel)
		r.Get("/models/{model}/settings", h.GetModelSettings)

		r.Post("/generate", h.Generate)
		r.Get("/queue", h.QueueStatus)
		r.Delete("/queue", h.ClearQueue)
		r.Delete("/queue/{taskID}", h.RemoveTask)
		r.Get("/status/{taskID}", h.TaskStatus)

		r.Get("/outputs", h.ListOutputs)
		r.Get("/download/{filename}", h.Download)
		r.Get("/preview/{filename}", h.Preview)
	})

	return r
}
