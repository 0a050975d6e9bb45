// Package router sets up the HTTP routes and middleware chain for the
// blockdesk JSON API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"blockdesk/internal/handlers"
	"blockdesk/internal/middleware"
)

// New creates the Chi router. limiter may be nil to disable write rate
// limiting.
func New(api *handlers.API, limiter *middleware.WriteLimiter) chi.Router {
	r := chi.NewRouter()

	// Actor runs before Logger so the request log carries the acting user.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Actor)
	r.Use(middleware.Logger)
	r.Use(middleware.APIHeaders)
	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/notifications", api.Notifications)

		// Articles
		r.Route("/articles", func(r chi.Router) {
			r.Get("/", api.ListArticles)
			r.Post("/", api.CreateArticle)
			r.Delete("/{id}", api.DeleteArticle)
		})

		// Editor sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", api.OpenSession)
			r.Route("/{sid}", func(r chi.Router) {
				r.Get("/", api.GetSession)
				r.Delete("/", api.DiscardSession)
				r.Post("/items", api.AddItem)
				r.Patch("/items/{id}", api.UpdateItem)
				r.Delete("/items/{id}", api.DeleteItem)
				r.Post("/reorder", api.ReorderItems)
				r.Put("/parent", api.SetParentField)
				r.Post("/categories/{name}/{dir}", api.MoveSessionCategory)
				r.Post("/save", api.SaveSession)
			})
		})

		// Checklist boards, written through directly
		r.Route("/checklists/{board}", func(r chi.Router) {
			r.Get("/tasks", api.GetChecklist)
			r.Post("/tasks", api.AddTask)
			r.Post("/tasks/reorder", api.ReorderTasks)
			r.Patch("/tasks/{id}", api.UpdateTask)
			r.Delete("/tasks/{id}", api.DeleteTask)
			r.Post("/tasks/{id}/move", api.MoveTask)
			r.Post("/categories/swap", api.SwapCategories)
			r.Post("/categories/{name}/{dir}", api.MoveCategory)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
