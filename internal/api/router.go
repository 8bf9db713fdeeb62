package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Rules CRUD and ordering.
	r.Get("/rules", h.ListRules)
	r.Put("/rules", h.ReplaceRules)
	r.Post("/rules", h.AddRule)
	r.Post("/rules/reorder", h.ReorderRules)
	r.Put("/rules/{index}", h.UpdateRule)
	r.Delete("/rules/{index}", h.DeleteRule)
	r.Post("/rules/{index}/duplicate", h.DuplicateRule)

	// Moves.
	r.Post("/preview", h.Preview)
	r.Post("/process", h.Process)
	r.Post("/reorganize", h.Reorganize)
	r.Post("/undo", h.Undo)

	// History.
	r.Get("/history", h.History)
	r.Delete("/history", h.ClearHistory)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
