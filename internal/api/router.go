package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ticktock/internal/timesheet"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *timesheet.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/messages/parse", h.ParseMessage)

	r.Post("/entries/ship", h.ShipEntries)
	r.Post("/entries/{id}/refine", h.RefineEntry)

	r.Get("/days/{date}", h.DayEntries)
	r.Get("/calendar/{month}", h.CalendarMonth)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
