package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/auth"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router with the global middleware stack.
// Everything except health, signup and login requires a bearer token.
func NewRouter(events *EventHandler, users *UserHandler, tokens *auth.TokenIssuer, log *slog.Logger, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(log))             // structured access log
	r.Use(CORS)
	r.Use(chimiddleware.Timeout(timeout))

	r.Get("/health", HealthCheck)

	r.Post("/users/create", users.CreateUser)
	r.Post("/users/login", users.Login)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokens))

		r.Get("/users/{id}", users.GetUser)

		r.Route("/events", func(r chi.Router) {
			r.Post("/create", events.CreateEvent)
			r.Put("/edit", events.EditEvent)
			r.Delete("/{id}", events.DeleteEvent)
			r.Get("/user/{id}", events.ListByOwner)
			r.Get("/user/{id}/calendar.ics", events.ExportCalendar)
			r.Get("/daily/{user_id}/{date}", events.ListByDay)
			r.Get("/monthly/{user_id}/{year}/{month}", events.ListByMonth)
		})
	})

	return r
}
