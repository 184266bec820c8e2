package api

import (
	"context"
	"net/http"

	"github.com/Priya8975/webhook-dispatcher/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Store is the persistence surface the API reads and writes.
type Store interface {
	InsertEvent(ctx context.Context, payload []byte, targetURL string) (*domain.Event, error)
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	ListEvents(ctx context.Context, status string, limit int) ([]domain.Event, error)
	ListAttempts(ctx context.Context, eventID string, limit int) ([]domain.DeliveryAttempt, error)
	GetAttempt(ctx context.Context, id string) (*domain.DeliveryAttempt, error)
}

// NewRouter creates and configures the HTTP router. defaultTargetURL is used
// for events submitted without a target_url.
func NewRouter(st Store, defaultTargetURL string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	eventHandler := NewEventHandler(st, defaultTargetURL)
	deliveryHandler := NewDeliveryHandler(st)
	dlqHandler := NewDeadLetterHandler(st)

	r.Get("/health", HealthHandler())

	r.Route("/events", func(r chi.Router) {
		r.Post("/", eventHandler.Create)
		r.Get("/", eventHandler.List)
		r.Get("/{id}", eventHandler.Get)
	})

	r.Route("/deliveries", func(r chi.Router) {
		r.Get("/", deliveryHandler.List)
		r.Get("/{id}", deliveryHandler.Get)
	})

	r.Route("/dead-letters", func(r chi.Router) {
		r.Get("/", dlqHandler.List)
		r.Get("/{id}", dlqHandler.Get)
	})

	return r
}
