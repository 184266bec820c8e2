package api

import (
	"net/http"

	"github.com/Priya8975/webhook-dispatcher/internal/domain"
	"github.com/go-chi/chi/v5"
)

// DeadLetterHandler exposes dead events for operator inspection. There is
// no requeue operation; operators re-submit via POST /events.
type DeadLetterHandler struct {
	store Store
}

func NewDeadLetterHandler(s Store) *DeadLetterHandler {
	return &DeadLetterHandler{store: s}
}

func (h *DeadLetterHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)

	events, err := h.store.ListEvents(r.Context(), domain.StatusDead, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list dead letters")
		return
	}

	respondJSON(w, http.StatusOK, events)
}

func (h *DeadLetterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get dead letter")
		return
	}
	if event == nil || event.Status != domain.StatusDead {
		respondError(w, http.StatusNotFound, "dead letter not found")
		return
	}

	respondJSON(w, http.StatusOK, event)
}
