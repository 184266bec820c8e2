package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

type EventHandler struct {
	store            Store
	defaultTargetURL string
}

func NewEventHandler(s Store, defaultTargetURL string) *EventHandler {
	return &EventHandler{store: s, defaultTargetURL: defaultTargetURL}
}

type createEventRequest struct {
	Payload   json.RawMessage `json:"payload"`
	TargetURL string          `json:"target_url"`
}

type createEventResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// eventStatusResponse is the debugging view of an event's delivery state.
type eventStatusResponse struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	AttemptCount int        `json:"attempt_count"`
	NextRetryAt  *time.Time `json:"next_retry_at"`
	LastError    *string    `json:"last_error"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Create accepts an event and stores it as pending. The payload must be a
// JSON object; the target URL must be http or https. Validation failures
// return 422 so the caller can distinguish them from malformed JSON.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req createEventRequest
	if err := dec.Decode(&req); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Payload) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "payload is required")
		return
	}
	if !isJSONObject(req.Payload) {
		respondError(w, http.StatusUnprocessableEntity, "payload must be a JSON object")
		return
	}

	targetURL := req.TargetURL
	if targetURL == "" {
		targetURL = h.defaultTargetURL
	}
	if !strings.HasPrefix(targetURL, "http://") && !strings.HasPrefix(targetURL, "https://") {
		respondError(w, http.StatusUnprocessableEntity, "target_url must be http or https")
		return
	}

	event, err := h.store.InsertEvent(r.Context(), req.Payload, targetURL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	respondJSON(w, http.StatusAccepted, createEventResponse{
		ID:     event.ID,
		Status: "accepted",
	})
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := parseLimit(r, 50)

	events, err := h.store.ListEvents(r.Context(), status, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	respondJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if event == nil {
		respondError(w, http.StatusNotFound, "event not found")
		return
	}

	respondJSON(w, http.StatusOK, eventStatusResponse{
		ID:           event.ID,
		Status:       event.Status,
		AttemptCount: event.AttemptCount,
		NextRetryAt:  event.NextRetryAt,
		LastError:    event.LastError,
		CreatedAt:    event.CreatedAt,
	})
}

// isJSONObject reports whether raw is a valid JSON object (not an array,
// string, number, or other value).
func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Valid(raw)
}

func parseLimit(r *http.Request, fallback int) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
