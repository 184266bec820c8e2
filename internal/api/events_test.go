package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Priya8975/webhook-dispatcher/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	events       map[string]*domain.Event
	attempts     map[string]*domain.DeliveryAttempt
	insertErr    error
	lastInserted *domain.Event
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:   make(map[string]*domain.Event),
		attempts: make(map[string]*domain.DeliveryAttempt),
	}
}

func (f *fakeStore) InsertEvent(ctx context.Context, payload []byte, targetURL string) (*domain.Event, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	now := time.Now()
	ev := &domain.Event{
		ID:          fmt.Sprintf("evt-%d", len(f.events)+1),
		Payload:     payload,
		TargetURL:   targetURL,
		Status:      domain.StatusPending,
		NextRetryAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.events[ev.ID] = ev
	f.lastInserted = ev
	return ev, nil
}

func (f *fakeStore) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return f.events[id], nil
}

func (f *fakeStore) ListEvents(ctx context.Context, status string, limit int) ([]domain.Event, error) {
	out := []domain.Event{}
	for _, ev := range f.events {
		if status == "" || ev.Status == status {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAttempts(ctx context.Context, eventID string, limit int) ([]domain.DeliveryAttempt, error) {
	out := []domain.DeliveryAttempt{}
	for _, a := range f.attempts {
		if eventID == "" || a.EventID == eventID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAttempt(ctx context.Context, id string) (*domain.DeliveryAttempt, error) {
	return f.attempts[id], nil
}

func newTestRouter(st Store) http.Handler {
	return NewRouter(st, "http://localhost:8080/webhook")
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateEvent_Accepted(t *testing.T) {
	st := newFakeStore()
	router := newTestRouter(st)

	rec := doRequest(t, router, http.MethodPost, "/events",
		`{"payload":{"x":1},"target_url":"http://example.com/webhook"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"accepted"`)
	assert.Contains(t, rec.Body.String(), `"id":"evt-1"`)

	require.NotNil(t, st.lastInserted)
	assert.Equal(t, "http://example.com/webhook", st.lastInserted.TargetURL)
	assert.JSONEq(t, `{"x":1}`, string(st.lastInserted.Payload))
}

func TestCreateEvent_DefaultTargetURL(t *testing.T) {
	st := newFakeStore()
	router := newTestRouter(st)

	rec := doRequest(t, router, http.MethodPost, "/events", `{"payload":{"x":1}}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, st.lastInserted)
	assert.Equal(t, "http://localhost:8080/webhook", st.lastInserted.TargetURL)
}

func TestCreateEvent_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "unknown field",
			body:     `{"payload":{"x":1},"extra":"nope"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "missing payload",
			body:     `{"target_url":"http://example.com"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "string payload",
			body:     `{"payload":"not-an-object"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "array payload",
			body:     `{"payload":[1,2,3]}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "number payload",
			body:     `{"payload":42}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "bad scheme",
			body:     `{"payload":{"x":1},"target_url":"ftp://example.com"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "relative target",
			body:     `{"payload":{"x":1},"target_url":"/webhook"}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "malformed json",
			body:     `{"payload":`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			router := newTestRouter(st)

			rec := doRequest(t, router, http.MethodPost, "/events", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Nil(t, st.lastInserted, "nothing should be inserted on validation failure")
		})
	}
}

func TestCreateEvent_StoreFailure(t *testing.T) {
	st := newFakeStore()
	st.insertErr = fmt.Errorf("connection refused")
	router := newTestRouter(st)

	rec := doRequest(t, router, http.MethodPost, "/events", `{"payload":{"x":1}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetEvent(t *testing.T) {
	st := newFakeStore()
	lastErr := "HTTP 500: boom"
	retryAt := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	st.events["evt-9"] = &domain.Event{
		ID:           "evt-9",
		Status:       domain.StatusPending,
		AttemptCount: 2,
		NextRetryAt:  &retryAt,
		LastError:    &lastErr,
		CreatedAt:    retryAt.Add(-time.Minute),
	}
	router := newTestRouter(st)

	rec := doRequest(t, router, http.MethodGet, "/events/evt-9", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"id":"evt-9"`)
	assert.Contains(t, body, `"status":"pending"`)
	assert.Contains(t, body, `"attempt_count":2`)
	assert.Contains(t, body, `"last_error":"HTTP 500: boom"`)
	assert.NotContains(t, body, `"payload"`, "status view should not echo the payload")
}

func TestGetEvent_NotFound(t *testing.T) {
	router := newTestRouter(newFakeStore())

	rec := doRequest(t, router, http.MethodGet, "/events/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDeliveries(t *testing.T) {
	st := newFakeStore()
	code := 500
	st.attempts["att-1"] = &domain.DeliveryAttempt{
		ID:            "att-1",
		EventID:       "evt-1",
		AttemptNumber: 1,
		StatusCode:    &code,
	}
	router := newTestRouter(st)

	rec := doRequest(t, router, http.MethodGet, "/deliveries?event_id=evt-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"attempt_number":1`)

	rec = doRequest(t, router, http.MethodGet, "/deliveries/att-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/deliveries/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeadLetters(t *testing.T) {
	st := newFakeStore()
	st.events["evt-dead"] = &domain.Event{ID: "evt-dead", Status: domain.StatusDead, AttemptCount: 20}
	st.events["evt-live"] = &domain.Event{ID: "evt-live", Status: domain.StatusPending}
	router := newTestRouter(st)

	rec := doRequest(t, router, http.MethodGet, "/dead-letters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "evt-dead")
	assert.NotContains(t, rec.Body.String(), "evt-live")

	rec = doRequest(t, router, http.MethodGet, "/dead-letters/evt-dead", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// A live event is not a dead letter.
	rec = doRequest(t, router, http.MethodGet, "/dead-letters/evt-live", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(newFakeStore())

	rec := doRequest(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}
