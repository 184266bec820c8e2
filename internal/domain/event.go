package domain

import (
	"encoding/json"
	"time"
)

// Event statuses. Delivered and dead are terminal.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusDead      = "dead"
)

type Event struct {
	ID           string          `json:"id"`
	Payload      json.RawMessage `json:"payload"`
	TargetURL    string          `json:"target_url"`
	Status       string          `json:"status"`
	AttemptCount int             `json:"attempt_count"`
	NextRetryAt  *time.Time      `json:"next_retry_at,omitempty"`
	LastError    *string         `json:"last_error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ClaimedEvent is the slice of an event a worker needs to deliver it. The
// payload bytes are read at claim time; the worker signs and transmits
// exactly these bytes.
type ClaimedEvent struct {
	ID           string
	Payload      []byte
	TargetURL    string
	AttemptCount int
}
