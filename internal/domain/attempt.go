package domain

import (
	"context"
	"time"
)

// DeliveryAttempt is one row of the append-only attempt audit log.
type DeliveryAttempt struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	AttemptNumber int       `json:"attempt_number"`
	StatusCode    *int      `json:"status_code,omitempty"`
	ResponseBody  *string   `json:"response_body,omitempty"`
	Error         *string   `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// AttemptRecord holds data for inserting a delivery attempt. StatusCode is
// nil when no response was received; ResponseBody and Error are stored as
// NULL when empty.
type AttemptRecord struct {
	EventID       string
	AttemptNumber int
	StatusCode    *int
	ResponseBody  string
	Error         string
}

// Disposition is the outcome of one delivery attempt: the attempt row to
// append plus the event transition to apply in the same transaction.
// AttemptCount is the event's new total (it always matches the number of
// attempt rows); the remaining failure fields are meaningful only when
// Delivered is false.
type Disposition struct {
	Attempt   AttemptRecord
	Delivered bool

	AttemptCount int
	NextRetryAt  time.Time
	LastError    string
	Dead         bool
}

// DeliverFunc produces the disposition for one claimed event. It is invoked
// while the event's row lock is held.
type DeliverFunc func(ctx context.Context, ev ClaimedEvent) Disposition
