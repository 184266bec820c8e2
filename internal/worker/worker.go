package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/Priya8975/webhook-dispatcher/internal/domain"
	"github.com/Priya8975/webhook-dispatcher/internal/sign"
	"github.com/benbjohnson/clock"
)

// Store is the slice of the persistence layer the worker drives. The
// implementation owns the claim locking and the per-event transaction
// discipline; the worker only decides each event's disposition.
type Store interface {
	DeliverDue(ctx context.Context, limit int, deliver domain.DeliverFunc) (int, error)
}

// Options configures a Worker's delivery policy.
type Options struct {
	Secret       string
	PollInterval time.Duration
	ClaimLimit   int
	MaxAttempts  int
	BackoffBase  time.Duration
	BackoffMax   time.Duration
}

// Worker drives events from pending to delivered or dead. Multiple workers
// may run concurrently against the same store; the claim locking keeps them
// from processing the same event.
type Worker struct {
	id        int
	store     Store
	deliverer Deliverer
	opts      Options
	logger    *slog.Logger

	// clock and jitter are swapped out in tests.
	clock  clock.Clock
	jitter func() float64
}

func New(id int, st Store, d Deliverer, opts Options, logger *slog.Logger) *Worker {
	return &Worker{
		id:        id,
		store:     st,
		deliverer: d,
		opts:      opts,
		logger:    logger,
		clock:     clock.New(),
		jitter:    rand.Float64,
	}
}

// Run polls for due events until the context is cancelled. Tick-level
// errors are logged and absorbed; the next tick starts fresh.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started",
		"worker", w.id,
		"poll_interval", w.opts.PollInterval,
		"claim_limit", w.opts.ClaimLimit,
	)

	ticker := w.clock.Ticker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping", "worker", w.id)
			return
		case <-ticker.C:
			if _, err := w.tick(ctx); err != nil {
				w.logger.Error("delivery tick failed", "worker", w.id, "error", err)
			}
		}
	}
}

// tick claims one batch and delivers it.
func (w *Worker) tick(ctx context.Context) (int, error) {
	return w.store.DeliverDue(ctx, w.opts.ClaimLimit, w.deliverOne)
}

// deliverOne sends one claimed event to its target and classifies the
// outcome. It signs the exact payload bytes it transmits, so the receiver
// verifies over the same byte sequence.
func (w *Worker) deliverOne(ctx context.Context, ev domain.ClaimedEvent) domain.Disposition {
	attemptNumber := ev.AttemptCount + 1

	signature := sign.Sign(w.opts.Secret, ev.Payload)
	outcome := w.deliverer.Deliver(ctx, ev.TargetURL, ev.Payload, signature)

	attempt := domain.AttemptRecord{
		EventID:       ev.ID,
		AttemptNumber: attemptNumber,
		StatusCode:    outcome.StatusCode,
		ResponseBody:  outcome.Body,
		Error:         outcome.Err,
	}

	if outcome.Success() {
		w.logger.Info("delivered",
			"worker", w.id,
			"event_id", ev.ID,
			"attempt", attemptNumber,
			"status_code", *outcome.StatusCode,
		)
		return domain.Disposition{Attempt: attempt, Delivered: true, AttemptCount: attemptNumber}
	}

	lastError := outcome.Err
	if lastError == "" {
		body := outcome.Body
		if body == "" {
			body = "no body"
		}
		lastError = fmt.Sprintf("HTTP %d: %s", *outcome.StatusCode, body)
	}

	nextRetryAt := w.nextRetry(attemptNumber)
	dead := attemptNumber >= w.opts.MaxAttempts

	if dead {
		w.logger.Error("event dead",
			"worker", w.id,
			"event_id", ev.ID,
			"attempts", attemptNumber,
			"error", lastError,
		)
	} else {
		w.logger.Warn("delivery failed",
			"worker", w.id,
			"event_id", ev.ID,
			"attempt", attemptNumber,
			"error", lastError,
			"next_retry_at", nextRetryAt,
		)
	}

	return domain.Disposition{
		Attempt:      attempt,
		AttemptCount: attemptNumber,
		NextRetryAt:  nextRetryAt,
		LastError:    lastError,
		Dead:         dead,
	}
}

// nextRetry computes now + min(base * 2^attemptCount + U[0,1), max) seconds.
// The jitter is additive: the base is at least a second in practice, and a
// sub-second spread is enough to desynchronize retrying workers.
func (w *Worker) nextRetry(attemptCount int) time.Time {
	delay := w.opts.BackoffBase.Seconds()*math.Pow(2, float64(attemptCount)) + w.jitter()
	if max := w.opts.BackoffMax.Seconds(); delay > max {
		delay = max
	}
	return w.clock.Now().Add(time.Duration(delay * float64(time.Second)))
}
