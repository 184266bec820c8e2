package store

import (
	"context"
	"fmt"

	"github.com/Priya8975/webhook-dispatcher/internal/domain"
	"github.com/jackc/pgx/v5"
)

// DeliverDue claims up to limit due events and drives each one through
// deliver, applying the resulting attempt row and event transition.
//
// The claim holds an exclusive row lock on each selected event and skips
// rows locked by other transactions, so concurrent callers never process
// the same event. Each event's attempt and transition are applied under a
// savepoint (pgx nested transaction): a failure rolls back that event only,
// returning it to pending at its existing next_retry_at, without poisoning
// the rest of the batch.
//
// Returns the number of events whose disposition was committed. A non-nil
// error alongside a partial count means some events in the batch failed.
func (s *PostgresStore) DeliverDue(ctx context.Context, limit int, deliver domain.DeliverFunc) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning claim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	events, err := claimPending(ctx, tx, limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	var firstErr error
	for _, ev := range events {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return processed, fmt.Errorf("beginning savepoint: %w", err)
		}

		d := deliver(ctx, ev)

		if err := applyDisposition(ctx, sp, ev.ID, d); err != nil {
			sp.Rollback(ctx)
			if firstErr == nil {
				firstErr = fmt.Errorf("event %s: %w", ev.ID, err)
			}
			continue
		}
		if err := sp.Commit(ctx); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("event %s: releasing savepoint: %w", ev.ID, err)
			}
			continue
		}
		processed++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing claim transaction: %w", err)
	}
	return processed, firstErr
}

// claimPending selects due pending events oldest-first, locking each row for
// the life of the enclosing transaction and skipping rows already locked.
func claimPending(ctx context.Context, tx pgx.Tx, limit int) ([]domain.ClaimedEvent, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, payload, target_url, attempt_count
		FROM webhook_events
		WHERE status = 'pending'
		  AND (next_retry_at IS NULL OR next_retry_at <= now())
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("claiming pending events: %w", err)
	}
	defer rows.Close()

	var events []domain.ClaimedEvent
	for rows.Next() {
		var ev domain.ClaimedEvent
		if err := rows.Scan(&ev.ID, &ev.Payload, &ev.TargetURL, &ev.AttemptCount); err != nil {
			return nil, fmt.Errorf("scanning claimed event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading claimed events: %w", err)
	}

	return events, nil
}

// applyDisposition appends the attempt row and applies the event transition
// in the same transaction, so the audit log and event state cannot diverge.
func applyDisposition(ctx context.Context, tx pgx.Tx, eventID string, d domain.Disposition) error {
	if err := recordAttempt(ctx, tx, d.Attempt); err != nil {
		return err
	}
	if d.Delivered {
		return markDelivered(ctx, tx, eventID, d.AttemptCount)
	}
	return markFailed(ctx, tx, eventID, d)
}

func recordAttempt(ctx context.Context, tx pgx.Tx, rec domain.AttemptRecord) error {
	var respBody *string
	if rec.ResponseBody != "" {
		respBody = &rec.ResponseBody
	}

	var errMsg *string
	if rec.Error != "" {
		errMsg = &rec.Error
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO delivery_attempts (event_id, attempt_number, status_code, response_body, error)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.EventID, rec.AttemptNumber, rec.StatusCode, respBody, errMsg)
	if err != nil {
		return fmt.Errorf("inserting delivery attempt: %w", err)
	}
	return nil
}

func markDelivered(ctx context.Context, tx pgx.Tx, eventID string, attemptCount int) error {
	_, err := tx.Exec(ctx, `
		UPDATE webhook_events
		SET status = 'delivered', attempt_count = $2, last_error = NULL, updated_at = now()
		WHERE id = $1
	`, eventID, attemptCount)
	if err != nil {
		return fmt.Errorf("marking event delivered: %w", err)
	}
	return nil
}

func markFailed(ctx context.Context, tx pgx.Tx, eventID string, d domain.Disposition) error {
	status := domain.StatusPending
	if d.Dead {
		status = domain.StatusDead
	}

	_, err := tx.Exec(ctx, `
		UPDATE webhook_events
		SET status = $2, attempt_count = $3, next_retry_at = $4, last_error = $5, updated_at = now()
		WHERE id = $1
	`, eventID, status, d.AttemptCount, d.NextRetryAt, d.LastError)
	if err != nil {
		return fmt.Errorf("marking event failed: %w", err)
	}
	return nil
}
