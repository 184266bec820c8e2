package store

import (
	"context"
	"fmt"

	"github.com/Priya8975/webhook-dispatcher/internal/domain"
	"github.com/jackc/pgx/v5"
)

const attemptColumns = "id, event_id, attempt_number, status_code, response_body, error, created_at"

// ListAttempts returns delivery attempts, optionally filtered by event.
// Attempts for a single event come back in attempt order; unfiltered
// listings are newest-first.
func (s *PostgresStore) ListAttempts(ctx context.Context, eventID string, limit int) ([]domain.DeliveryAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM delivery_attempts`
	args := []interface{}{}
	argIdx := 1

	if eventID != "" {
		query += fmt.Sprintf(" WHERE event_id = $%d ORDER BY attempt_number", argIdx)
		args = append(args, eventID)
		argIdx++
	} else {
		query += " ORDER BY created_at DESC"
	}

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying delivery attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.DeliveryAttempt
	for rows.Next() {
		var a domain.DeliveryAttempt
		err := rows.Scan(
			&a.ID, &a.EventID, &a.AttemptNumber,
			&a.StatusCode, &a.ResponseBody, &a.Error, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning delivery attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	if attempts == nil {
		attempts = []domain.DeliveryAttempt{}
	}

	return attempts, nil
}

// GetAttempt returns a single delivery attempt by ID.
func (s *PostgresStore) GetAttempt(ctx context.Context, id string) (*domain.DeliveryAttempt, error) {
	var a domain.DeliveryAttempt
	err := s.pool.QueryRow(ctx, `
		SELECT `+attemptColumns+` FROM delivery_attempts WHERE id = $1
	`, id).Scan(
		&a.ID, &a.EventID, &a.AttemptNumber,
		&a.StatusCode, &a.ResponseBody, &a.Error, &a.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying delivery attempt: %w", err)
	}
	return &a, nil
}
