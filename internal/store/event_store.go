package store

import (
	"context"
	"fmt"

	"github.com/Priya8975/webhook-dispatcher/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const eventColumns = "id, payload, target_url, status, attempt_count, next_retry_at, last_error, created_at, updated_at"

// InsertEvent creates a pending event due immediately; the next worker tick
// can claim it.
func (s *PostgresStore) InsertEvent(ctx context.Context, payload []byte, targetURL string) (*domain.Event, error) {
	id := uuid.New().String()

	var event domain.Event
	err := s.pool.QueryRow(ctx, `
		INSERT INTO webhook_events (id, payload, target_url, status, attempt_count, next_retry_at)
		VALUES ($1, $2, $3, 'pending', 0, now())
		RETURNING `+eventColumns+`
	`, id, payload, targetURL).Scan(
		&event.ID, &event.Payload, &event.TargetURL, &event.Status,
		&event.AttemptCount, &event.NextRetryAt, &event.LastError,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting event: %w", err)
	}
	return &event, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	var event domain.Event
	err := s.pool.QueryRow(ctx, `
		SELECT `+eventColumns+` FROM webhook_events WHERE id = $1
	`, id).Scan(
		&event.ID, &event.Payload, &event.TargetURL, &event.Status,
		&event.AttemptCount, &event.NextRetryAt, &event.LastError,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return &event, nil
}

// ListEvents returns recent events, optionally filtered by status.
func (s *PostgresStore) ListEvents(ctx context.Context, status string, limit int) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM webhook_events`
	args := []interface{}{}
	argIdx := 1

	if status != "" {
		query += fmt.Sprintf(" WHERE status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		err := rows.Scan(
			&e.ID, &e.Payload, &e.TargetURL, &e.Status,
			&e.AttemptCount, &e.NextRetryAt, &e.LastError,
			&e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}

	if events == nil {
		events = []domain.Event{}
	}

	return events, nil
}
