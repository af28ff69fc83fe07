package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

const outboxColumns = `
	id, event_type, payload, status, error_message, created_at,
	processed_at, updated_at, retry_count, retry_at, locked_until`

// Create inserts event. Called with a transactional ctx it commits or rolls
// back together with the state change that produced it.
func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, retry_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, 0, $5, $6
		)
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Status = model.OutboxStatusPending

	_, err := r.conn(ctx).ExecContext(ctx, query,
		event.ID,
		event.EventType,
		[]byte(event.Payload),
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	query := `
		UPDATE outbox_events
		SET status = 'processing',
			locked_until = NOW() + make_interval(secs => $2),
			updated_at = NOW()
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE (status IN ('pending', 'retry') AND (retry_at IS NULL OR retry_at <= NOW()))
			OR (status = 'processing' AND locked_until < NOW())
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + outboxColumns

	events := []*model.OutboxEvent{}
	if err := r.conn(ctx).SelectContext(ctx, &events, query, limit, lease.Seconds()); err != nil {
		return nil, fmt.Errorf("failed to claim pending events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET status = 'processed',
			error_message = NULL,
			locked_until = NULL,
			processed_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.conn(ctx).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error {
	query := `
		UPDATE outbox_events
		SET status = 'retry',
			error_message = $2,
			retry_at = $3,
			retry_count = retry_count + 1,
			locked_until = NULL,
			updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.conn(ctx).ExecContext(ctx, query, id, errorMessage, retryAt); err != nil {
		return fmt.Errorf("failed to schedule event retry: %w", err)
	}
	return nil
}

func (r *outboxRepository) MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent, errorMessage string) error {
	return r.WithinTx(ctx, func(ctx context.Context) error {
		insert := `
			INSERT INTO outbox_events_deadletter (
				event_id, event_type, payload, error_message,
				retry_count, last_retry_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		`
		if _, err := r.conn(ctx).ExecContext(ctx, insert,
			event.ID, event.EventType, []byte(event.Payload), errorMessage,
			event.RetryCount, event.RetryAt,
		); err != nil {
			return fmt.Errorf("failed to insert dead letter: %w", err)
		}

		update := `
			UPDATE outbox_events
			SET status = 'dead', error_message = $2, locked_until = NULL, updated_at = NOW()
			WHERE id = $1
		`
		if _, err := r.conn(ctx).ExecContext(ctx, update, event.ID, errorMessage); err != nil {
			return fmt.Errorf("failed to mark event dead: %w", err)
		}
		return nil
	})
}

func (r *outboxRepository) CountPending(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM outbox_events WHERE status IN ('pending', 'retry', 'processing')`

	var count int64
	if err := r.conn(ctx).GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count pending events: %w", err)
	}
	return count, nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = 'processed'
		AND processed_at < $1
	`
	result, err := r.conn(ctx).ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
