package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/vaidashi/storefront-api/internal/database"
	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

const outboxColumns = `id, aggregate_type, aggregate_id, event_type, payload,
	created_at, processed_at, processing_attempts, last_error, status`

// OutboxRepository handles database operations for outbox messages
type OutboxRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *database.Database, logger logger.Logger) *OutboxRepository {
	return &OutboxRepository{
		db:     db,
		logger: logger,
	}
}

// insertOutboxMessage writes message inside tx so it commits together with
// the order change it describes
func insertOutboxMessage(ctx context.Context, tx *sqlx.Tx, message *models.OutboxMessage) error {
	query := `
		INSERT INTO outbox_messages (
			aggregate_type, aggregate_id, event_type, payload,
			created_at, status
		) VALUES (
			$1, $2, $3, $4, $5, $6
		) RETURNING id
	`

	err := tx.QueryRowxContext(
		ctx,
		query,
		message.AggregateType,
		message.AggregateID,
		message.EventType,
		message.Payload,
		message.CreatedAt,
		message.Status,
	).Scan(&message.ID)

	if err != nil {
		return fmt.Errorf("%w: failed to create outbox message: %v", ErrDatabase, err)
	}

	return nil
}

// GetPendingMessages retrieves pending outbox messages, oldest first
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`

	var messages []*models.OutboxMessage

	err := r.db.DB.SelectContext(ctx, &messages, query, models.OutboxStatusPending, limit)

	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return messages, nil
}

// MarkAsProcessing claims a pending message and bumps its attempt counter.
// It returns false when another relay already claimed it.
func (r *OutboxRepository) MarkAsProcessing(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE outbox_messages
		SET status = $1, processing_attempts = processing_attempts + 1
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.DB.ExecContext(ctx, query, models.OutboxStatusProcessing, id, models.OutboxStatusPending)

	if err != nil {
		r.logger.Error("Failed to mark outbox message as processing", "error", err, "messageID", id)
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return rowsAffected == 1, nil
}

// MarkAsCompleted updates the status of an outbox message to completed
func (r *OutboxRepository) MarkAsCompleted(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_messages
		SET status = $1, processed_at = $2
		WHERE id = $3
	`

	_, err := r.db.DB.ExecContext(ctx, query, models.OutboxStatusCompleted, models.GetCurrentTime(), id)

	if err != nil {
		r.logger.Error("Failed to mark outbox message as completed", "error", err, "messageID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// MarkAsFailed parks a message that exhausted its attempts
func (r *OutboxRepository) MarkAsFailed(ctx context.Context, id int64, errorMessage string) error {
	return r.setStatusWithError(ctx, id, models.OutboxStatusFailed, errorMessage)
}

// MarkForRetry returns a message to pending so the next poll picks it up again
func (r *OutboxRepository) MarkForRetry(ctx context.Context, id int64, errorMessage string) error {
	return r.setStatusWithError(ctx, id, models.OutboxStatusPending, errorMessage)
}

func (r *OutboxRepository) setStatusWithError(ctx context.Context, id int64, status models.OutboxStatus, errorMessage string) error {
	query := `
		UPDATE outbox_messages
		SET status = $1, last_error = $2
		WHERE id = $3
	`

	_, err := r.db.DB.ExecContext(ctx, query, status, errorMessage, id)

	if err != nil {
		r.logger.Error("Failed to update outbox message", "error", err, "messageID", id, "status", status)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// RequeueStale returns messages stuck in processing (for example after a
// crash mid-dispatch) to pending. It is called once when the relay starts.
func (r *OutboxRepository) RequeueStale(ctx context.Context) (int64, error) {
	query := `UPDATE outbox_messages SET status = $1 WHERE status = $2`

	result, err := r.db.DB.ExecContext(ctx, query, models.OutboxStatusPending, models.OutboxStatusProcessing)

	if err != nil {
		r.logger.Error("Failed to requeue stale outbox messages", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return result.RowsAffected()
}
