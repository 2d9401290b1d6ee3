package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trainops/staffing-api/internal/models"
)

// EmailRepository handles the outbox and its send log.
type EmailRepository struct {
	db *sqlx.DB
}

// NewEmailRepository constructs the repository.
func NewEmailRepository(db *sqlx.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

// Enqueue inserts a Queued outbox row and returns its id.
func (r *EmailRepository) Enqueue(ctx context.Context, email *models.EmailOutbox) (int64, error) {
	const query = `INSERT INTO email_outbox
        (to_email, subject, body_html, related_entity, related_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id`
	var id int64
	if err := r.db.GetContext(ctx, &id, query,
		email.ToEmail, email.Subject, email.BodyHTML,
		email.RelatedEntity, email.RelatedID, models.EmailStatusQueued); err != nil {
		return 0, fmt.Errorf("enqueue email: %w", err)
	}
	return id, nil
}

// FindByID returns an outbox row.
func (r *EmailRepository) FindByID(ctx context.Context, id int64) (*models.EmailOutbox, error) {
	const query = `SELECT id, to_email, subject, body_html, related_entity, related_id,
        status, fail_reason, created_at, sent_at
        FROM email_outbox WHERE id = $1`
	var email models.EmailOutbox
	if err := r.db.GetContext(ctx, &email, query, id); err != nil {
		return nil, err
	}
	return &email, nil
}

// ListQueued returns Queued rows oldest first, up to the limit. Used to
// re-drive the dispatcher after a restart.
func (r *EmailRepository) ListQueued(ctx context.Context, limit int) ([]models.EmailOutbox, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id, to_email, subject, body_html, related_entity, related_id,
        status, fail_reason, created_at, sent_at
        FROM email_outbox WHERE status = $1 ORDER BY id LIMIT $2`
	var emails []models.EmailOutbox
	if err := r.db.SelectContext(ctx, &emails, query, models.EmailStatusQueued, limit); err != nil {
		return nil, fmt.Errorf("list queued emails: %w", err)
	}
	return emails, nil
}

// MarkSent flags an outbox row delivered.
func (r *EmailRepository) MarkSent(ctx context.Context, id int64) error {
	const query = `UPDATE email_outbox
        SET status = $2, sent_at = NOW(), fail_reason = NULL
        WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.EmailStatusSent)
	if err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkFailed flags an outbox row failed with a reason.
func (r *EmailRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	const query = `UPDATE email_outbox SET status = $2, fail_reason = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.EmailStatusFailed, reason)
	if err != nil {
		return fmt.Errorf("mark email failed: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InsertSendLog appends a delivery attempt record and returns its id.
func (r *EmailRepository) InsertSendLog(ctx context.Context, log *models.EmailSendLog) (int64, error) {
	const query = `INSERT INTO email_send_log
        (email_id, to_email, subject, attempt_no, provider, status, fail_reason, correlation_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING id`
	var id int64
	if err := r.db.GetContext(ctx, &id, query,
		log.EmailID, log.ToEmail, log.Subject, log.AttemptNo,
		log.Provider, log.Status, log.FailReason, log.CorrelationID); err != nil {
		return 0, fmt.Errorf("insert send log: %w", err)
	}
	return id, nil
}
