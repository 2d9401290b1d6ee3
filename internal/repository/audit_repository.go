package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trainops/staffing-api/internal/models"
)

// AuditRepository appends audit trail rows.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends an audit entry.
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	const query = `INSERT INTO audit_log
        (actor_id, action, entity, entity_id, details, correlation_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())`
	if _, err := r.db.ExecContext(ctx, query,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID,
		entry.Details, entry.CorrelationID); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest audit entries up to the limit.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `SELECT id, actor_id, action, entity, entity_id, details, correlation_id, created_at
        FROM audit_log ORDER BY id DESC LIMIT $1`
	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
