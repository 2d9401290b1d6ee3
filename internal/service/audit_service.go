package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trainops/staffing-api/internal/models"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type auditStore interface {
	Insert(ctx context.Context, entry *models.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// AuditService records administrative actions. Writes are best effort: an
// audit failure is logged but never fails the action it describes.
type AuditService struct {
	store  auditStore
	logger *zap.Logger
}

// NewAuditService creates a service instance.
func NewAuditService(store auditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: store, logger: logger}
}

// Record appends one audit entry. Details are marshalled to JSON when
// present.
func (s *AuditService) Record(ctx context.Context, actorID *int64, action, entity, entityID string, details interface{}) {
	entry := &models.AuditEntry{
		ActorID:       actorID,
		Action:        action,
		Entity:        entity,
		EntityID:      entityID,
		CorrelationID: uuid.NewString(),
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			s.logger.Sugar().Warnw("audit details not serializable", "action", action, "error", err)
		} else {
			entry.Details = raw
		}
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		s.logger.Sugar().Errorw("audit write failed",
			"action", action, "entity", entity, "entity_id", entityID, "error", err)
	}
}

// ListRecent returns the newest audit entries, newest first.
func (s *AuditService) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	entries, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries")
	}
	return entries, nil
}
