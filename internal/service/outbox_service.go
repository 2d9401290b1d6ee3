package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trainops/staffing-api/internal/models"
	"github.com/trainops/staffing-api/pkg/config"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
	"github.com/trainops/staffing-api/pkg/jobs"
	"github.com/trainops/staffing-api/pkg/mailer"
)

type outboxStore interface {
	Enqueue(ctx context.Context, email *models.EmailOutbox) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.EmailOutbox, error)
	ListQueued(ctx context.Context, limit int) ([]models.EmailOutbox, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	InsertSendLog(ctx context.Context, log *models.EmailSendLog) (int64, error)
}

// OutboxService persists outbound emails and dispatches them through a
// worker pool. An email is durable once queued: dispatch failures are
// recorded and retried, never lost.
type OutboxService struct {
	store   outboxStore
	sender  mailer.Sender
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewOutboxService creates the service and its dispatch queue. Call Start
// before queueing.
func NewOutboxService(store outboxStore, sender mailer.Sender, metrics *MetricsService, cfg config.MailConfig, logger *zap.Logger) *OutboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &OutboxService{
		store:   store,
		sender:  sender,
		metrics: metrics,
		logger:  logger,
	}
	s.queue = jobs.New("email-outbox", s.dispatch, jobs.Config{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the dispatch workers and requeues emails left in the queued
// state by an earlier shutdown.
func (s *OutboxService) Start(ctx context.Context) {
	s.queue.Start(ctx)

	queued, err := s.store.ListQueued(ctx, 500)
	if err != nil {
		s.logger.Sugar().Warnw("outbox recovery scan failed", "error", err)
		return
	}
	for _, email := range queued {
		s.enqueueJob(email.ID)
	}
	if len(queued) > 0 {
		s.logger.Sugar().Infow("outbox recovery requeued emails", "count", len(queued))
	}
}

// Stop drains the dispatch workers.
func (s *OutboxService) Stop() {
	s.queue.Stop()
}

// Queue persists the email and schedules its delivery. Returns the outbox id.
func (s *OutboxService) Queue(ctx context.Context, payload models.EmailPayload) (int64, error) {
	row := &models.EmailOutbox{
		ToEmail:  payload.ToEmail,
		Subject:  payload.Subject,
		BodyHTML: payload.BodyHTML,
		Status:   models.EmailStatusQueued,
	}
	if payload.RelatedEntity != "" {
		row.RelatedEntity = &payload.RelatedEntity
		row.RelatedID = &payload.RelatedID
	}

	id, err := s.store.Enqueue(ctx, row)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue email")
	}
	s.enqueueJob(id)
	return id, nil
}

func (s *OutboxService) enqueueJob(emailID int64) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "email",
		Payload: emailID,
	})
	if err != nil {
		// The row stays queued; the next recovery scan picks it up.
		s.logger.Sugar().Warnw("email dispatch enqueue failed", "email_id", emailID, "error", err)
	}
}

// dispatch delivers one outbox row. Runs inside the worker pool.
func (s *OutboxService) dispatch(ctx context.Context, job jobs.Job) error {
	emailID, ok := job.Payload.(int64)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	email, err := s.store.FindByID(ctx, emailID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load email %d: %w", emailID, err)
	}
	if email.Status == models.EmailStatusSent {
		return nil
	}

	sendErr := s.sender.Send(ctx, mailer.Message{
		ToEmail:  email.ToEmail,
		Subject:  email.Subject,
		BodyHTML: email.BodyHTML,
	})
	s.logAttempt(ctx, email, job.Attempt+1, sendErr)

	if sendErr != nil {
		s.metrics.IncEmailFailed()
		if err := s.store.MarkFailed(ctx, email.ID, sendErr.Error()); err != nil {
			s.logger.Sugar().Errorw("failed to mark email failed", "email_id", email.ID, "error", err)
		}
		return fmt.Errorf("send email %d: %w", email.ID, sendErr)
	}

	s.metrics.IncEmailSent()
	if err := s.store.MarkSent(ctx, email.ID); err != nil {
		s.logger.Sugar().Errorw("failed to mark email sent", "email_id", email.ID, "error", err)
	}
	s.logger.Sugar().Infow("email sent", "email_id", email.ID, "to", email.ToEmail, "provider", s.sender.Provider())
	return nil
}

func (s *OutboxService) logAttempt(ctx context.Context, email *models.EmailOutbox, attempt int, sendErr error) {
	entry := &models.EmailSendLog{
		EmailID:       &email.ID,
		ToEmail:       email.ToEmail,
		Subject:       email.Subject,
		AttemptNo:     attempt,
		Provider:      s.sender.Provider(),
		Status:        models.EmailStatusSent,
		CorrelationID: uuid.NewString(),
	}
	if sendErr != nil {
		entry.Status = models.EmailStatusFailed
		reason := sendErr.Error()
		entry.FailReason = &reason
	}
	if _, err := s.store.InsertSendLog(ctx, entry); err != nil {
		s.logger.Sugar().Warnw("failed to record send log", "email_id", email.ID, "error", err)
	}
}
