package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainops/staffing-api/internal/models"
	"github.com/trainops/staffing-api/pkg/config"
	"github.com/trainops/staffing-api/pkg/jobs"
	"github.com/trainops/staffing-api/pkg/mailer"
)

type stubOutboxStore struct {
	emails map[int64]*models.EmailOutbox
	sent   []int64
	failed []int64
	logs   []*models.EmailSendLog
}

func (s *stubOutboxStore) Enqueue(_ context.Context, email *models.EmailOutbox) (int64, error) {
	if s.emails == nil {
		s.emails = make(map[int64]*models.EmailOutbox)
	}
	id := int64(len(s.emails) + 1)
	email.ID = id
	s.emails[id] = email
	return id, nil
}

func (s *stubOutboxStore) FindByID(_ context.Context, id int64) (*models.EmailOutbox, error) {
	email, ok := s.emails[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return email, nil
}

func (s *stubOutboxStore) ListQueued(_ context.Context, _ int) ([]models.EmailOutbox, error) {
	return nil, nil
}

func (s *stubOutboxStore) MarkSent(_ context.Context, id int64) error {
	s.sent = append(s.sent, id)
	s.emails[id].Status = models.EmailStatusSent
	return nil
}

func (s *stubOutboxStore) MarkFailed(_ context.Context, id int64, reason string) error {
	s.failed = append(s.failed, id)
	s.emails[id].Status = models.EmailStatusFailed
	s.emails[id].FailReason = &reason
	return nil
}

func (s *stubOutboxStore) InsertSendLog(_ context.Context, log *models.EmailSendLog) (int64, error) {
	s.logs = append(s.logs, log)
	return int64(len(s.logs)), nil
}

type stubSender struct {
	err  error
	sent []mailer.Message
}

func (s *stubSender) Send(_ context.Context, msg mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *stubSender) Provider() string { return "stub" }

func queuedEmail(store *stubOutboxStore) int64 {
	id, _ := store.Enqueue(context.Background(), &models.EmailOutbox{
		ToEmail:  "dana@example.org",
		Subject:  "Availability reminder",
		BodyHTML: "<p>hello</p>",
		Status:   models.EmailStatusQueued,
	})
	return id
}

func TestDispatchMarksSentAndLogs(t *testing.T) {
	store := &stubOutboxStore{}
	sender := &stubSender{}
	svc := NewOutboxService(store, sender, nil, config.MailConfig{}, nil)
	id := queuedEmail(store)

	err := svc.dispatch(context.Background(), jobs.Job{ID: "j1", Type: "email", Payload: id})

	require.NoError(t, err)
	assert.Equal(t, []int64{id}, store.sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "dana@example.org", sender.sent[0].ToEmail)
	require.Len(t, store.logs, 1)
	assert.Equal(t, models.EmailStatusSent, store.logs[0].Status)
	assert.Equal(t, 1, store.logs[0].AttemptNo)
}

func TestDispatchMarksFailedAndRetries(t *testing.T) {
	store := &stubOutboxStore{}
	sender := &stubSender{err: errors.New("smtp timeout")}
	svc := NewOutboxService(store, sender, nil, config.MailConfig{}, nil)
	id := queuedEmail(store)

	err := svc.dispatch(context.Background(), jobs.Job{ID: "j1", Type: "email", Payload: id})

	require.Error(t, err)
	assert.Equal(t, []int64{id}, store.failed)
	require.Len(t, store.logs, 1)
	assert.Equal(t, models.EmailStatusFailed, store.logs[0].Status)
	require.NotNil(t, store.logs[0].FailReason)
	assert.Contains(t, *store.logs[0].FailReason, "smtp timeout")
}

func TestDispatchSkipsAlreadySent(t *testing.T) {
	store := &stubOutboxStore{}
	sender := &stubSender{}
	svc := NewOutboxService(store, sender, nil, config.MailConfig{}, nil)
	id := queuedEmail(store)
	store.emails[id].Status = models.EmailStatusSent

	err := svc.dispatch(context.Background(), jobs.Job{ID: "j1", Type: "email", Payload: id})

	require.NoError(t, err)
	assert.Empty(t, sender.sent)
	assert.Empty(t, store.logs)
}

func TestDispatchMissingEmailIsDropped(t *testing.T) {
	store := &stubOutboxStore{emails: map[int64]*models.EmailOutbox{}}
	svc := NewOutboxService(store, &stubSender{}, nil, config.MailConfig{}, nil)

	err := svc.dispatch(context.Background(), jobs.Job{ID: "j1", Type: "email", Payload: int64(99)})

	require.NoError(t, err)
}
