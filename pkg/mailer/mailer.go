package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/trainops/staffing-api/pkg/config"
)

// Message is a single outbound email.
type Message struct {
	ToEmail  string
	ToName   string
	Subject  string
	BodyHTML string
}

// Sender delivers a message through a provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Provider() string
}

// FromConfig selects a sender based on the configured provider.
func FromConfig(cfg config.MailConfig, logger *zap.Logger) Sender {
	switch cfg.Provider {
	case "sendgrid":
		return NewSendgridSender(cfg)
	default:
		return NewConsoleSender(logger)
	}
}

// ConsoleSender logs messages instead of delivering them. Used in development.
type ConsoleSender struct {
	logger *zap.Logger
}

func NewConsoleSender(logger *zap.Logger) *ConsoleSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSender{logger: logger}
}

func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	s.logger.Sugar().Infow("email (console)",
		"to", msg.ToEmail, "subject", msg.Subject, "bytes", len(msg.BodyHTML))
	return nil
}

func (s *ConsoleSender) Provider() string { return "console" }
