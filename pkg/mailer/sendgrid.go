package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trainops/staffing-api/pkg/config"
)

// SendgridSender delivers messages through the SendGrid v3 mail API.
type SendgridSender struct {
	key  string
	from *sgmail.Email
}

func NewSendgridSender(cfg config.MailConfig) *SendgridSender {
	return &SendgridSender{
		key:  cfg.SendgridKey,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)

	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))
	m.AddPersonalizations(p)

	m.AddContent(sgmail.NewContent("text/html", msg.BodyHTML))

	req := sendgrid.GetRequest(s.key, "/v3/mail/send", "https://api.sendgrid.com")
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (s *SendgridSender) Provider() string { return "sendgrid" }
