package models

import "time"

// Email outbox statuses.
const (
	EmailStatusQueued = "Queued"
	EmailStatusSent   = "Sent"
	EmailStatusFailed = "Failed"
)

// EmailOutbox is a queued outbound email awaiting dispatch.
type EmailOutbox struct {
	ID            int64      `db:"id" json:"id"`
	ToEmail       string     `db:"to_email" json:"to_email"`
	Subject       string     `db:"subject" json:"subject"`
	BodyHTML      string     `db:"body_html" json:"-"`
	RelatedEntity *string    `db:"related_entity" json:"related_entity,omitempty"`
	RelatedID     *string    `db:"related_id" json:"related_id,omitempty"`
	Status        string     `db:"status" json:"status"`
	FailReason    *string    `db:"fail_reason" json:"fail_reason,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	SentAt        *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}

// EmailSendLog is the per-attempt delivery history of an outbox row.
type EmailSendLog struct {
	ID            int64     `db:"id" json:"id"`
	EmailID       *int64    `db:"email_id" json:"email_id,omitempty"`
	ToEmail       string    `db:"to_email" json:"to_email"`
	Subject       string    `db:"subject" json:"subject"`
	AttemptNo     int       `db:"attempt_no" json:"attempt_no"`
	Provider      string    `db:"provider" json:"provider"`
	Status        string    `db:"status" json:"status"`
	FailReason    *string   `db:"fail_reason" json:"fail_reason,omitempty"`
	CorrelationID string    `db:"correlation_id" json:"correlation_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// EmailPayload is a rendered, not-yet-queued reminder email.
type EmailPayload struct {
	ToEmail       string `json:"to_email"`
	ToName        string `json:"to_name"`
	Subject       string `json:"subject"`
	BodyHTML      string `json:"-"`
	RelatedEntity string `json:"related_entity"`
	RelatedID     string `json:"related_id"`
}
