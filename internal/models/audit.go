package models

import "time"

// Audit actions recorded by the service.
const (
	AuditActionApprove      = "APPROVE_ASSIGNMENTS"
	AuditActionSoftDelete   = "SOFT_DELETE"
	AuditActionHardDelete   = "HARD_DELETE"
	AuditActionLogin        = "LOGIN"
	AuditActionSendReminder = "SEND_REMINDER"
)

// Audited entity names.
const (
	AuditEntityActivity = "Activity"
	AuditEntityInstance = "ActivityInstance"
	AuditEntityAuth     = "Auth"
)

// AuditEntry is an append-only record of an administrative action.
type AuditEntry struct {
	ID            int64     `db:"id" json:"id"`
	ActorID       *int64    `db:"actor_id" json:"actor_id,omitempty"`
	Action        string    `db:"action" json:"action"`
	Entity        string    `db:"entity" json:"entity"`
	EntityID      string    `db:"entity_id" json:"entity_id"`
	Details       []byte    `db:"details" json:"details,omitempty"`
	CorrelationID string    `db:"correlation_id" json:"correlation_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
