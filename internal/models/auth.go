package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OTPCode is a persisted one-time login code. The code itself is stored only
// as a bcrypt hash.
type OTPCode struct {
	ID          int64      `db:"id" json:"id"`
	Email       string     `db:"email" json:"email"`
	CodeHash    string     `db:"code_hash" json:"-"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	Attempts    int        `db:"attempts" json:"attempts"`
	MaxAttempts int        `db:"max_attempts" json:"max_attempts"`
	Used        bool       `db:"used" json:"used"`
	UsedAt      *time.Time `db:"used_at" json:"used_at,omitempty"`
	RequestIP   *string    `db:"request_ip" json:"-"`
	UserAgent   *string    `db:"user_agent" json:"-"`
}

// JWTClaims are the session claims issued after OTP verification.
type JWTClaims struct {
	InstructorID int64          `json:"instructor_id"`
	Email        string         `json:"email"`
	FullName     string         `json:"full_name"`
	Role         InstructorRole `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the session belongs to an admin.
func (c *JWTClaims) IsAdmin() bool { return c.Role == RoleAdmin }
