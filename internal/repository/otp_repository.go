package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trainops/staffing-api/internal/models"
)

// OTPRepository handles persistence of one-time login codes.
type OTPRepository struct {
	db *sqlx.DB
}

// NewOTPRepository constructs the repository.
func NewOTPRepository(db *sqlx.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create inserts an OTP record and returns its id.
func (r *OTPRepository) Create(ctx context.Context, otp *models.OTPCode) (int64, error) {
	const query = `INSERT INTO otp_codes
        (email, code_hash, created_at, expires_at, attempts, max_attempts, used, request_ip, user_agent)
        VALUES ($1, $2, NOW(), $3, 0, $4, FALSE, $5, $6) RETURNING id`
	var id int64
	if err := r.db.GetContext(ctx, &id, query,
		otp.Email, otp.CodeHash, otp.ExpiresAt, otp.MaxAttempts,
		otp.RequestIP, otp.UserAgent); err != nil {
		return 0, fmt.Errorf("create otp: %w", err)
	}
	return id, nil
}

// LatestByEmail returns the most recent OTP record for the email.
func (r *OTPRepository) LatestByEmail(ctx context.Context, email string) (*models.OTPCode, error) {
	const query = `SELECT id, email, code_hash, created_at, expires_at,
        attempts, max_attempts, used, used_at, request_ip, user_agent
        FROM otp_codes WHERE email = $1 ORDER BY id DESC LIMIT 1`
	var otp models.OTPCode
	if err := r.db.GetContext(ctx, &otp, query, email); err != nil {
		return nil, err
	}
	return &otp, nil
}

// IncrementAttempts bumps the verification attempt counter.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, id int64) error {
	const query = `UPDATE otp_codes SET attempts = attempts + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment otp attempts: %w", err)
	}
	return nil
}

// MarkUsed consumes the code so it cannot be replayed.
func (r *OTPRepository) MarkUsed(ctx context.Context, id int64) error {
	const query = `UPDATE otp_codes SET used = TRUE, used_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark otp used: %w", err)
	}
	return nil
}
