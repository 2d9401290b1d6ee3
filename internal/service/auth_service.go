package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/trainops/staffing-api/internal/models"
	"github.com/trainops/staffing-api/pkg/config"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type otpStore interface {
	Create(ctx context.Context, otp *models.OTPCode) (int64, error)
	LatestByEmail(ctx context.Context, email string) (*models.OTPCode, error)
	IncrementAttempts(ctx context.Context, id int64) error
	MarkUsed(ctx context.Context, id int64) error
}

type instructorByEmailFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Instructor, error)
}

// RequestOTPRequest asks for a login code.
type RequestOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest exchanges a code for a session token.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// LoginResponse is the issued session.
type LoginResponse struct {
	Token      string             `json:"token"`
	ExpiresAt  time.Time          `json:"expires_at"`
	Instructor *models.Instructor `json:"instructor"`
}

// AuthService implements passwordless login: a one-time code is emailed to a
// registered instructor and exchanged for a JWT session.
type AuthService struct {
	instructors instructorByEmailFinder
	otps        otpStore
	outbox      emailQueuer
	audit       auditRecorder
	jwtCfg      config.JWTConfig
	otpCfg      config.OTPConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAuthService creates a service instance.
func NewAuthService(
	instructors instructorByEmailFinder,
	otps otpStore,
	outbox emailQueuer,
	audit auditRecorder,
	jwtCfg config.JWTConfig,
	otpCfg config.OTPConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		instructors: instructors,
		otps:        otps,
		outbox:      outbox,
		audit:       audit,
		jwtCfg:      jwtCfg,
		otpCfg:      otpCfg,
		validator:   validate,
		logger:      logger,
	}
}

// RequestOTP emails a login code to the address if it belongs to an active
// instructor. The response is identical for unknown addresses so account
// existence is not leaked.
func (s *AuthService) RequestOTP(ctx context.Context, req RequestOTPRequest, requestIP, userAgent string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid email")
	}
	email := normalizeEmail(req.Email)

	instructor, err := s.instructors.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Sugar().Infow("otp requested for unknown email", "email", email)
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up instructor")
	}
	if instructor.Status != models.InstructorStatusActive {
		s.logger.Sugar().Infow("otp requested for inactive instructor", "instructor_id", instructor.ID)
		return nil
	}

	code, err := generateOTPCode(s.otpCfg.CodeLength)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash code")
	}

	otp := &models.OTPCode{
		Email:       email,
		CodeHash:    string(hash),
		ExpiresAt:   time.Now().UTC().Add(s.otpCfg.TTL),
		MaxAttempts: s.otpCfg.MaxAttempts,
	}
	if requestIP != "" {
		otp.RequestIP = &requestIP
	}
	if userAgent != "" {
		otp.UserAgent = &userAgent
	}
	if _, err := s.otps.Create(ctx, otp); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store code")
	}

	ttlMinutes := int(s.otpCfg.TTL.Minutes())
	payload := models.EmailPayload{
		ToEmail:  instructor.Email,
		ToName:   instructor.FullName,
		Subject:  "Your login code",
		BodyHTML: fmt.Sprintf("<p>Your login code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>", code, ttlMinutes),
	}
	if _, err := s.outbox.Queue(ctx, payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send code")
	}

	s.logger.Sugar().Infow("otp issued", "instructor_id", instructor.ID)
	return nil
}

// VerifyOTP checks the code against the most recent one issued for the email
// and returns a session token on success. Every failure reads the same to the
// caller.
func (s *AuthService) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	email := normalizeEmail(req.Email)

	instructor, err := s.instructors.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidOTP, "invalid or expired code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up instructor")
	}
	if instructor.Status != models.InstructorStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	otp, err := s.otps.LatestByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidOTP, "invalid or expired code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load code")
	}

	now := time.Now().UTC()
	if otp.Used || now.After(otp.ExpiresAt) || otp.Attempts >= otp.MaxAttempts {
		return nil, appErrors.Clone(appErrors.ErrInvalidOTP, "invalid or expired code")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(req.Code)); err != nil {
		if incErr := s.otps.IncrementAttempts(ctx, otp.ID); incErr != nil {
			s.logger.Sugar().Warnw("failed to record otp attempt", "otp_id", otp.ID, "error", incErr)
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidOTP, "invalid or expired code")
	}

	if err := s.otps.MarkUsed(ctx, otp.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume code")
	}

	token, expiresAt, err := s.issueToken(instructor)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session")
	}

	if s.audit != nil {
		s.audit.Record(ctx, &instructor.ID, models.AuditActionLogin, models.AuditEntityAuth,
			fmt.Sprintf("%d", instructor.ID), nil)
	}
	s.logger.Sugar().Infow("login", "instructor_id", instructor.ID, "role", instructor.Role)

	return &LoginResponse{
		Token:      token,
		ExpiresAt:  expiresAt,
		Instructor: instructor,
	}, nil
}

// ValidateToken parses and verifies a session token.
func (s *AuthService) ValidateToken(raw string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired session")
	}
	return claims, nil
}

func (s *AuthService) issueToken(instructor *models.Instructor) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.jwtCfg.Expiration)

	claims := models.JWTClaims{
		InstructorID: instructor.ID,
		Email:        instructor.Email,
		FullName:     instructor.FullName,
		Role:         instructor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", instructor.ID),
			Issuer:    s.jwtCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// generateOTPCode returns a random numeric code of the given length.
func generateOTPCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
