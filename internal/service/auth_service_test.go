package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trainops/staffing-api/internal/models"
	"github.com/trainops/staffing-api/pkg/config"
	appErrors "github.com/trainops/staffing-api/pkg/errors"
)

type stubInstructorFinder struct {
	byEmail map[string]*models.Instructor
}

func (s *stubInstructorFinder) FindByEmail(_ context.Context, email string) (*models.Instructor, error) {
	instructor, ok := s.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return instructor, nil
}

type stubOTPStore struct {
	latest   *models.OTPCode
	created  []*models.OTPCode
	attempts int
	used     []int64
}

func (s *stubOTPStore) Create(_ context.Context, otp *models.OTPCode) (int64, error) {
	s.created = append(s.created, otp)
	return int64(len(s.created)), nil
}

func (s *stubOTPStore) LatestByEmail(_ context.Context, _ string) (*models.OTPCode, error) {
	if s.latest == nil {
		return nil, sql.ErrNoRows
	}
	return s.latest, nil
}

func (s *stubOTPStore) IncrementAttempts(_ context.Context, _ int64) error {
	s.attempts++
	if s.latest != nil {
		s.latest.Attempts++
	}
	return nil
}

func (s *stubOTPStore) MarkUsed(_ context.Context, id int64) error {
	s.used = append(s.used, id)
	return nil
}

type stubQueuer struct {
	payloads []models.EmailPayload
}

func (s *stubQueuer) Queue(_ context.Context, payload models.EmailPayload) (int64, error) {
	s.payloads = append(s.payloads, payload)
	return int64(len(s.payloads)), nil
}

func authConfig() (config.JWTConfig, config.OTPConfig) {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "staffing-api"},
		config.OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 3, CodeLength: 6}
}

func activeInstructor() *models.Instructor {
	return &models.Instructor{
		ID:       7,
		FullName: "Dana Levi",
		Email:    "dana@example.org",
		Role:     models.RoleInstructor,
		Status:   models.InstructorStatusActive,
	}
}

func otpFixture(t *testing.T, code string) *models.OTPCode {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.OTPCode{
		ID:          1,
		Email:       "dana@example.org",
		CodeHash:    string(hash),
		ExpiresAt:   time.Now().UTC().Add(5 * time.Minute),
		MaxAttempts: 3,
	}
}

func TestRequestOTPStoresHashAndQueuesEmail(t *testing.T) {
	jwtCfg, otpCfg := authConfig()
	otps := &stubOTPStore{}
	outbox := &stubQueuer{}
	finder := &stubInstructorFinder{byEmail: map[string]*models.Instructor{"dana@example.org": activeInstructor()}}
	svc := NewAuthService(finder, otps, outbox, nil, jwtCfg, otpCfg, nil, nil)

	err := svc.RequestOTP(context.Background(), RequestOTPRequest{Email: "Dana@Example.org"}, "10.0.0.1", "test-agent")

	require.NoError(t, err)
	require.Len(t, otps.created, 1)
	assert.NotEmpty(t, otps.created[0].CodeHash)
	assert.Equal(t, "dana@example.org", otps.created[0].Email)
	require.Len(t, outbox.payloads, 1)
	assert.Equal(t, "dana@example.org", outbox.payloads[0].ToEmail)
	// The raw code never appears in storage.
	assert.NotContains(t, outbox.payloads[0].BodyHTML, otps.created[0].CodeHash)
}

func TestRequestOTPUnknownEmailSucceedsSilently(t *testing.T) {
	jwtCfg, otpCfg := authConfig()
	otps := &stubOTPStore{}
	outbox := &stubQueuer{}
	svc := NewAuthService(&stubInstructorFinder{}, otps, outbox, nil, jwtCfg, otpCfg, nil, nil)

	err := svc.RequestOTP(context.Background(), RequestOTPRequest{Email: "nobody@example.org"}, "", "")

	require.NoError(t, err)
	assert.Empty(t, otps.created)
	assert.Empty(t, outbox.payloads)
}

func TestVerifyOTPIssuesSession(t *testing.T) {
	jwtCfg, otpCfg := authConfig()
	otps := &stubOTPStore{latest: otpFixture(t, "482913")}
	finder := &stubInstructorFinder{byEmail: map[string]*models.Instructor{"dana@example.org": activeInstructor()}}
	svc := NewAuthService(finder, otps, &stubQueuer{}, nil, jwtCfg, otpCfg, nil, nil)

	res, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "dana@example.org", Code: "482913"})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, []int64{1}, otps.used)

	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.InstructorID)
	assert.False(t, claims.IsAdmin())
}

func TestVerifyOTPWrongCodeCountsAttempt(t *testing.T) {
	jwtCfg, otpCfg := authConfig()
	otps := &stubOTPStore{latest: otpFixture(t, "482913")}
	finder := &stubInstructorFinder{byEmail: map[string]*models.Instructor{"dana@example.org": activeInstructor()}}
	svc := NewAuthService(finder, otps, &stubQueuer{}, nil, jwtCfg, otpCfg, nil, nil)

	_, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "dana@example.org", Code: "000000"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidOTP.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, otps.attempts)
	assert.Empty(t, otps.used)
}

func TestVerifyOTPExpiredCode(t *testing.T) {
	jwtCfg, otpCfg := authConfig()
	otp := otpFixture(t, "482913")
	otp.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	otps := &stubOTPStore{latest: otp}
	finder := &stubInstructorFinder{byEmail: map[string]*models.Instructor{"dana@example.org": activeInstructor()}}
	svc := NewAuthService(finder, otps, &stubQueuer{}, nil, jwtCfg, otpCfg, nil, nil)

	_, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "dana@example.org", Code: "482913"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidOTP.Code, appErrors.FromError(err).Code)
}

func TestVerifyOTPExhaustedAttempts(t *testing.T) {
	jwtCfg, otpCfg := authConfig()
	otp := otpFixture(t, "482913")
	otp.Attempts = 3
	otps := &stubOTPStore{latest: otp}
	finder := &stubInstructorFinder{byEmail: map[string]*models.Instructor{"dana@example.org": activeInstructor()}}
	svc := NewAuthService(finder, otps, &stubQueuer{}, nil, jwtCfg, otpCfg, nil, nil)

	_, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "dana@example.org", Code: "482913"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidOTP.Code, appErrors.FromError(err).Code)
}

func TestVerifyOTPInactiveInstructor(t *testing.T) {
	jwtCfg, otpCfg := authConfig()
	inactive := activeInstructor()
	inactive.Status = models.InstructorStatusInactive
	finder := &stubInstructorFinder{byEmail: map[string]*models.Instructor{"dana@example.org": inactive}}
	svc := NewAuthService(finder, &stubOTPStore{latest: otpFixture(t, "482913")}, &stubQueuer{}, nil, jwtCfg, otpCfg, nil, nil)

	_, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "dana@example.org", Code: "482913"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	jwtCfg, otpCfg := authConfig()
	svc := NewAuthService(&stubInstructorFinder{}, &stubOTPStore{}, &stubQueuer{}, nil, jwtCfg, otpCfg, nil, nil)

	_, err := svc.ValidateToken("not-a-token")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
