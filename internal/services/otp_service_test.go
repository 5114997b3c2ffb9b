package services_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contactkar/internal/apperror"
	"contactkar/internal/models"
	"contactkar/internal/services"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newOTPService(t *testing.T) (*services.OTPService, *clock) {
	t.Helper()
	f := newFixture(t)
	svc := services.NewOTPService(f.otps, 10*time.Minute, 5, zap.NewNop())
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	services.SetOTPClock(svc, c.now)
	return svc, c
}

func wrongCode(code string) string {
	if code == "123456" {
		return "654321"
	}
	return "123456"
}

func TestGenerateOTP_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := services.GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestOTPService_VerifyReturnsPayloadOnce(t *testing.T) {
	svc, _ := newOTPService(t)
	ctx := context.Background()

	code, err := svc.Issue(ctx, models.OTPPurposeSignup, "A@Example.com", models.OTPPayload{Name: "Asha"})
	require.NoError(t, err)

	payload, err := svc.Verify(ctx, models.OTPPurposeSignup, "a@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, "Asha", payload.Name)

	_, err = svc.Verify(ctx, models.OTPPurposeSignup, "a@example.com", code)
	assert.True(t, errors.Is(err, apperror.ErrOTPAlreadyUsed), "got %v", err)
}

func TestOTPService_NotRequested(t *testing.T) {
	svc, _ := newOTPService(t)

	_, err := svc.Verify(context.Background(), models.OTPPurposeLogin, "nobody@example.com", "123456")

	assert.True(t, errors.Is(err, apperror.ErrOTPNotRequested))
}

func TestOTPService_LatestChallengeWins(t *testing.T) {
	svc, c := newOTPService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, models.OTPPurposeLogin, "a@example.com", models.OTPPayload{})
	require.NoError(t, err)
	c.advance(time.Second)
	second, err := svc.Issue(ctx, models.OTPPurposeLogin, "a@example.com", models.OTPPayload{})
	require.NoError(t, err)

	if first != second {
		_, err = svc.Verify(ctx, models.OTPPurposeLogin, "a@example.com", first)
		assert.True(t, errors.Is(err, apperror.ErrOTPInvalid), "got %v", err)
	}
	_, err = svc.Verify(ctx, models.OTPPurposeLogin, "a@example.com", second)
	assert.NoError(t, err)
}

func TestOTPService_PurposeAndSubjectIsolation(t *testing.T) {
	svc, _ := newOTPService(t)
	ctx := context.Background()

	code, err := svc.Issue(ctx, models.OTPPurposeSignup, "a@example.com", models.OTPPayload{})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, models.OTPPurposeLogin, "a@example.com", code)
	assert.True(t, errors.Is(err, apperror.ErrOTPNotRequested))
	_, err = svc.Verify(ctx, models.OTPPurposeSignup, "b@example.com", code)
	assert.True(t, errors.Is(err, apperror.ErrOTPNotRequested))

	_, err = svc.Verify(ctx, models.OTPPurposeSignup, "a@example.com", code)
	assert.NoError(t, err)
}

func TestOTPService_ExpiredIsDeleted(t *testing.T) {
	svc, c := newOTPService(t)
	ctx := context.Background()

	code, err := svc.Issue(ctx, models.OTPPurposeLogin, "a@example.com", models.OTPPayload{})
	require.NoError(t, err)
	c.advance(10 * time.Minute)

	_, err = svc.Verify(ctx, models.OTPPurposeLogin, "a@example.com", code)
	assert.True(t, errors.Is(err, apperror.ErrOTPExpired), "got %v", err)

	_, err = svc.Verify(ctx, models.OTPPurposeLogin, "a@example.com", code)
	assert.True(t, errors.Is(err, apperror.ErrOTPNotRequested), "got %v", err)
}

func TestOTPService_TooManyAttempts(t *testing.T) {
	svc, _ := newOTPService(t)
	ctx := context.Background()

	code, err := svc.Issue(ctx, models.OTPPurposeLogin, "a@example.com", models.OTPPayload{})
	require.NoError(t, err)
	bad := wrongCode(code)

	for i := 0; i < 4; i++ {
		_, err = svc.Verify(ctx, models.OTPPurposeLogin, "a@example.com", bad)
		require.True(t, errors.Is(err, apperror.ErrOTPInvalid), "attempt %d: %v", i+1, err)
	}
	_, err = svc.Verify(ctx, models.OTPPurposeLogin, "a@example.com", bad)
	assert.True(t, errors.Is(err, apperror.ErrOTPTooManyAttempts), "got %v", err)

	_, err = svc.Verify(ctx, models.OTPPurposeLogin, "a@example.com", code)
	assert.True(t, errors.Is(err, apperror.ErrOTPNotRequested), "got %v", err)
}

func TestOTPService_IssueValidation(t *testing.T) {
	svc, _ := newOTPService(t)

	_, err := svc.Issue(context.Background(), models.OTPPurpose("reset"), "a@example.com", models.OTPPayload{})
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))

	_, err = svc.Issue(context.Background(), models.OTPPurposeLogin, "  ", models.OTPPayload{})
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
}
