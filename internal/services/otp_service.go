package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"contactkar/internal/apperror"
	"contactkar/internal/models"
	"contactkar/internal/repositories"
)

// OTPService issues and verifies one-time codes scoped by purpose and
// subject.
type OTPService struct {
	challenges  repositories.OTPRepository
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	log         *zap.Logger
}

// NewOTPService creates a new OTPService.
func NewOTPService(challenges repositories.OTPRepository, ttl time.Duration, maxAttempts int, log *zap.Logger) *OTPService {
	return &OTPService{
		challenges:  challenges,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
		log:         log,
	}
}

// generateOTP returns a uniformly random code in 100000..999999.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Issue creates a challenge for (purpose, subject), replacing every earlier
// one, and returns the code to deliver.
func (s *OTPService) Issue(ctx context.Context, purpose models.OTPPurpose, subject string, payload models.OTPPayload) (string, error) {
	if !purpose.Valid() {
		return "", apperror.Validation(fmt.Sprintf("unsupported OTP purpose %q", purpose))
	}
	subject = normalizeSubject(subject)
	if subject == "" {
		return "", apperror.Validation("subject is required")
	}

	code, err := generateOTP()
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	challenge := &models.OTPChallenge{
		Purpose:   purpose,
		Subject:   subject,
		Code:      code,
		Payload:   payload,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.challenges.Replace(ctx, challenge); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks code against the latest challenge for (purpose, subject)
// and returns its payload. A payload is returned at most once.
func (s *OTPService) Verify(ctx context.Context, purpose models.OTPPurpose, subject, code string) (*models.OTPPayload, error) {
	if !purpose.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unsupported OTP purpose %q", purpose))
	}
	subject = normalizeSubject(subject)

	challenge, err := s.challenges.Latest(ctx, purpose, subject)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.ErrOTPNotRequested
	}
	if err != nil {
		return nil, err
	}

	if challenge.Consumed() {
		return nil, apperror.ErrOTPAlreadyUsed
	}

	now := s.now().UTC()
	if !now.Before(challenge.ExpiresAt) {
		s.discard(ctx, challenge)
		return nil, apperror.ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(strings.TrimSpace(code))) != 1 {
		if challenge.Attempts+1 >= s.maxAttempts {
			s.discard(ctx, challenge)
			return nil, apperror.ErrOTPTooManyAttempts
		}
		if err := s.challenges.IncrementAttempts(ctx, challenge.ID); err != nil {
			return nil, err
		}
		return nil, apperror.ErrOTPInvalid
	}

	ok, err := s.challenges.Consume(ctx, challenge.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrOTPAlreadyUsed
	}
	payload := challenge.Payload
	return &payload, nil
}

// discard deletes a challenge that can no longer succeed. A failed delete is
// only logged.
func (s *OTPService) discard(ctx context.Context, challenge *models.OTPChallenge) {
	if err := s.challenges.Delete(ctx, challenge.ID); err != nil {
		s.log.Error("failed to delete OTP challenge",
			zap.Uint("challenge_id", challenge.ID),
			zap.String("purpose", string(challenge.Purpose)),
			zap.Error(err))
	}
}

// normalizeSubject lower-cases email subjects. User id subjects are uuids
// and are unaffected.
func normalizeSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}
