package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"contactkar/internal/apperror"
	"contactkar/internal/models"
	"contactkar/internal/notify"
	"contactkar/internal/repositories"
)

var errInvalidCredentials = apperror.New(apperror.CodeUnauthorized, "invalid credentials")

// AuthResult is returned after a successful login or signup.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService handles business logic for accounts, OTP-backed flows and
// bearer tokens.
type AuthService struct {
	userRepo  repositories.UserRepository
	otp       *OTPService
	notifier  notify.Notifier
	jwtSecret []byte
	tokenTTL  time.Duration // Duration for which JWT is valid
	log       *zap.Logger
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repositories.UserRepository,
	otp *OTPService,
	notifier notify.Notifier,
	jwtSecret string,
	tokenTTL time.Duration,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		otp:       otp,
		notifier:  notifier,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		log:       log,
		now:       time.Now,
	}
}

// RequestSignup sends a signup code to email. The account itself is created
// only by CompleteSignup. An already registered email is rejected.
func (s *AuthService) RequestSignup(ctx context.Context, email, name, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return apperror.New(apperror.CodeConflict, "email already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	payload := models.OTPPayload{Name: strings.TrimSpace(name), PasswordHash: string(hashedPassword)}
	return s.issueAndSend(ctx, models.OTPPurposeSignup, email, email, payload)
}

// CompleteSignup verifies the signup code and creates the account.
func (s *AuthService) CompleteSignup(ctx context.Context, email, code string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	payload, err := s.otp.Verify(ctx, models.OTPPurposeSignup, email, code)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         payload.Name,
		PasswordHash: payload.PasswordHash,
		Tier:         models.TierFree,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user signed up", zap.String("user_id", user.ID))
	return s.authResult(user)
}

// LoginUser authenticates with email and password.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return s.authResult(user)
}

// RequestLoginOTP sends a login code if email belongs to an account. The
// caller gets the same answer either way.
func (s *AuthService) RequestLoginOTP(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.userRepo.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.issueAndSend(ctx, models.OTPPurposeLogin, email, email, models.OTPPayload{})
}

// CompleteLoginOTP verifies a login code and issues a token.
func (s *AuthService) CompleteLoginOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.otp.Verify(ctx, models.OTPPurposeLogin, email, code); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.authResult(user)
}

// RequestEmailChange sends a confirmation code to newEmail. A target that
// already belongs to an account is acknowledged without sending anything.
func (s *AuthService) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if _, err := s.userRepo.GetByEmail(ctx, newEmail); err == nil {
		s.log.Info("email change to a registered address ignored", zap.String("user_id", userID))
		return nil
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	return s.issueAndSend(ctx, models.OTPPurposeChangeEmail, userID, newEmail, models.OTPPayload{NewEmail: newEmail})
}

// CompleteEmailChange verifies the code and switches the account's email.
func (s *AuthService) CompleteEmailChange(ctx context.Context, userID, code string) (*models.User, error) {
	payload, err := s.otp.Verify(ctx, models.OTPPurposeChangeEmail, userID, code)
	if err != nil {
		return nil, err
	}
	return s.userRepo.UpdateEmail(ctx, userID, payload.NewEmail)
}

// GetProfile returns the account of userID.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateProfile sets the display name and the phone number calls are
// bridged to.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name, phone string) (*models.User, error) {
	return s.userRepo.UpdateProfile(ctx, userID, strings.TrimSpace(name), strings.TrimSpace(phone))
}

func (s *AuthService) issueAndSend(ctx context.Context, purpose models.OTPPurpose, subject, to string, payload models.OTPPayload) error {
	code, err := s.otp.Issue(ctx, purpose, subject, payload)
	if err != nil {
		return err
	}
	if err := s.notifier.SendOTP(ctx, to, purpose, code); err != nil {
		return apperror.Wrap(apperror.CodeUpstreamFailure, "could not send verification code", err)
	}
	return nil
}

func (s *AuthService) authResult(user *models.User) (*AuthResult, error) {
	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// GenerateToken signs an HS256 token for user.
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     now.Add(s.tokenTTL).Unix(), // Token expiration time
		"iat":     now.Unix(),                 // Issued at time
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeUnauthorized, apperror.ErrUnauthorized.Message, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperror.ErrUnauthorized
	}
	if userID, _ := claims["user_id"].(string); userID == "" {
		return nil, apperror.ErrUnauthorized
	}
	return claims, nil
}
