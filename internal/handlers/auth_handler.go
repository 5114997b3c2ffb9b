package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"contactkar/internal/apperror"
	"contactkar/internal/services"
)

// messageCodeSent is the only answer an OTP issue request gets.
const messageCodeSent = "If the address can receive it, a verification code has been sent."

// AuthHandler handles HTTP requests for authentication, OTP flows and the
// caller's profile.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	log         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, validate *validator.Validate, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validate,
		log:         log,
	}
}

// RegisterRoutes registers the authentication, OTP and profile routes.
// Login and OTP routes go through limit; email change and profile routes go
// through requireAuth.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, requireAuth, limit fiber.Handler) {
	router.Post("/auth/login", limit, h.HandleLogin)

	otp := router.Group("/otp", limit)
	otp.Post("/signup/issue", h.HandleSignupIssue)
	otp.Post("/signup/verify", h.HandleSignupVerify)
	otp.Post("/login/issue", h.HandleLoginIssue)
	otp.Post("/login/verify", h.HandleLoginVerify)
	otp.Post("/change_email/issue", requireAuth, h.HandleEmailChangeIssue)
	otp.Post("/change_email/verify", requireAuth, h.HandleEmailChangeVerify)
	otp.Post("/:purpose/:action", func(c *fiber.Ctx) error {
		return apperror.Validation("unsupported OTP purpose " + c.Params("purpose"))
	})

	router.Get("/me", requireAuth, h.HandleGetProfile)
	router.Put("/me", requireAuth, h.HandleUpdateProfile)
}

// LoginRequest represents the request body for password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupIssueRequest starts a signup.
type SignupIssueRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// EmailIssueRequest asks for a login code.
type EmailIssueRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyRequest completes a signup or login. Subject is accepted in place
// of email.
type VerifyRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"-"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
}

// EmailChangeIssueRequest asks for a code sent to the new address.
type EmailChangeIssueRequest struct {
	NewEmail string `json:"newEmail" validate:"required,email,max=255"`
}

// CodeRequest carries just a code; the subject is the caller.
type CodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// ProfileRequest updates the caller's profile.
type ProfileRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Phone string `json:"phone" validate:"omitempty,phone"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	res, err := h.authService.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "token": res.Token, "user": res.User})
}

// HandleSignupIssue sends a signup code. Registered emails get CONFLICT.
func (h *AuthHandler) HandleSignupIssue(c *fiber.Ctx) error {
	var req SignupIssueRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	if err := h.authService.RequestSignup(c.UserContext(), req.Email, req.Name, req.Password); err != nil {
		return err
	}
	return sent(c)
}

// HandleSignupVerify creates the account and logs it in.
func (h *AuthHandler) HandleSignupVerify(c *fiber.Ctx) error {
	req, err := h.bindVerify(c)
	if err != nil {
		return err
	}
	res, err := h.authService.CompleteSignup(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "token": res.Token, "user": res.User})
}

// HandleLoginIssue sends a login code without revealing whether the account
// exists.
func (h *AuthHandler) HandleLoginIssue(c *fiber.Ctx) error {
	var req EmailIssueRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	if err := h.authService.RequestLoginOTP(c.UserContext(), req.Email); err != nil {
		return err
	}
	return sent(c)
}

// HandleLoginVerify exchanges a login code for a token.
func (h *AuthHandler) HandleLoginVerify(c *fiber.Ctx) error {
	req, err := h.bindVerify(c)
	if err != nil {
		return err
	}
	res, err := h.authService.CompleteLoginOTP(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "token": res.Token, "user": res.User})
}

// HandleEmailChangeIssue sends a confirmation code to the new address.
func (h *AuthHandler) HandleEmailChangeIssue(c *fiber.Ctx) error {
	var req EmailChangeIssueRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	if err := h.authService.RequestEmailChange(c.UserContext(), userID(c), req.NewEmail); err != nil {
		return err
	}
	return sent(c)
}

// HandleEmailChangeVerify applies the email change.
func (h *AuthHandler) HandleEmailChangeVerify(c *fiber.Ctx) error {
	var req CodeRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	user, err := h.authService.CompleteEmailChange(c.UserContext(), userID(c), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// HandleGetProfile returns the caller's account.
func (h *AuthHandler) HandleGetProfile(c *fiber.Ctx) error {
	user, err := h.authService.GetProfile(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// HandleUpdateProfile sets the caller's name and phone number.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req ProfileRequest
	if err := bind(c, h.validate, &req); err != nil {
		return err
	}
	user, err := h.authService.UpdateProfile(c.UserContext(), userID(c), req.Name, req.Phone)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

func (h *AuthHandler) bindVerify(c *fiber.Ctx) (*VerifyRequest, error) {
	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperror.Wrap(apperror.CodeValidation, "invalid request body", err)
	}
	if req.Email == "" {
		req.Email = req.Subject
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, apperror.InvalidFields(err)
	}
	return &req, nil
}

func sent(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "message": messageCodeSent})
}
