package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contactkar/internal/handlers"
	"contactkar/internal/middleware"
	"contactkar/internal/models"
	"contactkar/internal/notify"
	"contactkar/internal/qr"
	"contactkar/internal/repositories"
	"contactkar/internal/services"
	"contactkar/internal/telephony"
	"contactkar/internal/testdb"
)

// inbox captures OTP codes instead of emailing them.
type inbox struct {
	*notify.LogNotifier
	codes map[string]string
}

func (i *inbox) SendOTP(_ context.Context, email string, purpose models.OTPPurpose, code string) error {
	i.codes[string(purpose)+":"+email] = code
	return nil
}

type failingBridger struct{}

func (failingBridger) Bridge(context.Context, string, string) (*telephony.Call, error) {
	return nil, errors.New("provider unavailable")
}

type testEnv struct {
	app         *fiber.App
	authService *services.AuthService
	tagService  *services.TagService
	users       *repositories.GORMUserRepository
	inbox       *inbox
}

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	db := testdb.Open(t)

	userRepo := repositories.NewGORMUserRepository(db)
	box := &inbox{LogNotifier: notify.NewLogNotifier(log), codes: make(map[string]string)}

	otpService := services.NewOTPService(repositories.NewGORMOTPRepository(db), 10*time.Minute, 3, log)
	authService := services.NewAuthService(userRepo, otpService, box, "test_jwt_secret", time.Hour, log)
	tagService := services.NewTagService(repositories.NewGORMTagRepository(db), qr.NewRenderer("https://contactkar.in", 128), 5, log)
	contactService := services.NewContactService(tagService, userRepo, repositories.NewGORMContactLogRepository(db), failingBridger{}, box, log)
	orderService := services.NewOrderService(repositories.NewGORMOrderRepository(db), tagService, repositories.NewGORMTransactor(db), box, 149, log)

	validate := handlers.NewValidator()
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log)})
	api := app.Group("/api")
	requireAuth := middleware.AuthRequired(authService, log)
	noLimit := func(c *fiber.Ctx) error { return c.Next() }

	handlers.NewAuthHandler(authService, validate, log).RegisterRoutes(api, requireAuth, noLimit)
	tagHandler := handlers.NewTagHandler(tagService, validate)
	tagHandler.RegisterRoutes(api, requireAuth)
	tagHandler.RegisterPublicRoutes(api, noLimit)
	handlers.NewContactHandler(contactService, validate).RegisterRoutes(api, noLimit)
	handlers.NewOrderHandler(orderService, validate).RegisterRoutes(api, requireAuth)

	return &testEnv{app: app, authService: authService, tagService: tagService, users: userRepo, inbox: box}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	jsonBody, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestSignupAndLogin(t *testing.T) {
	env := setupApp(t)

	resp, body := env.request(t, http.MethodPost, "/api/otp/signup/issue", "", map[string]string{
		"email": "test@example.com", "name": "Test", "password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	code := env.inbox.codes["signup:test@example.com"]
	require.NotEmpty(t, code)

	// subject is accepted in place of email
	resp, body = env.request(t, http.MethodPost, "/api/otp/signup/verify", "", map[string]string{
		"subject": "test@example.com", "code": code,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.NotEmpty(t, body["token"])
	assert.NotContains(t, body["user"], "passwordHash")

	resp, body = env.request(t, http.MethodPost, "/api/otp/signup/verify", "", map[string]string{
		"email": "test@example.com", "code": code,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "OTP_ALREADY_USED", body["error"])

	// Test Duplicate Registration
	resp, body = env.request(t, http.MethodPost, "/api/otp/signup/issue", "", map[string]string{
		"email": "TEST@example.com", "name": "Test", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", body["error"])

	// Test Login
	resp, body = env.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "test@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	claims, err := env.authService.ValidateToken(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", claims["email"])

	resp, body = env.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "test@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body["error"])
}

func TestOTPErrorStatuses(t *testing.T) {
	env := setupApp(t)

	resp, body := env.request(t, http.MethodPost, "/api/otp/login/verify", "", map[string]string{
		"email": "nobody@example.com", "code": "123456",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "OTP_NOT_REQUESTED", body["error"])

	// Unknown accounts get the same acknowledgment and no code.
	resp, body = env.request(t, http.MethodPost, "/api/otp/login/issue", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Empty(t, env.inbox.codes["login:nobody@example.com"])

	resp, body = env.request(t, http.MethodPost, "/api/otp/reset/issue", "", map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])

	resp, body = env.request(t, http.MethodPost, "/api/otp/login/verify", "", map[string]string{
		"email": "nobody@example.com", "code": "12",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
	assert.Contains(t, body["errors"], map[string]any{"code": "has the wrong length"})
}

func TestOTPTooManyAttempts(t *testing.T) {
	env := setupApp(t)
	resp, _ := env.request(t, http.MethodPost, "/api/otp/signup/issue", "", map[string]string{
		"email": "a@example.com", "name": "A", "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	wrong := "111111"
	if env.inbox.codes["signup:a@example.com"] == wrong {
		wrong = "222222"
	}

	statuses := []int{}
	for i := 0; i < 4; i++ {
		resp, _ := env.request(t, http.MethodPost, "/api/otp/signup/verify", "", map[string]string{
			"email": "a@example.com", "code": wrong,
		})
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{
		http.StatusBadRequest,
		http.StatusBadRequest,
		http.StatusTooManyRequests,
		http.StatusBadRequest,
	}, statuses)
}

func TestEmailChangeRequiresAuth(t *testing.T) {
	env := setupApp(t)

	resp, body := env.request(t, http.MethodPost, "/api/otp/change_email/issue", "", map[string]string{"newEmail": "new@example.com"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body["error"])
}

func TestProfileAndEmailChange(t *testing.T) {
	env := setupApp(t)
	env.request(t, http.MethodPost, "/api/otp/signup/issue", "", map[string]string{
		"email": "old@example.com", "name": "Old", "password": "password123",
	})
	_, body := env.request(t, http.MethodPost, "/api/otp/signup/verify", "", map[string]string{
		"email": "old@example.com", "code": env.inbox.codes["signup:old@example.com"],
	})
	token := body["token"].(string)

	resp, body := env.request(t, http.MethodPut, "/api/me", token, map[string]string{"name": "Asha", "phone": "12ab"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["errors"], map[string]any{"phone": "must be a phone number of 10 to 15 digits"})

	resp, _ = env.request(t, http.MethodPut, "/api/me", token, map[string]string{"name": "Asha", "phone": "+919876543210"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.request(t, http.MethodPost, "/api/otp/change_email/issue", token, map[string]string{"newEmail": "new@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	code := env.inbox.codes["change_email:new@example.com"]
	require.NotEmpty(t, code)

	resp, body = env.request(t, http.MethodPost, "/api/otp/change_email/verify", token, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "new@example.com", body["user"].(map[string]any)["email"])

	resp, body = env.request(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]any)
	assert.Equal(t, "Asha", user["name"])
	assert.Equal(t, "+919876543210", user["phone"])
}

func TestBridgeFailureIsUpstream(t *testing.T) {
	env := setupApp(t)
	ctx := context.Background()
	owner := &models.User{Email: "owner@example.com", Phone: "9876543210"}
	require.NoError(t, env.users.Create(ctx, owner))

	tags, err := env.tagService.CreateTags(ctx, owner.ID, models.TagKindVehicle, 1, models.TagAttributes{})
	require.NoError(t, err)

	resp, body := env.request(t, http.MethodPost, "/api/contact/bridge", "", map[string]string{
		"tagCode": tags[0].TagCode, "callerNumber": "9123456789",
	})

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "UPSTREAM_FAILURE", body["error"])
}

func TestBridgeValidation(t *testing.T) {
	env := setupApp(t)

	resp, body := env.request(t, http.MethodPost, "/api/contact/bridge", "", map[string]string{
		"tagCode": "nope", "callerNumber": "abc",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
	assert.Len(t, body["errors"], 2)
}

func TestToggleRequiresValue(t *testing.T) {
	env := setupApp(t)
	token, err := env.authService.GenerateToken(&models.User{ID: "user-1", Email: "a@example.com"})
	require.NoError(t, err)

	resp, body := env.request(t, http.MethodPut, "/api/tags/some-id/toggle", token, map[string]string{})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
}

func TestResolveUnknownTag(t *testing.T) {
	env := setupApp(t)

	resp, body := env.request(t, http.MethodGet, "/api/t/CAR-ZZZZZZ", "", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}
