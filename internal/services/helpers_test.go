package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contactkar/internal/models"
	"contactkar/internal/qr"
	"contactkar/internal/repositories"
	"contactkar/internal/services"
	"contactkar/internal/telephony"
	"contactkar/internal/testdb"
)

// MockNotifier is a mock implementation of notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendOTP(ctx context.Context, email string, purpose models.OTPPurpose, code string) error {
	args := m.Called(email, purpose, code)
	return args.Error(0)
}

func (m *MockNotifier) ContactAttempted(ctx context.Context, ownerID string, event *models.ContactEvent) error {
	args := m.Called(ownerID, event)
	return args.Error(0)
}

func (m *MockNotifier) OrderPlaced(ctx context.Context, order *models.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

// MockBridger is a mock implementation of telephony.Bridger.
type MockBridger struct {
	mock.Mock
}

func (m *MockBridger) Bridge(ctx context.Context, callerNumber, ownerNumber string) (*telephony.Call, error) {
	args := m.Called(callerNumber, ownerNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telephony.Call), args.Error(1)
}

// codeInbox is a notifier that keeps the last code sent to each address.
type codeInbox struct {
	mu    sync.Mutex
	codes map[string]string
	MockNotifier
}

func newCodeInbox() *codeInbox {
	return &codeInbox{codes: make(map[string]string)}
}

func (c *codeInbox) SendOTP(_ context.Context, email string, purpose models.OTPPurpose, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[string(purpose)+":"+email] = code
	return nil
}

func (c *codeInbox) last(purpose models.OTPPurpose, email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[string(purpose)+":"+email]
}

type fixture struct {
	db     *gorm.DB
	users  *repositories.GORMUserRepository
	tags   *repositories.GORMTagRepository
	events *repositories.GORMContactLogRepository
	orders *repositories.GORMOrderRepository
	otps   *repositories.GORMOTPRepository
	tagSvc *services.TagService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	tags := repositories.NewGORMTagRepository(db)
	return &fixture{
		db:     db,
		users:  repositories.NewGORMUserRepository(db),
		tags:   tags,
		events: repositories.NewGORMContactLogRepository(db),
		orders: repositories.NewGORMOrderRepository(db),
		otps:   repositories.NewGORMOTPRepository(db),
		tagSvc: services.NewTagService(tags, qr.NewRenderer("https://contactkar.in", 128), 5, zap.NewNop()),
	}
}

func (f *fixture) createUser(t *testing.T, email, phone string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: "Owner", Phone: phone}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
