// Package notify hands outbound notifications (OTP emails, contact notices,
// order confirmations) to out-of-process workers.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"contactkar/internal/logger"
	"contactkar/internal/models"
	"contactkar/pkg/rabbitmq"
)

// Notifier delivers notifications. Implementations must not block on the
// final delivery channel (email, SMS); they only enqueue.
type Notifier interface {
	SendOTP(ctx context.Context, email string, purpose models.OTPPurpose, code string) error
	ContactAttempted(ctx context.Context, ownerID string, event *models.ContactEvent) error
	OrderPlaced(ctx context.Context, order *models.Order) error
}

// Publisher is the part of the RabbitMQ client used here.
type Publisher interface {
	PublishJSON(ctx context.Context, queue string, v any) error
}

// Message kinds carried in Message.Kind.
const (
	KindOTPEmail         = "otp_email"
	KindContactAttempted = "contact_attempted"
	KindOrderPlaced      = "order_placed"
)

// Message is the envelope published to the queues.
type Message struct {
	Kind       string         `json:"kind"`
	To         string         `json:"to,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	Data       map[string]any `json:"data"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// QueueNotifier publishes notifications to RabbitMQ.
type QueueNotifier struct {
	pub Publisher
	now func() time.Time
}

// NewQueueNotifier creates a notifier backed by pub.
func NewQueueNotifier(pub Publisher) *QueueNotifier {
	return &QueueNotifier{pub: pub, now: time.Now}
}

func (n *QueueNotifier) SendOTP(ctx context.Context, email string, purpose models.OTPPurpose, code string) error {
	return n.pub.PublishJSON(ctx, rabbitmq.NotificationQueue, Message{
		Kind:       KindOTPEmail,
		To:         email,
		Data:       map[string]any{"purpose": string(purpose), "code": code},
		OccurredAt: n.now().UTC(),
	})
}

func (n *QueueNotifier) ContactAttempted(ctx context.Context, ownerID string, event *models.ContactEvent) error {
	return n.pub.PublishJSON(ctx, rabbitmq.NotificationQueue, Message{
		Kind:   KindContactAttempted,
		UserID: ownerID,
		Data: map[string]any{
			"tagCode":     event.TagCode,
			"contactType": event.ContactType,
			"outcome":     string(event.Outcome),
		},
		OccurredAt: n.now().UTC(),
	})
}

func (n *QueueNotifier) OrderPlaced(ctx context.Context, order *models.Order) error {
	return n.pub.PublishJSON(ctx, rabbitmq.OrderQueue, Message{
		Kind:   KindOrderPlaced,
		UserID: order.UserID,
		Data: map[string]any{
			"orderId":      order.ID,
			"totalTags":    order.TotalTags,
			"deliveryCost": order.DeliveryCost,
			"pincode":      order.ShippingAddress.Pincode,
		},
		OccurredAt: n.now().UTC(),
	})
}

// LogNotifier writes notifications to the log instead of a queue. It is used
// in development when no broker is configured; OTP codes are logged at debug
// level only.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendOTP(_ context.Context, email string, purpose models.OTPPurpose, code string) error {
	n.log.Debug("otp email", zap.String("to", email), zap.String("purpose", string(purpose)), zap.String("code", code))
	return nil
}

func (n *LogNotifier) ContactAttempted(_ context.Context, ownerID string, event *models.ContactEvent) error {
	n.log.Info("contact attempted",
		zap.String("owner_id", ownerID),
		zap.String("tag_code", event.TagCode),
		zap.String("caller", logger.MaskPhone(event.CallerNumber)),
		zap.String("outcome", string(event.Outcome)))
	return nil
}

func (n *LogNotifier) OrderPlaced(_ context.Context, order *models.Order) error {
	n.log.Info("order placed", zap.String("order_id", order.ID), zap.Int("total_tags", order.TotalTags))
	return nil
}
