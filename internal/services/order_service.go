package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contactkar/internal/apperror"
	"contactkar/internal/models"
	"contactkar/internal/notify"
	"contactkar/internal/repositories"
)

// Quote is the delivery price of an order of tags.
type Quote struct {
	TotalTags      int `json:"totalTags"`
	FreeDeliveries int `json:"freeDeliveries"`
	DeliveryCost   int `json:"deliveryCost"`
	Savings        int `json:"savings"`
}

// PlaceOrderInput is what an owner submits to buy printed tags.
type PlaceOrderInput struct {
	VehicleQty      int
	PetQty          int
	ShippingAddress models.ShippingAddress
}

// PlacedOrder is an order together with the tags it created.
type PlacedOrder struct {
	Order *models.Order `json:"order"`
	Tags  []models.Tag  `json:"tags"`
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	tags        *TagService
	transactor  repositories.Transactor
	notifier    notify.Notifier
	deliveryFee int
	log         *zap.Logger
	now         func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	tags *TagService,
	transactor repositories.Transactor,
	notifier notify.Notifier,
	deliveryFee int,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		tags:        tags,
		transactor:  transactor,
		notifier:    notifier,
		deliveryFee: deliveryFee,
		log:         log,
		now:         time.Now,
	}
}

// DeliveryQuote prices the delivery of totalTags tags: three or more tags
// ship one tag free, five or more ship two free.
func (s *OrderService) DeliveryQuote(totalTags int) Quote {
	if totalTags < 0 {
		totalTags = 0
	}
	free := 0
	switch {
	case totalTags >= 5:
		free = 2
	case totalTags >= 3:
		free = 1
	}
	paid := totalTags - free
	if paid < 0 {
		paid = 0
	}
	return Quote{
		TotalTags:      totalTags,
		FreeDeliveries: free,
		DeliveryCost:   paid * s.deliveryFee,
		Savings:        free * s.deliveryFee,
	}
}

// PlaceOrder records the order and creates its tags in one transaction,
// then announces it on the order queue.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, in PlaceOrderInput) (*PlacedOrder, error) {
	if in.VehicleQty < 0 || in.PetQty < 0 {
		return nil, apperror.Validation("quantities must not be negative")
	}
	total := in.VehicleQty + in.PetQty
	if total < 1 || total > MaxTagsPerRequest {
		return nil, apperror.Validation(fmt.Sprintf("an order must contain between 1 and %d tags", MaxTagsPerRequest))
	}

	quote := s.DeliveryQuote(total)
	now := s.now().UTC()
	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		VehicleQty:      in.VehicleQty,
		PetQty:          in.PetQty,
		ShippingAddress: in.ShippingAddress,
		TotalTags:       quote.TotalTags,
		FreeDeliveries:  quote.FreeDeliveries,
		DeliveryCost:    quote.DeliveryCost,
		Status:          models.OrderStatusPlaced,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var tags []models.Tag
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return err
		}
		tags = make([]models.Tag, 0, total)
		for _, batch := range []struct {
			kind models.TagKind
			qty  int
		}{
			{models.TagKindVehicle, in.VehicleQty},
			{models.TagKindPet, in.PetQty},
		} {
			if batch.qty == 0 {
				continue
			}
			created, err := s.tags.createTags(ctx, userID, batch.kind, batch.qty, models.TagAttributes{}, &order.ID)
			if err != nil {
				return err
			}
			tags = append(tags, created...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.notifier.OrderPlaced(ctx, order); err != nil {
		s.log.Error("failed to publish order placed event", zap.String("order_id", order.ID), zap.Error(err))
	} else {
		s.log.Info("order placed", zap.String("order_id", order.ID), zap.Int("total_tags", order.TotalTags))
	}

	return &PlacedOrder{Order: order, Tags: tags}, nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orderRepo.ListByOwner(ctx, userID)
}
