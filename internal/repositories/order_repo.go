package repositories

import (
	"context"

	"contactkar/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Order, error)
}
