package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"contactkar/internal/models"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create adds a new order.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	return translate(conn(ctx, r.db).Create(order).Error, "order")
}

// ListByOwner returns the owner's orders, newest first.
func (r *GORMOrderRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	if err := conn(ctx, r.db).Where("user_id = ?", ownerID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, translate(err, "order")
	}
	return orders, nil
}
