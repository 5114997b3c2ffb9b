package repositories

import (
	"context"

	"gorm.io/gorm"

	"contactkar/internal/models"
)

// ContactLogRepository appends contact events. There is no update or delete.
type ContactLogRepository interface {
	Append(ctx context.Context, event *models.ContactEvent) error
	ListByTagCode(ctx context.Context, tagCode string) ([]models.ContactEvent, error)
}

// GORMContactLogRepository is a GORM implementation of ContactLogRepository.
type GORMContactLogRepository struct {
	db *gorm.DB
}

// NewGORMContactLogRepository creates a new instance of GORMContactLogRepository.
func NewGORMContactLogRepository(db *gorm.DB) *GORMContactLogRepository {
	return &GORMContactLogRepository{db: db}
}

// Append inserts a contact event.
func (r *GORMContactLogRepository) Append(ctx context.Context, event *models.ContactEvent) error {
	return translate(conn(ctx, r.db).Create(event).Error, "contact event")
}

// ListByTagCode returns the events for a tag code, oldest first.
func (r *GORMContactLogRepository) ListByTagCode(ctx context.Context, tagCode string) ([]models.ContactEvent, error) {
	events := make([]models.ContactEvent, 0)
	if err := conn(ctx, r.db).Where("tag_code = ?", tagCode).Order("id ASC").Find(&events).Error; err != nil {
		return nil, translate(err, "contact event")
	}
	return events, nil
}
