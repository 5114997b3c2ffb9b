package repositories

import (
	"context"

	"contactkar/internal/models"
)

// TagRepository defines the interface for tag data access. Every method
// taking an ownerID matches on both the tag id and the owner in a single
// statement and reports NOT_FOUND when nothing matched.
type TagRepository interface {
	Create(ctx context.Context, tag *models.Tag) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tag, error)
	GetOwned(ctx context.Context, ownerID, tagID string) (*models.Tag, error)
	SetContactable(ctx context.Context, ownerID, tagID string, contactable bool) (*models.Tag, error)
	UpdateAttributes(ctx context.Context, ownerID, tagID string, attrs models.TagAttributes) (*models.Tag, error)
	Delete(ctx context.Context, ownerID, tagID string) error
	FindByCode(ctx context.Context, tagCode string) (*models.Tag, error)
	FindByPlate(ctx context.Context, plateNumber string) (*models.Tag, error)
}
