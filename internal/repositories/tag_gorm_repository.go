package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"contactkar/internal/apperror"
	"contactkar/internal/models"
)

// GORMTagRepository is a GORM implementation of TagRepository.
type GORMTagRepository struct {
	db *gorm.DB
}

// NewGORMTagRepository creates a new instance of GORMTagRepository.
func NewGORMTagRepository(db *gorm.DB) *GORMTagRepository {
	return &GORMTagRepository{
		db: db,
	}
}

var errTagNotFound = apperror.Wrap(apperror.CodeNotFound, "tag not found", gorm.ErrRecordNotFound)

// Create inserts a tag inside its own savepoint, so a duplicate tag code
// (CONFLICT) leaves any surrounding transaction usable for a retry.
func (r *GORMTagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(tag).Error
	})
	return translate(err, "tag")
}

// ListByOwner returns the owner's tags, newest first.
func (r *GORMTagRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0)
	err := conn(ctx, r.db).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").Order("tag_code DESC").
		Find(&tags).Error
	if err != nil {
		return nil, translate(err, "tag")
	}
	return tags, nil
}

// GetOwned returns a tag only if ownerID owns it.
func (r *GORMTagRepository) GetOwned(ctx context.Context, ownerID, tagID string) (*models.Tag, error) {
	var tag models.Tag
	err := conn(ctx, r.db).Where("id = ? AND user_id = ?", tagID, ownerID).First(&tag).Error
	if err != nil {
		return nil, translate(err, "tag")
	}
	return &tag, nil
}

// SetContactable flips the contact flag with one conditional update.
func (r *GORMTagRepository) SetContactable(ctx context.Context, ownerID, tagID string, contactable bool) (*models.Tag, error) {
	return r.updateOwned(ctx, ownerID, tagID, map[string]any{"is_contactable": contactable})
}

// UpdateAttributes overwrites the editable fields of a tag.
func (r *GORMTagRepository) UpdateAttributes(ctx context.Context, ownerID, tagID string, attrs models.TagAttributes) (*models.Tag, error) {
	return r.updateOwned(ctx, ownerID, tagID, map[string]any{
		"plate_number":      attrs.PlateNumber,
		"pet_name":          attrs.PetName,
		"pet_breed":         attrs.PetBreed,
		"owner_name":        attrs.OwnerName,
		"emergency_contact": attrs.EmergencyContact,
	})
}

func (r *GORMTagRepository) updateOwned(ctx context.Context, ownerID, tagID string, updates map[string]any) (*models.Tag, error) {
	res := conn(ctx, r.db).Model(&models.Tag{}).
		Where("id = ? AND user_id = ?", tagID, ownerID).
		Updates(updates)
	if res.Error != nil {
		return nil, translate(res.Error, "tag")
	}
	if res.RowsAffected == 0 {
		return nil, errTagNotFound
	}
	// A concurrent delete between the update and this read surfaces as
	// NOT_FOUND; it can never expose another owner's tag.
	return r.GetOwned(ctx, ownerID, tagID)
}

// Delete hard-deletes a tag owned by ownerID.
func (r *GORMTagRepository) Delete(ctx context.Context, ownerID, tagID string) error {
	res := conn(ctx, r.db).Where("id = ? AND user_id = ?", tagID, ownerID).Delete(&models.Tag{})
	if res.Error != nil {
		return translate(res.Error, "tag")
	}
	if res.RowsAffected == 0 {
		return errTagNotFound
	}
	return nil
}

// FindByCode looks a tag up by its code alone.
func (r *GORMTagRepository) FindByCode(ctx context.Context, tagCode string) (*models.Tag, error) {
	var tag models.Tag
	if err := conn(ctx, r.db).Where("tag_code = ?", tagCode).First(&tag).Error; err != nil {
		return nil, translate(err, "tag")
	}
	return &tag, nil
}

// FindByPlate returns the newest vehicle tag registered for a plate.
func (r *GORMTagRepository) FindByPlate(ctx context.Context, plateNumber string) (*models.Tag, error) {
	var tag models.Tag
	err := conn(ctx, r.db).
		Where("plate_number = ? AND kind = ?", plateNumber, models.TagKindVehicle).
		Order("created_at DESC").
		First(&tag).Error
	if err != nil {
		return nil, translate(err, "tag")
	}
	return &tag, nil
}
