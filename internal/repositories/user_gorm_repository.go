package repositories

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"contactkar/internal/apperror"
	"contactkar/internal/models"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user. A registered email yields CONFLICT.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(user.Email)
	if user.Tier == "" {
		user.Tier = models.TierFree
	}
	if err := conn(ctx, r.db).Create(user).Error; err != nil {
		return translate(err, "user")
	}
	return nil
}

// GetByEmail retrieves a user by their email.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).First(&user, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

// GetByID retrieves a user by their ID.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

// UpdateProfile sets the display name and phone number of a user.
func (r *GORMUserRepository) UpdateProfile(ctx context.Context, id, name, phone string) (*models.User, error) {
	res := conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"name": name, "phone": phone})
	if res.Error != nil {
		return nil, translate(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return nil, apperror.Wrap(apperror.CodeNotFound, "user not found", gorm.ErrRecordNotFound)
	}
	return r.GetByID(ctx, id)
}

// UpdateEmail changes the email of a user. A taken email yields CONFLICT.
func (r *GORMUserRepository) UpdateEmail(ctx context.Context, id, email string) (*models.User, error) {
	res := conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).
		Update("email", strings.ToLower(email))
	if res.Error != nil {
		return nil, translate(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return nil, apperror.Wrap(apperror.CodeNotFound, "user not found", gorm.ErrRecordNotFound)
	}
	return r.GetByID(ctx, id)
}
