package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"contactkar/internal/models"
)

// OTPRepository stores one-time code challenges.
type OTPRepository interface {
	// Replace removes every earlier challenge for the same purpose and
	// subject and inserts challenge, atomically.
	Replace(ctx context.Context, challenge *models.OTPChallenge) error
	// Latest returns the most recently issued challenge for the pair.
	Latest(ctx context.Context, purpose models.OTPPurpose, subject string) (*models.OTPChallenge, error)
	// Consume marks an unconsumed challenge as used. It reports false if the
	// challenge was consumed or removed in the meantime.
	Consume(ctx context.Context, id uint, at time.Time) (bool, error)
	IncrementAttempts(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

// GORMOTPRepository is a GORM implementation of OTPRepository.
type GORMOTPRepository struct {
	db *gorm.DB
}

// NewGORMOTPRepository creates a new instance of GORMOTPRepository.
func NewGORMOTPRepository(db *gorm.DB) *GORMOTPRepository {
	return &GORMOTPRepository{db: db}
}

func (r *GORMOTPRepository) Replace(ctx context.Context, challenge *models.OTPChallenge) error {
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purpose = ? AND subject = ?", challenge.Purpose, challenge.Subject).
			Delete(&models.OTPChallenge{}).Error; err != nil {
			return err
		}
		return tx.Create(challenge).Error
	})
	return translate(err, "otp challenge")
}

func (r *GORMOTPRepository) Latest(ctx context.Context, purpose models.OTPPurpose, subject string) (*models.OTPChallenge, error) {
	var challenge models.OTPChallenge
	err := conn(ctx, r.db).
		Where("purpose = ? AND subject = ?", purpose, subject).
		Order("created_at DESC").Order("id DESC").
		Take(&challenge).Error
	if err != nil {
		return nil, translate(err, "otp challenge")
	}
	return &challenge, nil
}

func (r *GORMOTPRepository) Consume(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := conn(ctx, r.db).Model(&models.OTPChallenge{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", at)
	if res.Error != nil {
		return false, translate(res.Error, "otp challenge")
	}
	return res.RowsAffected == 1, nil
}

func (r *GORMOTPRepository) IncrementAttempts(ctx context.Context, id uint) error {
	err := conn(ctx, r.db).Model(&models.OTPChallenge{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + ?", 1)).Error
	return translate(err, "otp challenge")
}

func (r *GORMOTPRepository) Delete(ctx context.Context, id uint) error {
	return translate(conn(ctx, r.db).Delete(&models.OTPChallenge{}, id).Error, "otp challenge")
}
