package models

import "time"

// Subscription tiers.
const (
	TierFree = "free"
)

// User is the owner of tags. Users are created only after their email has
// been verified with a signup OTP.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Name         string    `json:"name" gorm:"type:varchar(100)"`
	Phone        string    `json:"phone,omitempty" gorm:"type:varchar(20)"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255)"` // No json tag for security
	Tier         string    `json:"tier" gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
