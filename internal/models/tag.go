package models

import "time"

// TagKind is the kind of thing a tag is attached to.
type TagKind string

const (
	TagKindVehicle TagKind = "vehicle"
	TagKindPet     TagKind = "pet"
)

// Delivery states for tags created by an order.
const (
	DeliveryPending = "pending"
)

// Tag is a printed QR identifier linking a vehicle or pet to its owner.
// TagCode never changes once issued.
type Tag struct {
	ID               string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TagCode          string    `json:"tagCode" gorm:"uniqueIndex;type:varchar(16);not null"`
	UserID           string    `json:"userId" gorm:"index;type:varchar(36);not null"`
	Kind             TagKind   `json:"kind" gorm:"type:varchar(16);not null"`
	PlateNumber      string    `json:"plateNumber,omitempty" gorm:"index;type:varchar(20)"`
	PetName          string    `json:"petName,omitempty" gorm:"type:varchar(100)"`
	PetBreed         string    `json:"petBreed,omitempty" gorm:"type:varchar(100)"`
	OwnerName        string    `json:"ownerName,omitempty" gorm:"type:varchar(100)"`
	EmergencyContact string    `json:"emergencyContact,omitempty" gorm:"type:varchar(100)"`
	IsContactable    bool      `json:"isContactable" gorm:"not null"`
	OrderID          *string   `json:"orderId,omitempty" gorm:"index;type:varchar(36)"`
	DeliveryStatus   string    `json:"deliveryStatus,omitempty" gorm:"type:varchar(20)"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// TagAttributes are the owner-editable, kind-specific fields of a tag.
type TagAttributes struct {
	PlateNumber      string
	PetName          string
	PetBreed         string
	OwnerName        string
	EmergencyContact string
}

// PublicTag is the projection of a tag shown to anyone holding its code.
type PublicTag struct {
	TagCode       string  `json:"tagCode"`
	Kind          TagKind `json:"kind"`
	IsContactable bool    `json:"isContactable"`
	PetName       string  `json:"petName,omitempty"`
	PetBreed      string  `json:"petBreed,omitempty"`
	OwnerName     string  `json:"ownerName,omitempty"`
}

// Public returns the fields of t that may be disclosed to a finder.
func (t *Tag) Public() PublicTag {
	return PublicTag{
		TagCode:       t.TagCode,
		Kind:          t.Kind,
		IsContactable: t.IsContactable,
		PetName:       t.PetName,
		PetBreed:      t.PetBreed,
		OwnerName:     t.OwnerName,
	}
}
