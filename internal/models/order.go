package models

import "time"

// Order statuses.
const (
	OrderStatusPlaced = "placed"
)

// ShippingAddress is where printed tags are delivered.
type ShippingAddress struct {
	Address string `json:"address" gorm:"type:varchar(255)"`
	City    string `json:"city" gorm:"type:varchar(100)"`
	State   string `json:"state" gorm:"type:varchar(100)"`
	Pincode string `json:"pincode" gorm:"type:varchar(10)"`
}

// Order represents a purchase of printed tags. Placing an order creates its
// tags in the same transaction.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"userId" gorm:"index;type:varchar(36);not null"`
	VehicleQty      int             `json:"vehicleQty"`
	PetQty          int             `json:"petQty"`
	ShippingAddress ShippingAddress `json:"shippingAddress" gorm:"embedded"`
	TotalTags       int             `json:"totalTags"`
	FreeDeliveries  int             `json:"freeDeliveries"`
	DeliveryCost    int             `json:"deliveryCost"`
	Status          string          `json:"status" gorm:"type:varchar(20);not null"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
