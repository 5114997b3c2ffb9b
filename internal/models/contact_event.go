package models

import "time"

// ContactTypeCallBridge is the only contact type offered today.
const ContactTypeCallBridge = "call_bridge"

// ContactOutcome is the terminal state of a mediated contact attempt.
type ContactOutcome string

const (
	OutcomeNotFound     ContactOutcome = "not_found"
	OutcomeRefused      ContactOutcome = "refused"
	OutcomeBridgeFailed ContactOutcome = "bridge_failed"
	OutcomeCompleted    ContactOutcome = "completed"
)

// ContactEvent is an append-only record of a contact attempt. It keeps the
// tag code alongside the id and has no foreign key, so deleting a tag never
// breaks logging.
type ContactEvent struct {
	ID           uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	TagID        string         `json:"tagId" gorm:"index;type:varchar(36)"`
	TagCode      string         `json:"tagCode" gorm:"index;type:varchar(16);not null"`
	CallerNumber string         `json:"callerNumber" gorm:"type:varchar(20);not null"`
	ContactType  string         `json:"contactType" gorm:"type:varchar(20);not null"`
	Outcome      ContactOutcome `json:"outcome" gorm:"type:varchar(20);not null"`
	ProviderRef  string         `json:"providerRef,omitempty" gorm:"type:varchar(64)"`
	CreatedAt    time.Time      `json:"createdAt"`
}
