package models

import "time"

// OTPPurpose scopes a challenge; codes never verify across purposes.
type OTPPurpose string

const (
	OTPPurposeSignup      OTPPurpose = "signup"
	OTPPurposeLogin       OTPPurpose = "login"
	OTPPurposeChangeEmail OTPPurpose = "change_email"
)

// Valid reports whether p is a known purpose.
func (p OTPPurpose) Valid() bool {
	switch p {
	case OTPPurposeSignup, OTPPurposeLogin, OTPPurposeChangeEmail:
		return true
	}
	return false
}

// OTPPayload is the data deferred until a challenge is verified.
type OTPPayload struct {
	Name         string `json:"name,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
	NewEmail     string `json:"newEmail,omitempty"`
}

// OTPChallenge is a persisted one-time code for a (purpose, subject) pair.
// ID grows with every insert and breaks ties between equal CreatedAt values.
type OTPChallenge struct {
	ID         uint       `gorm:"primaryKey;autoIncrement"`
	Purpose    OTPPurpose `gorm:"index:idx_otp_purpose_subject;type:varchar(20);not null"`
	Subject    string     `gorm:"index:idx_otp_purpose_subject;type:varchar(255);not null"`
	Code       string     `gorm:"type:varchar(6);not null"`
	Payload    OTPPayload `gorm:"serializer:json;type:text"`
	ExpiresAt  time.Time  `gorm:"not null"`
	ConsumedAt *time.Time
	Attempts   int `gorm:"not null;default:0"`
	CreatedAt  time.Time
}

// Consumed reports whether the challenge was already verified.
func (c *OTPChallenge) Consumed() bool {
	return c.ConsumedAt != nil
}
