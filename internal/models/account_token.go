package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TokenPurposeValidation    = "validation"
	TokenPurposePasswordReset = "password_reset"
)

// AccountToken is a single-use signed link token mailed to a user, either
// to validate a freshly onboarded account or to reset a password.
type AccountToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:char(36);index;not null" json:"userId"`
	Email     string     `gorm:"index;size:255;not null" json:"email"`
	Purpose   string     `gorm:"size:32;index;not null" json:"purpose"`
	Token     string     `gorm:"uniqueIndex;size:512;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"index" json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (t AccountToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
