package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshToken is an opaque, single-use token bound to a central user.
// Rotation revokes the presented token and points ReplacedByID at its
// successor, so a replayed token can be told apart from an expired one.
type RefreshToken struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey"`
	UserID       uuid.UUID  `gorm:"type:char(36);index;not null"`
	Token        string     `gorm:"uniqueIndex;size:255;not null"`
	ExpiresAt    time.Time  `gorm:"index"`
	RevokedAt    *time.Time `gorm:"index"`
	ReplacedByID *uuid.UUID `gorm:"type:char(36)"`
	User         *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
}

func (r *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r RefreshToken) Active(now time.Time) bool {
	return r.RevokedAt == nil && now.Before(r.ExpiresAt)
}

// Replayed reports whether the token was already rotated away.
func (r RefreshToken) Replayed() bool {
	return r.RevokedAt != nil && r.ReplacedByID != nil
}
