package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const StaffTable = "staff_users"

type Staff struct {
	ID           uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	FirstName    string         `gorm:"size:120;not null" json:"firstName"`
	LastName     string         `gorm:"size:120;not null" json:"lastName"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Role         string         `gorm:"size:50;index;not null" json:"role"`
	Validated    bool           `gorm:"not null;default:false" json:"validated"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Staff) TableName() string {
	return StaffTable
}

func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *Staff) CentralUser() User {
	return User{
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		Email:        s.Email,
		PasswordHash: s.PasswordHash,
		Role:         s.Role,
		Validated:    s.Validated,
		SourceTable:  StaffTable,
		SourceUserID: s.ID,
	}
}
