package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin           = "admin"
	RoleTrainee         = "trainee"
	RoleFacilitator     = "facilitator"
	RoleTechnicalMentor = "technical_mentor"
	RoleCareerCoach     = "career_coach"
)

// StaffRoles lists every role stored in the staff_users source table.
var StaffRoles = []string{RoleAdmin, RoleFacilitator, RoleTechnicalMentor, RoleCareerCoach}

// User is the central account row every feature slice references. It is
// never written directly by handlers; directory.SyncUser keeps it in step
// with the trainee and staff source tables.
type User struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	FirstName    string    `gorm:"size:120;not null" json:"firstName"`
	LastName     string    `gorm:"size:120;not null" json:"lastName"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Role         string    `gorm:"size:50;index;not null" json:"role"`
	Validated    bool      `gorm:"not null;default:false" json:"validated"`
	SourceTable  string    `gorm:"size:64;not null;uniqueIndex:idx_users_source" json:"sourceTable"`
	SourceUserID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_users_source" json:"sourceUserId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) IsStaff() bool {
	return u.Role != RoleTrainee
}

// UserSummary is the trimmed user shape embedded in list responses.
type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email, Role: u.Role}
}
