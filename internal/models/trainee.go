package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const TraineeTable = "talent_users"

type Trainee struct {
	ID                uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	FirstName         string         `gorm:"size:120;not null" json:"firstName"`
	LastName          string         `gorm:"size:120;not null" json:"lastName"`
	Email             string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash      string         `gorm:"size:255" json:"-"`
	Cohort            string         `gorm:"size:120;index" json:"cohort"`
	Specialisation    string         `gorm:"size:120" json:"specialisation"`
	Validated         bool           `gorm:"not null;default:false" json:"validated"`
	FacilitatorID     *uuid.UUID     `gorm:"type:char(36);index" json:"facilitatorId,omitempty"`
	TechnicalMentorID *uuid.UUID     `gorm:"type:char(36);index" json:"technicalMentorId,omitempty"`
	CareerCoachID     *uuid.UUID     `gorm:"type:char(36);index" json:"careerCoachId,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Trainee) TableName() string {
	return TraineeTable
}

func (t *Trainee) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Trainee) CentralUser() User {
	return User{
		FirstName:    t.FirstName,
		LastName:     t.LastName,
		Email:        t.Email,
		PasswordHash: t.PasswordHash,
		Role:         RoleTrainee,
		Validated:    t.Validated,
		SourceTable:  TraineeTable,
		SourceUserID: t.ID,
	}
}

// StaffColumn returns the trainee column that links it to a staff member
// of the given role.
func StaffColumn(role string) (string, bool) {
	switch role {
	case RoleFacilitator:
		return "facilitator_id", true
	case RoleTechnicalMentor:
		return "technical_mentor_id", true
	case RoleCareerCoach:
		return "career_coach_id", true
	}
	return "", false
}
