package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Assignment struct {
	ID             uuid.UUID        `gorm:"type:char(36);primaryKey" json:"id"`
	Title          string           `gorm:"size:255;not null" json:"title"`
	Description    string           `gorm:"type:text" json:"description"`
	Specialization string           `gorm:"size:120;not null" json:"specialization"`
	DueDate        time.Time        `gorm:"not null;index" json:"dueDate"`
	CreatedByID    uuid.UUID        `gorm:"type:char(36);index;not null" json:"createdById"`
	CreatedByEmail string           `gorm:"size:255;not null" json:"createdByEmail"`
	Assignees      []AssignmentUser `gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE" json:"assignees,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AssignmentUser links an assignee to an assignment and carries that
// assignee's submission and grade.
type AssignmentUser struct {
	ID                uuid.UUID   `gorm:"type:char(36);primaryKey" json:"id"`
	AssignmentID      uuid.UUID   `gorm:"type:char(36);not null;uniqueIndex:idx_assignment_user" json:"assignmentId"`
	UserID            uuid.UUID   `gorm:"type:char(36);not null;uniqueIndex:idx_assignment_user" json:"userId"`
	UserEmail         string      `gorm:"size:255;index;not null" json:"userEmail"`
	Submitted         bool        `gorm:"not null;default:false" json:"submitted"`
	SubmissionLink    string      `gorm:"size:512" json:"submissionLink,omitempty"`
	SubmissionComment string      `gorm:"type:text" json:"submissionComment,omitempty"`
	SubmittedAt       *time.Time  `json:"submittedAt,omitempty"`
	Grade             *int        `json:"grade,omitempty"`
	Comments          string      `gorm:"type:text" json:"comments,omitempty"`
	GradedAt          *time.Time  `json:"gradedAt,omitempty"`
	Assignment        *Assignment `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
	User              *User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

func (a *AssignmentUser) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
