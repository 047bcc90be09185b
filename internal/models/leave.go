package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	LeaveSick     = "Sick"
	LeavePersonal = "Personal"
	LeaveAdHoc    = "Ad Hoc"
	LeaveFamily   = "Family"

	LeavePending  = "Pending"
	LeaveApproved = "Approved"
	LeaveRejected = "Rejected"
)

var LeaveTypes = []string{LeaveSick, LeavePersonal, LeaveAdHoc, LeaveFamily}

type LeaveRequest struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:char(36);index;not null" json:"userId"`
	LeaveType    string     `gorm:"size:20;index;not null" json:"leaveType"`
	StartDate    time.Time  `gorm:"type:date;index;not null" json:"startDate"`
	EndDate      time.Time  `gorm:"type:date;index;not null" json:"endDate"`
	Days         int        `gorm:"not null" json:"days"`
	Reason       string     `gorm:"type:text;not null" json:"reason"`
	Status       string     `gorm:"size:20;index;not null;default:Pending" json:"status"`
	AdminComment string     `gorm:"type:text" json:"adminComment,omitempty"`
	ProcessedBy  *uuid.UUID `gorm:"type:char(36)" json:"processedBy,omitempty"`
	ProcessedAt  *time.Time `json:"processedAt,omitempty"`
	User         *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (r *LeaveRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
