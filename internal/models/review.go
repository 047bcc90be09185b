package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	JobReadinessLevels = []string{"Ready", "Almost Ready", "Needs Work"}
	WellBeingLevels    = []string{"Excellent", "Good", "Fair", "Poor"}
)

type TraineeReview struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	TraineeID    *uuid.UUID `gorm:"type:char(36);index" json:"traineeId,omitempty"`
	TraineeName  string     `gorm:"size:255;not null" json:"traineeName"`
	ReviewerID   uuid.UUID  `gorm:"type:char(36);index;not null" json:"reviewerId"`
	Rating       float64    `gorm:"not null" json:"rating"`
	JobReadiness string     `gorm:"size:20;not null" json:"jobReadiness"`
	WellBeing    string     `gorm:"size:20;not null" json:"wellBeing"`
	Comment      string     `gorm:"type:text" json:"comment,omitempty"`
	LastSession  time.Time  `gorm:"type:date;not null" json:"lastSession"`
	Status       string     `gorm:"size:10;not null;default:active" json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (r *TraineeReview) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
