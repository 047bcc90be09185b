package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AttendanceLocation is the verified device fix stored with a clock-in.
// Distance and accuracy are whole metres.
type AttendanceLocation struct {
	Distance    int         `json:"distance"`
	Accuracy    int         `json:"accuracy"`
	Coordinates Coordinates `json:"coordinates"`
}

// Attendance is one work session. WorkDate is the clock-in calendar day
// (YYYY-MM-DD) and together with UserID forms a unique key, so a user can
// hold at most one record per day.
type Attendance struct {
	ID        uuid.UUID                              `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID                              `gorm:"type:char(36);not null;uniqueIndex:idx_attendance_user_day" json:"userId"`
	WorkDate  string                                 `gorm:"size:10;not null;uniqueIndex:idx_attendance_user_day" json:"workDate"`
	ClockIn   time.Time                              `gorm:"not null;index" json:"clockIn"`
	ClockOut  *time.Time                             `json:"clockOut"`
	Location  datatypes.JSONType[AttendanceLocation] `gorm:"not null" json:"location"`
	Verified  bool                                   `gorm:"not null;default:false" json:"verified"`
	Duration  *int64                                 `gorm:"-" json:"duration"`
	User      *User                                  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt time.Time                              `json:"createdAt"`
	UpdatedAt time.Time                              `json:"updatedAt"`
}

func (a *Attendance) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a *Attendance) AfterFind(tx *gorm.DB) error {
	a.FillDuration()
	return nil
}

// FillDuration sets Duration to the closed session length in seconds, or
// nil while the session is still open.
func (a *Attendance) FillDuration() {
	if a.ClockOut == nil {
		a.Duration = nil
		return
	}
	seconds := int64(a.ClockOut.Sub(a.ClockIn) / time.Second)
	a.Duration = &seconds
}
