package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EventTraining      = "training"
	EventCommunication = "communication"
	EventNetworking    = "networking"
)

var EventTypes = []string{EventTraining, EventCommunication, EventNetworking}

type Event struct {
	ID          uuid.UUID         `gorm:"type:char(36);primaryKey" json:"id"`
	Title       string            `gorm:"size:255;not null" json:"title"`
	Date        time.Time         `gorm:"type:date;index;not null" json:"date"`
	Time        string            `gorm:"size:20;not null" json:"time"`
	Location    string            `gorm:"size:255;not null" json:"location"`
	Description string            `gorm:"type:text" json:"description,omitempty"`
	Type        string            `gorm:"size:30;not null" json:"type"`
	Attendances []EventAttendance `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"attendances,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

type EventAttendance struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	EventID   uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_event_user" json:"eventId"`
	UserID    uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_event_user" json:"userId"`
	Attending bool      `gorm:"not null" json:"attending"`
	Event     *Event    `gorm:"foreignKey:EventID" json:"event,omitempty"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *EventAttendance) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
