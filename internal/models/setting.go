package models

import "time"

const (
	SettingOfficeLat     = "office.lat"
	SettingOfficeLng     = "office.lng"
	SettingOfficeRadius  = "office.radius_meters"
	SettingOfficeAddress = "office.address"
)

type Setting struct {
	Key       string    `gorm:"size:64;primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}
