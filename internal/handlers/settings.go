package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SummerNgcobo/parakeet/internal/config"
	"github.com/SummerNgcobo/parakeet/internal/geo"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

type SettingsHandler struct {
	DB  *gorm.DB
	Cfg config.Config
	Log *logger.Logger
}

type updateOfficeRequest struct {
	Latitude     *float64 `json:"latitude" binding:"required,latitude"`
	Longitude    *float64 `json:"longitude" binding:"required,longitude"`
	RadiusMeters *float64 `json:"radius" binding:"required,gt=0,lte=100000"`
	Address      string   `json:"address"`
}

var officeKeys = []string{models.SettingOfficeLat, models.SettingOfficeLng, models.SettingOfficeRadius, models.SettingOfficeAddress}

func NewSettingsHandler(db *gorm.DB, cfg config.Config, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{DB: db, Cfg: cfg, Log: log}
}

// loadOffice returns the configured office with any stored overrides
// applied on top.
func loadOffice(db *gorm.DB, cfg config.Config) (geo.Office, error) {
	office := geo.Office{
		Point:        geo.Point{Lat: cfg.OfficeLat, Lng: cfg.OfficeLng},
		RadiusMeters: cfg.OfficeRadiusMeters,
		Address:      cfg.OfficeAddress,
	}

	var settings []models.Setting
	if err := db.Where(map[string]interface{}{"key": officeKeys}).Find(&settings).Error; err != nil {
		return office, err
	}
	for _, setting := range settings {
		value := strings.TrimSpace(setting.Value)
		switch setting.Key {
		case models.SettingOfficeLat:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				office.Point.Lat = f
			}
		case models.SettingOfficeLng:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				office.Point.Lng = f
			}
		case models.SettingOfficeRadius:
			if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
				office.RadiusMeters = f
			}
		case models.SettingOfficeAddress:
			if value != "" {
				office.Address = value
			}
		}
	}
	return office, nil
}

func (h *SettingsHandler) GetOffice(c *gin.Context) {
	office, err := loadOffice(h.DB, h.Cfg)
	if err != nil {
		serverError(c, h.Log, "failed to load office", err)
		return
	}
	c.JSON(http.StatusOK, office)
}

func (h *SettingsHandler) UpdateOffice(c *gin.Context) {
	var req updateOfficeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	updates := map[string]string{
		models.SettingOfficeLat:    strconv.FormatFloat(*req.Latitude, 'f', -1, 64),
		models.SettingOfficeLng:    strconv.FormatFloat(*req.Longitude, 'f', -1, 64),
		models.SettingOfficeRadius: strconv.FormatFloat(*req.RadiusMeters, 'f', -1, 64),
	}
	if address := strings.TrimSpace(req.Address); address != "" {
		updates[models.SettingOfficeAddress] = address
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		for key, value := range updates {
			setting := models.Setting{Key: key, Value: value}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&setting).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		serverError(c, h.Log, "update failed", err)
		return
	}

	office, err := loadOffice(h.DB, h.Cfg)
	if err != nil {
		serverError(c, h.Log, "failed to load office", err)
		return
	}
	c.JSON(http.StatusOK, office)
}
