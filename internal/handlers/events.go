package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SummerNgcobo/parakeet/internal/attendance"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

type EventHandler struct {
	DB  *gorm.DB
	Log *logger.Logger
}

type eventRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Date        string `json:"date" binding:"required,datetime=2006-01-02"`
	Time        string `json:"time" binding:"required,datetime=15:04"`
	Location    string `json:"location" binding:"required,max=255"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"required,eventtype"`
}

type rsvpRequest struct {
	Attending *bool `json:"attending" binding:"required"`
}

func NewEventHandler(db *gorm.DB, log *logger.Logger) *EventHandler {
	return &EventHandler{DB: db, Log: log}
}

func withAttendees(db *gorm.DB) *gorm.DB {
	return db.Preload("Attendances.User")
}

func (h *EventHandler) List(c *gin.Context) {
	query := withAttendees(h.DB)
	if eventType := c.Query("type"); eventType != "" {
		query = query.Where("type = ?", eventType)
	}
	var events []models.Event
	if err := query.Order("date asc").Order("time asc").Find(&events).Error; err != nil {
		serverError(c, h.Log, "could not load events", err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var event models.Event
	if err := withAttendees(h.DB).First(&event, "id = ?", id).Error; err != nil {
		h.notFoundOr500(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) notFoundOr500(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	serverError(c, h.Log, "failed to load event", err)
}

func bindEvent(c *gin.Context) (models.Event, bool) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return models.Event{}, false
	}
	date, err := time.Parse(attendance.DateLayout, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return models.Event{}, false
	}
	return models.Event{
		Title:       strings.TrimSpace(req.Title),
		Date:        date,
		Time:        req.Time,
		Location:    strings.TrimSpace(req.Location),
		Description: req.Description,
		Type:        req.Type,
	}, true
}

func (h *EventHandler) Create(c *gin.Context) {
	event, ok := bindEvent(c)
	if !ok {
		return
	}
	if err := h.DB.Create(&event).Error; err != nil {
		serverError(c, h.Log, "create failed", err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	input, ok := bindEvent(c)
	if !ok {
		return
	}

	var event models.Event
	if err := h.DB.First(&event, "id = ?", id).Error; err != nil {
		h.notFoundOr500(c, err)
		return
	}
	if err := h.DB.Model(&event).Updates(map[string]interface{}{
		"title":       input.Title,
		"date":        input.Date,
		"time":        input.Time,
		"location":    input.Location,
		"description": input.Description,
		"type":        input.Type,
	}).Error; err != nil {
		serverError(c, h.Log, "update failed", err)
		return
	}
	event.Title, event.Date, event.Time = input.Title, input.Date, input.Time
	event.Location, event.Description, event.Type = input.Location, input.Description, input.Type
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var deleted int64
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventAttendance{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Event{}, "id = ?", id)
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		serverError(c, h.Log, "delete failed", err)
		return
	}
	if deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// RSVP records whether the caller will attend the event. Repeated calls
// overwrite the previous answer.
func (h *EventHandler) RSVP(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req rsvpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "attending is required"})
		return
	}

	var event models.Event
	if err := h.DB.First(&event, "id = ?", id).Error; err != nil {
		h.notFoundOr500(c, err)
		return
	}

	rsvp := models.EventAttendance{EventID: event.ID, UserID: middleware.UserID(c), Attending: *req.Attending}
	err := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"attending", "updated_at"}),
	}).Create(&rsvp).Error
	if err != nil {
		serverError(c, h.Log, "attendance update failed", err)
		return
	}
	// on conflict the row keeps its original id, so reload by the pair
	var saved models.EventAttendance
	if err := h.DB.Where("event_id = ? AND user_id = ?", rsvp.EventID, rsvp.UserID).Take(&saved).Error; err != nil {
		serverError(c, h.Log, "attendance update failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "attendance updated", "attendance": saved})
}

// ForUser lists the user's RSVPs, optionally limited to events dated
// between startDate and endDate.
func (h *EventHandler) ForUser(c *gin.Context) {
	if !canReadUser(c, c.Param("email")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	user, err := findUserByEmail(h.DB, c.Param("email"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		serverError(c, h.Log, "failed to load user", err)
		return
	}

	start, end, err := dateRange(c, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := h.DB.Model(&models.EventAttendance{}).
		Joins("JOIN events ON events.id = event_attendances.event_id").
		Where("event_attendances.user_id = ?", user.ID)
	if start != nil {
		query = query.Where("events.date >= ?", *start)
	}
	if end != nil {
		query = query.Where("events.date <= ?", *end)
	}

	var rsvps []models.EventAttendance
	if err := query.Preload("Event").Order("events.date asc").Find(&rsvps).Error; err != nil {
		serverError(c, h.Log, "could not load events", err)
		return
	}
	c.JSON(http.StatusOK, rsvps)
}
