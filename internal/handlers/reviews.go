package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

type ReviewHandler struct {
	DB  *gorm.DB
	Loc *time.Location
	Log *logger.Logger
}

type reviewRequest struct {
	TraineeID    *uuid.UUID `json:"traineeId"`
	TraineeName  string     `json:"traineeName" binding:"required,max=255"`
	Rating       *float64   `json:"rating" binding:"required,min=0,max=5"`
	JobReadiness string     `json:"jobReadiness" binding:"required,jobreadiness"`
	WellBeing    string     `json:"wellBeing" binding:"required,wellbeing"`
	Comment      string     `json:"comment"`
	LastSession  string     `json:"lastSession" binding:"required"`
	Status       string     `json:"status" binding:"omitempty,oneof=active inactive"`
}

func NewReviewHandler(db *gorm.DB, loc *time.Location, log *logger.Logger) *ReviewHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReviewHandler{DB: db, Loc: loc, Log: log}
}

func (h *ReviewHandler) List(c *gin.Context) {
	query := h.DB.Model(&models.TraineeReview{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if raw := c.Query("traineeId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid traineeId"})
			return
		}
		query = query.Where("trainee_id = ?", id)
	}
	var reviews []models.TraineeReview
	if err := query.Order("last_session desc").Find(&reviews).Error; err != nil {
		serverError(c, h.Log, "could not load reviews", err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (h *ReviewHandler) Create(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	lastSession, err := parseTime(req.LastSession, h.Loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lastSession"})
		return
	}
	if req.TraineeID != nil {
		var count int64
		if err := h.DB.Model(&models.User{}).Where("id = ? AND role = ?", *req.TraineeID, models.RoleTrainee).Count(&count).Error; err != nil {
			serverError(c, h.Log, "create failed", err)
			return
		}
		if count == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "trainee not found"})
			return
		}
	}

	status := req.Status
	if status == "" {
		status = "active"
	}
	review := models.TraineeReview{
		TraineeID:    req.TraineeID,
		TraineeName:  strings.TrimSpace(req.TraineeName),
		ReviewerID:   middleware.UserID(c),
		Rating:       *req.Rating,
		JobReadiness: req.JobReadiness,
		WellBeing:    req.WellBeing,
		Comment:      req.Comment,
		LastSession:  lastSession,
		Status:       status,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		serverError(c, h.Log, "create failed", err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var review models.TraineeReview
	if err := h.DB.First(&review, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
			return
		}
		serverError(c, h.Log, "failed to load review", err)
		return
	}
	c.JSON(http.StatusOK, review)
}
