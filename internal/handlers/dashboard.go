package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/attendance"
	"github.com/SummerNgcobo/parakeet/internal/config"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

type DashboardHandler struct {
	DB  *gorm.DB
	Cfg config.Config
	Log *logger.Logger
	now func() time.Time
}

type roleCount struct {
	Role  string `json:"role"`
	Count int64  `json:"count"`
}

func NewDashboardHandler(db *gorm.DB, cfg config.Config, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{DB: db, Cfg: cfg, Log: log, now: time.Now}
}

// Get returns the summary counts for the caller's role.
func (h *DashboardHandler) Get(c *gin.Context) {
	now := h.now().In(h.Cfg.Location())
	userID := middleware.UserID(c)

	var (
		body gin.H
		err  error
	)
	switch role := middleware.Role(c); {
	case role == models.RoleAdmin:
		body, err = h.admin(now)
	case role == models.RoleTrainee:
		body, err = h.trainee(userID, now)
	default:
		body, err = h.staff(userID, role, now)
	}
	if err != nil {
		serverError(c, h.Log, "could not load dashboard", err)
		return
	}
	body["role"] = middleware.Role(c)
	c.JSON(http.StatusOK, body)
}

func (h *DashboardHandler) trainee(userID uuid.UUID, now time.Time) (gin.H, error) {
	var pending, submitted, graded, pendingLeave int64
	links := h.DB.Model(&models.AssignmentUser{}).Where("user_id = ?", userID)
	if err := links.Session(&gorm.Session{}).Where("submitted = ?", false).Count(&pending).Error; err != nil {
		return nil, err
	}
	if err := links.Session(&gorm.Session{}).Where("submitted = ? AND grade IS NULL", true).Count(&submitted).Error; err != nil {
		return nil, err
	}
	if err := links.Session(&gorm.Session{}).Where("grade IS NOT NULL").Count(&graded).Error; err != nil {
		return nil, err
	}
	if err := h.DB.Model(&models.LeaveRequest{}).
		Where("user_id = ? AND status = ?", userID, models.LeavePending).
		Count(&pendingLeave).Error; err != nil {
		return nil, err
	}
	today, err := attendance.Today(h.DB, userID, now)
	if err != nil {
		return nil, err
	}

	return gin.H{
		"assignments": gin.H{
			"pending":   pending,
			"submitted": submitted,
			"graded":    graded,
		},
		"attendance":   attendance.DayState(today),
		"pendingLeave": pendingLeave,
	}, nil
}

func (h *DashboardHandler) staff(userID uuid.UUID, role string, now time.Time) (gin.H, error) {
	var trainees, toGrade, upcoming int64
	if column, ok := models.StaffColumn(role); ok {
		var staff models.User
		if err := h.DB.Take(&staff, "id = ?", userID).Error; err != nil {
			return nil, err
		}
		if err := h.DB.Model(&models.Trainee{}).Where(column+" = ?", staff.SourceUserID).Count(&trainees).Error; err != nil {
			return nil, err
		}
	}
	if err := h.DB.Model(&models.AssignmentUser{}).
		Joins("JOIN assignments ON assignments.id = assignment_users.assignment_id").
		Where("assignments.created_by_id = ? AND assignment_users.submitted = ? AND assignment_users.grade IS NULL", userID, true).
		Count(&toGrade).Error; err != nil {
		return nil, err
	}
	if err := h.upcomingEvents(now, &upcoming); err != nil {
		return nil, err
	}

	return gin.H{
		"trainees":       trainees,
		"toGrade":        toGrade,
		"upcomingEvents": upcoming,
	}, nil
}

func (h *DashboardHandler) admin(now time.Time) (gin.H, error) {
	var byRole []roleCount
	if err := h.DB.Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").Order("role").
		Scan(&byRole).Error; err != nil {
		return nil, err
	}
	var clockIns, pendingLeave, upcoming int64
	if err := h.DB.Model(&models.Attendance{}).Where("work_date = ?", attendance.WorkDate(now)).Count(&clockIns).Error; err != nil {
		return nil, err
	}
	if err := h.DB.Model(&models.LeaveRequest{}).Where("status = ?", models.LeavePending).Count(&pendingLeave).Error; err != nil {
		return nil, err
	}
	if err := h.upcomingEvents(now, &upcoming); err != nil {
		return nil, err
	}

	return gin.H{
		"users":          byRole,
		"todayClockIns":  clockIns,
		"pendingLeave":   pendingLeave,
		"upcomingEvents": upcoming,
	}, nil
}

func (h *DashboardHandler) upcomingEvents(now time.Time, out *int64) error {
	start, _ := attendance.DayBounds(now)
	return h.DB.Model(&models.Event{}).Where("date >= ?", time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)).Count(out).Error
}
