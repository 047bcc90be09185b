package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/attendance"
	"github.com/SummerNgcobo/parakeet/internal/email"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

type LeaveHandler struct {
	DB   *gorm.DB
	Mail email.Sender
	Log  *logger.Logger
	now  func() time.Time
}

type leaveRequestBody struct {
	LeaveType string `json:"leaveType" binding:"required,leavetype"`
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
	Reason    string `json:"reason" binding:"required,max=2000"`
}

type processLeaveRequest struct {
	Status       string `json:"status" binding:"required,oneof=Approved Rejected"`
	AdminComment string `json:"adminComment" binding:"max=2000"`
}

var (
	errLeaveOverlap    = errors.New("overlapping leave exists")
	errLeaveNotPending = errors.New("leave is not pending")
)

func NewLeaveHandler(db *gorm.DB, mail email.Sender, log *logger.Logger) *LeaveHandler {
	return &LeaveHandler{DB: db, Mail: mail, Log: log, now: time.Now}
}

// leaveSpan parses an inclusive date span and returns its length in days.
func leaveSpan(body leaveRequestBody) (time.Time, time.Time, int, error) {
	start, err := time.Parse(attendance.DateLayout, body.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, 0, errors.New("invalid startDate")
	}
	end, err := time.Parse(attendance.DateLayout, body.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, 0, errors.New("invalid endDate")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, 0, errors.New("endDate must not be before startDate")
	}
	days := int(end.Sub(start).Hours()/24) + 1
	return start, end, days, nil
}

func overlapping(tx *gorm.DB, userID uuid.UUID, start, end time.Time, exclude uuid.UUID) (bool, error) {
	query := tx.Model(&models.LeaveRequest{}).
		Where("user_id = ? AND status <> ? AND start_date <= ? AND end_date >= ?", userID, models.LeaveRejected, end, start)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (h *LeaveHandler) Create(c *gin.Context) {
	var body leaveRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	start, end, days, err := leaveSpan(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)
	request := models.LeaveRequest{
		UserID:    userID,
		LeaveType: body.LeaveType,
		StartDate: start,
		EndDate:   end,
		Days:      days,
		Reason:    body.Reason,
		Status:    models.LeavePending,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		clash, err := overlapping(tx, userID, start, end, uuid.Nil)
		if err != nil {
			return err
		}
		if clash {
			return errLeaveOverlap
		}
		return tx.Create(&request).Error
	})
	if err != nil {
		if errors.Is(err, errLeaveOverlap) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		serverError(c, h.Log, "create failed", err)
		return
	}

	h.notifyAdmins(c, request)
	c.JSON(http.StatusCreated, request)
}

func (h *LeaveHandler) notifyAdmins(c *gin.Context, request models.LeaveRequest) {
	var admins []string
	if err := h.DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Pluck("email", &admins).Error; err != nil {
		h.Log.Error("loading admin emails", err, nil)
		return
	}
	var requester models.User
	if err := h.DB.Take(&requester, "id = ?", request.UserID).Error; err != nil {
		h.Log.Error("loading leave requester", err, map[string]interface{}{"userId": request.UserID})
		return
	}
	notify(c, h.Mail, h.Log, email.LeaveSubmittedMessage(admins, requester.FullName(), request.LeaveType, request.StartDate, request.EndDate, request.Reason))
}

func (h *LeaveHandler) Mine(c *gin.Context) {
	h.listFor(c, h.DB.Where("user_id = ?", middleware.UserID(c)))
}

func (h *LeaveHandler) ForUser(c *gin.Context) {
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
	h.listFor(c, h.DB.Where("user_id = ?", user.ID))
}

func (h *LeaveHandler) List(c *gin.Context) {
	query := h.DB.Preload("User")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if leaveType := c.Query("leaveType"); leaveType != "" {
		query = query.Where("leave_type = ?", leaveType)
	}
	h.listFor(c, query)
}

func (h *LeaveHandler) listFor(c *gin.Context, query *gorm.DB) {
	var requests []models.LeaveRequest
	if err := query.Order("created_at desc").Find(&requests).Error; err != nil {
		serverError(c, h.Log, "could not load leave", err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// ownPending loads the request in :id and checks the caller owns it and it
// is still pending. It answers the request itself when ok is false.
func (h *LeaveHandler) ownPending(c *gin.Context) (models.LeaveRequest, bool) {
	var request models.LeaveRequest
	id, ok := paramUUID(c, "id")
	if !ok {
		return request, false
	}
	if err := h.DB.First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "leave not found"})
			return request, false
		}
		serverError(c, h.Log, "failed to load leave", err)
		return request, false
	}
	if request.UserID != middleware.UserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return request, false
	}
	if request.Status != models.LeavePending {
		c.JSON(http.StatusConflict, gin.H{"error": errLeaveNotPending.Error()})
		return request, false
	}
	return request, true
}

func (h *LeaveHandler) Update(c *gin.Context) {
	request, ok := h.ownPending(c)
	if !ok {
		return
	}

	var body leaveRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	start, end, days, err := leaveSpan(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		clash, err := overlapping(tx, request.UserID, start, end, request.ID)
		if err != nil {
			return err
		}
		if clash {
			return errLeaveOverlap
		}
		res := tx.Model(&models.LeaveRequest{}).
			Where("id = ? AND status = ?", request.ID, models.LeavePending).
			Updates(map[string]interface{}{
				"leave_type": body.LeaveType,
				"start_date": start,
				"end_date":   end,
				"days":       days,
				"reason":     body.Reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errLeaveNotPending
		}
		return nil
	})
	switch {
	case errors.Is(err, errLeaveOverlap), errors.Is(err, errLeaveNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		serverError(c, h.Log, "update failed", err)
		return
	}

	request.LeaveType = body.LeaveType
	request.StartDate = start
	request.EndDate = end
	request.Days = days
	request.Reason = body.Reason
	c.JSON(http.StatusOK, request)
}

func (h *LeaveHandler) Process(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var body processLeaveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	var request models.LeaveRequest
	if err := h.DB.Preload("User").First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "leave not found"})
			return
		}
		serverError(c, h.Log, "failed to load leave", err)
		return
	}
	if request.Status != models.LeavePending {
		c.JSON(http.StatusConflict, gin.H{"error": errLeaveNotPending.Error()})
		return
	}

	adminID := middleware.UserID(c)
	processedAt := h.now()
	res := h.DB.Model(&models.LeaveRequest{}).
		Where("id = ? AND status = ?", request.ID, models.LeavePending).
		Updates(map[string]interface{}{
			"status":        body.Status,
			"admin_comment": body.AdminComment,
			"processed_by":  adminID,
			"processed_at":  processedAt,
		})
	if res.Error != nil {
		serverError(c, h.Log, "update failed", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": errLeaveNotPending.Error()})
		return
	}

	request.Status = body.Status
	request.AdminComment = body.AdminComment
	request.ProcessedBy = &adminID
	request.ProcessedAt = &processedAt

	if request.User != nil {
		notify(c, h.Mail, h.Log, email.LeaveProcessedMessage(request.User.Email, request.User.FirstName,
			request.LeaveType, request.StartDate, request.EndDate, request.Status, request.AdminComment))
	}
	c.JSON(http.StatusOK, request)
}

func (h *LeaveHandler) Delete(c *gin.Context) {
	request, ok := h.ownPending(c)
	if !ok {
		return
	}
	if err := h.DB.Delete(&models.LeaveRequest{}, "id = ?", request.ID).Error; err != nil {
		serverError(c, h.Log, "delete failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
