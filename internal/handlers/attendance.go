package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/attendance"
	"github.com/SummerNgcobo/parakeet/internal/config"
	"github.com/SummerNgcobo/parakeet/internal/geo"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

type AttendanceHandler struct {
	DB  *gorm.DB
	Cfg config.Config
	Log *logger.Logger
	now func() time.Time
}

type clockInRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
}

type attendanceStatus struct {
	State    attendance.State           `json:"state"`
	ClockIn  *time.Time                 `json:"clockIn"`
	ClockOut *time.Time                 `json:"clockOut"`
	Elapsed  string                     `json:"elapsed"`
	Location *models.AttendanceLocation `json:"location"`
}

var errAlreadyClockedIn = errors.New("already clocked in today")

func NewAttendanceHandler(db *gorm.DB, cfg config.Config, log *logger.Logger) *AttendanceHandler {
	return &AttendanceHandler{DB: db, Cfg: cfg, Log: log, now: time.Now}
}

func (h *AttendanceHandler) clock() time.Time {
	return h.now().In(h.Cfg.Location())
}

func (h *AttendanceHandler) ClockIn(c *gin.Context) {
	var req clockInRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
			return
		}
	}

	office, err := loadOffice(h.DB, h.Cfg)
	if err != nil {
		serverError(c, h.Log, "clock-in failed", err)
		return
	}

	fix, err := geo.Check(office, geo.NewReading(req.Latitude, req.Longitude, req.Accuracy))
	if err != nil {
		var outOfRange *geo.OutOfRangeError
		switch {
		case errors.As(err, &outOfRange):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":    "you are not within the office premises",
				"distance": outOfRange.Rounded(),
				"radius":   office.RadiusMeters,
			})
		case errors.Is(err, geo.ErrLocationUnavailable):
			c.JSON(http.StatusBadRequest, gin.H{"error": "location is required to clock in"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location"})
		}
		return
	}

	userID := middleware.UserID(c)
	now := h.clock()
	record := models.Attendance{
		UserID:   userID,
		WorkDate: attendance.WorkDate(now),
		ClockIn:  now,
		Location: datatypes.NewJSONType(models.AttendanceLocation{
			Distance:    fix.Distance,
			Accuracy:    fix.Accuracy,
			Coordinates: models.Coordinates{Lat: fix.Point.Lat, Lng: fix.Point.Lng},
		}),
		Verified: true,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		existing, err := attendance.Today(tx, userID, now)
		if err != nil {
			return err
		}
		if !attendance.CanClockIn(attendance.DayState(existing)) {
			return errAlreadyClockedIn
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		if errors.Is(err, errAlreadyClockedIn) || errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": errAlreadyClockedIn.Error()})
			return
		}
		serverError(c, h.Log, "clock-in failed", err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *AttendanceHandler) ClockOut(c *gin.Context) {
	userID := middleware.UserID(c)
	now := h.clock()

	record, err := attendance.Today(h.DB, userID, now)
	if err != nil {
		serverError(c, h.Log, "clock-out failed", err)
		return
	}
	if state := attendance.DayState(record); !attendance.CanClockOut(state) {
		if state == attendance.StateReady {
			c.JSON(http.StatusNotFound, gin.H{"error": "no open attendance for today"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "already clocked out today"})
		return
	}

	clockOut := attendance.ShiftEnd(record.ClockIn, now, h.Cfg.MaxShiftHours)
	res := h.DB.Model(&models.Attendance{}).
		Where("id = ? AND clock_out IS NULL", record.ID).
		Update("clock_out", clockOut)
	if res.Error != nil {
		serverError(c, h.Log, "clock-out failed", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "already clocked out today"})
		return
	}

	record.ClockOut = &clockOut
	record.FillDuration()
	c.JSON(http.StatusOK, record)
}

func (h *AttendanceHandler) Status(c *gin.Context) {
	now := h.clock()
	record, err := attendance.Today(h.DB, middleware.UserID(c), now)
	if err != nil {
		serverError(c, h.Log, "failed to load attendance", err)
		return
	}

	status := attendanceStatus{
		State:   attendance.DayState(record),
		Elapsed: attendance.FormatClock(attendance.Elapsed(record, now)),
	}
	if record != nil {
		status.ClockIn = &record.ClockIn
		status.ClockOut = record.ClockOut
		location := record.Location.Data()
		status.Location = &location
	}
	c.JSON(http.StatusOK, status)
}

func (h *AttendanceHandler) Mine(c *gin.Context) {
	h.history(c, middleware.UserID(c))
}

// ForUser lists a user's history by email. Trainees may only read their own.
func (h *AttendanceHandler) ForUser(c *gin.Context) {
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
	h.history(c, user.ID)
}

func (h *AttendanceHandler) history(c *gin.Context, userID uuid.UUID) {
	start, end, err := dateRange(c, h.Cfg.Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := h.DB.Where("user_id = ?", userID)
	query = applyClockInRange(query, start, end)

	var records []models.Attendance
	if err := query.Order("clock_in desc").Find(&records).Error; err != nil {
		serverError(c, h.Log, "could not load attendance", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *AttendanceHandler) List(c *gin.Context) {
	start, end, err := dateRange(c, h.Cfg.Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := h.DB.Preload("User")
	if raw := c.Query("userId"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
			return
		}
		query = query.Where("user_id = ?", userID)
	}
	query = applyClockInRange(query, start, end)

	limit, offset := pagination(c, 200, 1000)
	var records []models.Attendance
	if err := query.Order("clock_in desc").Limit(limit).Offset(offset).Find(&records).Error; err != nil {
		serverError(c, h.Log, "could not load attendance", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *AttendanceHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	res := h.DB.Delete(&models.Attendance{}, "id = ?", id)
	if res.Error != nil {
		serverError(c, h.Log, "delete failed", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "attendance not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func applyClockInRange(query *gorm.DB, start, end *time.Time) *gorm.DB {
	if start != nil {
		query = query.Where("clock_in >= ?", *start)
	}
	if end != nil {
		query = query.Where("clock_in <= ?", *end)
	}
	return query
}
