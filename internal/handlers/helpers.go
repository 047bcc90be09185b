package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/email"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

// serverError logs err and answers 500 with msg.
func serverError(c *gin.Context, log *logger.Logger, msg string, err error) {
	log.Error(msg, err, map[string]interface{}{"path": c.FullPath(), "method": c.Request.Method})
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

var errInvalidTime = errors.New("invalid time format")

// parseTime accepts RFC3339, a bare date, or a local date-time without zone.
// Zone-less values are read in loc.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed, nil
	}
	localFormats := []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, format := range localFormats {
		if parsed, err := time.ParseInLocation(format, value, loc); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errInvalidTime
}

// dateRange reads the startDate and endDate query parameters. A bare
// endDate covers the whole of that day.
func dateRange(c *gin.Context, loc *time.Location) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if raw := c.Query("startDate"); raw != "" {
		parsed, err := parseTime(raw, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid startDate")
		}
		start = &parsed
	}
	if raw := c.Query("endDate"); raw != "" {
		parsed, err := parseTime(raw, loc)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid endDate")
		}
		if len(raw) == len("2006-01-02") {
			parsed = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		end = &parsed
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, fmt.Errorf("endDate must not be before startDate")
	}
	return start, end, nil
}

func pagination(c *gin.Context, defaultLimit int, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := parsePositive(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := parsePositive(raw); err == nil {
			offset = n
		}
	}
	return limit, offset
}

func parsePositive(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid number")
	}
	return n, nil
}

// notify sends msg and logs a failure. Mail problems never fail the request.
func notify(c *gin.Context, mail email.Sender, log *logger.Logger, msg email.Message) {
	if mail == nil || !msg.HasRecipients() {
		return
	}
	if err := mail.Send(c.Request.Context(), msg); err != nil {
		log.Error("sending mail", err, map[string]interface{}{"subject": msg.Subject, "to": msg.To})
	}
}

// canReadUser reports whether the caller may read data owned by email.
// Staff read anyone; trainees only themselves.
func canReadUser(c *gin.Context, addr string) bool {
	if middleware.HasRole(c, models.StaffRoles...) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(addr), middleware.Email(c))
}

func findUserByEmail(db *gorm.DB, addr string) (models.User, error) {
	var user models.User
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(addr))).Take(&user).Error
	return user, err
}
