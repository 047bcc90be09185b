package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/SummerNgcobo/parakeet/internal/calendar"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
)

const oauthStateCookie = "TMS-oauth-state"

// Calendar is the meeting backend used by CalendarHandler.
type Calendar interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) error
	Upcoming(ctx context.Context, now time.Time) ([]calendar.Meeting, error)
	Create(ctx context.Context, req calendar.MeetingRequest) (calendar.Meeting, error)
	Availability(ctx context.Context, attendees []string, start, end time.Time) ([]calendar.BusySlot, error)
}

type CalendarHandler struct {
	Calendar Calendar
	Loc      *time.Location
	Secure   bool
	Log      *logger.Logger
	now      func() time.Time
}

type meetingRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	StartTime   string   `json:"startTime" binding:"required"`
	EndTime     string   `json:"endTime" binding:"required"`
	Attendees   []string `json:"attendees"`
	MeetingType string   `json:"meetingType"`
	Room        string   `json:"room"`
	SendInvites *bool    `json:"sendInvites"`
}

type availabilityRequest struct {
	Attendees []string `json:"attendees" binding:"required,min=1,dive,email"`
	StartTime string   `json:"startTime" binding:"required"`
	EndTime   string   `json:"endTime" binding:"required"`
}

func NewCalendarHandler(cal Calendar, loc *time.Location, secure bool, log *logger.Logger) *CalendarHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarHandler{Calendar: cal, Loc: loc, Secure: secure, Log: log, now: time.Now}
}

func (h *CalendarHandler) Authorize(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.Secure, true)
	c.Redirect(http.StatusFound, h.Calendar.AuthURL(state))
}

func (h *CalendarHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	if state, err := c.Cookie(oauthStateCookie); err != nil || state == "" || state != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.Secure, true)

	if err := h.Calendar.Exchange(c.Request.Context(), code); err != nil {
		h.Log.Error("calendar oauth exchange", err, nil)
		c.JSON(http.StatusBadGateway, gin.H{"error": "authorization failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "calendar authorized"})
}

func (h *CalendarHandler) respondCalendarError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, calendar.ErrNotAuthorized):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "calendar is not authorized yet"})
	case errors.Is(err, calendar.ErrMissingFields), errors.Is(err, calendar.ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.Log.Error(msg, err, map[string]interface{}{"path": c.FullPath()})
		c.JSON(http.StatusBadGateway, gin.H{"error": msg})
	}
}

func (h *CalendarHandler) Meetings(c *gin.Context) {
	meetings, err := h.Calendar.Upcoming(c.Request.Context(), h.now())
	if err != nil {
		h.respondCalendarError(c, "failed to fetch meetings", err)
		return
	}
	c.JSON(http.StatusOK, meetings)
}

func (h *CalendarHandler) CreateMeeting(c *gin.Context) {
	var req meetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": calendar.ErrMissingFields.Error()})
		return
	}
	start, err := parseTime(req.StartTime, h.Loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startTime"})
		return
	}
	end, err := parseTime(req.EndTime, h.Loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endTime"})
		return
	}

	sendInvites := true
	if req.SendInvites != nil {
		sendInvites = *req.SendInvites
	}
	meeting, err := h.Calendar.Create(c.Request.Context(), calendar.MeetingRequest{
		Title:       req.Title,
		Description: req.Description,
		Start:       start,
		End:         end,
		Attendees:   req.Attendees,
		MeetingType: req.MeetingType,
		Room:        req.Room,
		SendInvites: sendInvites,
		CreatedBy:   middleware.Email(c),
	})
	if err != nil {
		h.respondCalendarError(c, "failed to create meeting", err)
		return
	}
	c.JSON(http.StatusCreated, meeting)
}

func (h *CalendarHandler) Availability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "attendees, startTime and endTime are required"})
		return
	}
	start, err := parseTime(req.StartTime, h.Loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startTime"})
		return
	}
	end, err := parseTime(req.EndTime, h.Loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endTime"})
		return
	}

	busy, err := h.Calendar.Availability(c.Request.Context(), req.Attendees, start, end)
	if err != nil {
		h.respondCalendarError(c, "failed to check availability", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"busy": busy, "available": len(busy) == 0})
}
