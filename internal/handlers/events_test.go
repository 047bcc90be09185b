package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
	"github.com/SummerNgcobo/parakeet/internal/testutil"
)

func eventsRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	db := testutil.OpenDB(t)
	h := NewEventHandler(db, logger.Discard())

	staff := middleware.RequireAnyRole(models.StaffRoles...)
	r := gin.New()
	events := r.Group("/api/events", middleware.AuthRequired(testSecret))
	events.GET("", h.List)
	events.POST("", staff, h.Create)
	events.GET("/user/:email", h.ForUser)
	events.GET("/:id", h.Get)
	events.PUT("/:id", staff, h.Update)
	events.DELETE("/:id", staff, h.Delete)
	events.POST("/:id/attendance", h.RSVP)
	return r, db
}

func eventBody(title, date string) gin.H {
	return gin.H{"title": title, "date": date, "time": "14:30", "location": "Boardroom", "type": models.EventNetworking}
}

func TestEventCRUD(t *testing.T) {
	r, db := eventsRouter(t)
	coach := newAccount(t, db, models.RoleCareerCoach, "coach@x.test")
	trainee := newAccount(t, db, models.RoleTrainee, "t@x.test")

	w := doJSON(t, r, http.MethodPost, "/api/events", eventBody("Mixer", "2026-05-01"), trainee.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	bad := eventBody("Mixer", "2026-05-01")
	bad["type"] = "party"
	w = doJSON(t, r, http.MethodPost, "/api/events", bad, coach.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad = eventBody("Mixer", "01/05/2026")
	w = doJSON(t, r, http.MethodPost, "/api/events", bad, coach.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/events", eventBody("Mixer", "2026-05-01"), coach.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var event models.Event
	decode(t, w, &event)

	update := eventBody("Mixer (moved)", "2026-05-02")
	update["time"] = "16:00"
	w = doJSON(t, r, http.MethodPut, "/api/events/"+event.ID.String(), update, coach.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/events/"+event.ID.String(), nil, trainee.Token)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &event)
	assert.Equal(t, "Mixer (moved)", event.Title)
	assert.Equal(t, "16:00", event.Time)

	w = doJSON(t, r, http.MethodGet, "/api/events?type=training", nil, trainee.Token)
	var listed []models.Event
	decode(t, w, &listed)
	assert.Empty(t, listed)

	w = doJSON(t, r, http.MethodDelete, "/api/events/"+event.ID.String(), nil, coach.Token)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/events/"+event.ID.String(), nil, trainee.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type rsvpResponse struct {
	Attendance models.EventAttendance `json:"attendance"`
}

func TestEventRSVPOverwrites(t *testing.T) {
	r, db := eventsRouter(t)
	coach := newAccount(t, db, models.RoleFacilitator, "fac@x.test")
	trainee := newAccount(t, db, models.RoleTrainee, "t@x.test")
	other := newAccount(t, db, models.RoleTrainee, "o@x.test")

	var ids []string
	for _, date := range []string{"2026-05-01", "2026-06-01"} {
		w := doJSON(t, r, http.MethodPost, "/api/events", eventBody("Talk "+date, date), coach.Token)
		require.Equal(t, http.StatusCreated, w.Code)
		var event models.Event
		decode(t, w, &event)
		ids = append(ids, event.ID.String())
	}

	w := doJSON(t, r, http.MethodPost, "/api/events/"+ids[0]+"/attendance", gin.H{}, trainee.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/events/"+ids[0]+"/attendance", gin.H{"attending": true}, trainee.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first rsvpResponse
	decode(t, w, &first)
	assert.True(t, first.Attendance.Attending)

	w = doJSON(t, r, http.MethodPost, "/api/events/"+ids[0]+"/attendance", gin.H{"attending": false}, trainee.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var second rsvpResponse
	decode(t, w, &second)
	assert.False(t, second.Attendance.Attending)
	assert.Equal(t, first.Attendance.ID, second.Attendance.ID)
	w = doJSON(t, r, http.MethodPost, "/api/events/"+ids[1]+"/attendance", gin.H{"attending": true}, trainee.Token)
	require.Equal(t, http.StatusOK, w.Code)

	var rows int64
	require.NoError(t, db.Model(&models.EventAttendance{}).Where("user_id = ?", trainee.User.ID).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)

	w = doJSON(t, r, http.MethodGet, "/api/events/user/t@x.test?startDate=2026-05-01&endDate=2026-05-31", nil, trainee.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var rsvps []models.EventAttendance
	decode(t, w, &rsvps)
	require.Len(t, rsvps, 1)
	assert.False(t, rsvps[0].Attending)
	require.NotNil(t, rsvps[0].Event)
	assert.Equal(t, ids[0], rsvps[0].Event.ID.String())

	w = doJSON(t, r, http.MethodGet, "/api/events/user/t@x.test", nil, other.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/events/user/t@x.test", nil, coach.Token)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &rsvps)
	assert.Len(t, rsvps, 2)
}
