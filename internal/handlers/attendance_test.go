package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
	"github.com/SummerNgcobo/parakeet/internal/testutil"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func attendanceRouter(t *testing.T) (*gin.Engine, *gorm.DB, *clock) {
	db := testutil.OpenDB(t)
	cfg := testConfig()
	clk := &clock{t: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}

	h := NewAttendanceHandler(db, cfg, logger.Discard())
	h.now = clk.now
	settings := NewSettingsHandler(db, cfg, logger.Discard())

	r := gin.New()
	auth := r.Group("/", middleware.AuthRequired(testSecret))
	auth.POST("/attendance/clock-in", h.ClockIn)
	auth.POST("/attendance/clock-out", h.ClockOut)
	auth.GET("/attendance/status", h.Status)
	auth.GET("/attendance/me", h.Mine)
	auth.GET("/attendance/user/:email", h.ForUser)
	auth.GET("/attendance", middleware.RequireAnyRole(models.RoleAdmin, models.RoleFacilitator), h.List)
	auth.DELETE("/attendance/:id", middleware.RequireAnyRole(models.RoleAdmin), h.Delete)
	auth.GET("/settings/office", settings.GetOffice)
	auth.PUT("/settings/office", middleware.RequireAnyRole(models.RoleAdmin), settings.UpdateOffice)
	return r, db, clk
}

func nearOffice() gin.H {
	return gin.H{"latitude": -26.1031, "longitude": 28.05264119446373, "accuracy": 12.4}
}

func TestClockInLifecycle(t *testing.T) {
	r, db, clk := attendanceRouter(t)
	trainee := newAccount(t, db, models.RoleTrainee, "thandi@x.test")

	w := doJSON(t, r, http.MethodGet, "/attendance/status", nil, trainee.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var status attendanceStatus
	decode(t, w, &status)
	assert.Equal(t, "ready", string(status.State))
	assert.Equal(t, "00:00:00", status.Elapsed)

	w = doJSON(t, r, http.MethodPost, "/attendance/clock-in", nearOffice(), trainee.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var record models.Attendance
	decode(t, w, &record)
	assert.True(t, record.Verified)
	assert.Equal(t, "2026-03-02", record.WorkDate)
	assert.Equal(t, 12, record.Location.Data().Accuracy)
	assert.InDelta(t, 103, record.Location.Data().Distance, 2)

	clk.t = clk.t.Add(90*time.Minute + 5*time.Second)
	w = doJSON(t, r, http.MethodGet, "/attendance/status", nil, trainee.Token)
	decode(t, w, &status)
	assert.Equal(t, "working", string(status.State))
	assert.Equal(t, "01:30:05", status.Elapsed)

	w = doJSON(t, r, http.MethodPost, "/attendance/clock-in", nearOffice(), trainee.Token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/attendance/clock-out", nil, trainee.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &record)
	require.NotNil(t, record.Duration)
	assert.Equal(t, int64(5405), *record.Duration)

	w = doJSON(t, r, http.MethodPost, "/attendance/clock-out", nil, trainee.Token)
	assert.Equal(t, http.StatusConflict, w.Code)

	// no second session on the same day
	w = doJSON(t, r, http.MethodPost, "/attendance/clock-in", nearOffice(), trainee.Token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodGet, "/attendance/status", nil, trainee.Token)
	decode(t, w, &status)
	assert.Equal(t, "ended", string(status.State))

	clk.t = clk.t.Add(24 * time.Hour)
	w = doJSON(t, r, http.MethodPost, "/attendance/clock-in", nearOffice(), trainee.Token)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestClockInRejectsBadLocation(t *testing.T) {
	r, db, _ := attendanceRouter(t)
	trainee := newAccount(t, db, models.RoleTrainee, "sipho@x.test")

	w := doJSON(t, r, http.MethodPost, "/attendance/clock-in", gin.H{"latitude": -26.114, "longitude": 28.0526}, trainee.Token)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		Error    string `json:"error"`
		Distance int    `json:"distance"`
	}
	decode(t, w, &body)
	assert.Greater(t, body.Distance, 150)

	w = doJSON(t, r, http.MethodPost, "/attendance/clock-in", gin.H{"accuracy": 5}, trainee.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "location is required")

	w = doJSON(t, r, http.MethodPost, "/attendance/clock-in", gin.H{"latitude": 120, "longitude": 28}, trainee.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Attendance{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestClockOutWithoutSession(t *testing.T) {
	r, db, _ := attendanceRouter(t)
	trainee := newAccount(t, db, models.RoleTrainee, "lebo@x.test")

	w := doJSON(t, r, http.MethodPost, "/attendance/clock-out", nil, trainee.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClockOutCapsLongShift(t *testing.T) {
	r, db, clk := attendanceRouter(t)
	trainee := newAccount(t, db, models.RoleTrainee, "naledi@x.test")
	start := clk.t

	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/attendance/clock-in", nearOffice(), trainee.Token).Code)
	clk.t = start.Add(15 * time.Hour)

	w := doJSON(t, r, http.MethodPost, "/attendance/clock-out", nil, trainee.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var record models.Attendance
	decode(t, w, &record)
	require.NotNil(t, record.ClockOut)
	assert.True(t, record.ClockOut.Equal(start.Add(12*time.Hour)))
}

func TestOfficeSettingsOverrideConfig(t *testing.T) {
	r, db, _ := attendanceRouter(t)
	admin := newAccount(t, db, models.RoleAdmin, "admin@x.test")
	trainee := newAccount(t, db, models.RoleTrainee, "kagiso@x.test")

	w := doJSON(t, r, http.MethodPut, "/settings/office", gin.H{"latitude": -26.2, "longitude": 28.1, "radius": 50, "address": "Elsewhere"}, trainee.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPut, "/settings/office", gin.H{"latitude": -26.2, "longitude": 28.1, "radius": 50, "address": "Elsewhere"}, admin.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/settings/office", nil, trainee.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Elsewhere")
	assert.Contains(t, w.Body.String(), `"radius":50`)

	// the old office is now out of range
	w = doJSON(t, r, http.MethodPost, "/attendance/clock-in", nearOffice(), trainee.Token)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, r, http.MethodPost, "/attendance/clock-in", gin.H{"latitude": -26.2, "longitude": 28.1, "accuracy": 3}, trainee.Token)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAttendanceListingAccess(t *testing.T) {
	r, db, _ := attendanceRouter(t)
	admin := newAccount(t, db, models.RoleAdmin, "boss@x.test")
	one := newAccount(t, db, models.RoleTrainee, "one@x.test")
	two := newAccount(t, db, models.RoleTrainee, "two@x.test")

	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/attendance/clock-in", nearOffice(), one.Token).Code)
	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/attendance/clock-in", nearOffice(), two.Token).Code)

	w := doJSON(t, r, http.MethodGet, "/attendance/user/two@x.test", nil, one.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/attendance/me?startDate=2026-03-02&endDate=2026-03-02", nil, one.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Attendance
	decode(t, w, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, one.User.ID, mine[0].UserID)

	w = doJSON(t, r, http.MethodGet, "/attendance/me?startDate=2026-03-03", nil, one.Token)
	decode(t, w, &mine)
	assert.Empty(t, mine)

	w = doJSON(t, r, http.MethodGet, "/attendance", nil, one.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/attendance?userId="+two.User.ID.String(), nil, admin.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Attendance
	decode(t, w, &all)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].User)
	assert.Equal(t, "two@x.test", all[0].User.Email)

	w = doJSON(t, r, http.MethodDelete, "/attendance/"+all[0].ID.String(), nil, admin.Token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/attendance/"+all[0].ID.String(), nil, admin.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
