package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/email"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
	"github.com/SummerNgcobo/parakeet/internal/testutil"
)

func leaveRouter(t *testing.T) (*gin.Engine, *gorm.DB, *email.ConsoleSender) {
	db := testutil.OpenDB(t)
	mail := email.NewConsoleSender(nil, "TMS <noreply@x.test>")
	h := NewLeaveHandler(db, mail, logger.Discard())

	r := gin.New()
	auth := r.Group("/", middleware.AuthRequired(testSecret))
	auth.POST("/leave", middleware.RequireAnyRole(models.RoleTrainee), h.Create)
	auth.GET("/leave/me", h.Mine)
	auth.GET("/leave/user/:email", h.ForUser)
	auth.GET("/leave", middleware.RequireAnyRole(models.RoleAdmin), h.List)
	auth.PUT("/leave/:id", h.Update)
	auth.PATCH("/leave/:id/process", middleware.RequireAnyRole(models.RoleAdmin), h.Process)
	auth.DELETE("/leave/:id", h.Delete)
	return r, db, mail
}

func leaveBody(leaveType, start, end string) gin.H {
	return gin.H{"leaveType": leaveType, "startDate": start, "endDate": end, "reason": "clinic visit"}
}

func TestLeaveSubmitNotifiesAdmins(t *testing.T) {
	r, db, mail := leaveRouter(t)
	newAccount(t, db, models.RoleAdmin, "admin@x.test")
	trainee := newAccount(t, db, models.RoleTrainee, "ayanda@x.test")

	w := doJSON(t, r, http.MethodPost, "/leave", leaveBody(models.LeaveSick, "2026-04-06", "2026-04-08"), trainee.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var request models.LeaveRequest
	decode(t, w, &request)
	assert.Equal(t, 3, request.Days)
	assert.Equal(t, models.LeavePending, request.Status)

	sent := mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"admin@x.test"}, sent[0].To)
}

func TestLeaveRejectsBadInput(t *testing.T) {
	r, db, _ := leaveRouter(t)
	trainee := newAccount(t, db, models.RoleTrainee, "zola@x.test")
	staff := newAccount(t, db, models.RoleFacilitator, "fac@x.test")

	w := doJSON(t, r, http.MethodPost, "/leave", leaveBody("Holiday", "2026-04-06", "2026-04-08"), trainee.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/leave", leaveBody(models.LeaveFamily, "2026-04-08", "2026-04-06"), trainee.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/leave", leaveBody(models.LeaveFamily, "06/04/2026", "2026-04-06"), trainee.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/leave", leaveBody(models.LeaveFamily, "2026-04-06", "2026-04-06"), staff.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLeaveOverlapConflicts(t *testing.T) {
	r, db, _ := leaveRouter(t)
	trainee := newAccount(t, db, models.RoleTrainee, "mpho@x.test")

	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/leave", leaveBody(models.LeavePersonal, "2026-05-04", "2026-05-06"), trainee.Token).Code)

	w := doJSON(t, r, http.MethodPost, "/leave", leaveBody(models.LeaveSick, "2026-05-06", "2026-05-07"), trainee.Token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/leave", leaveBody(models.LeaveSick, "2026-05-07", "2026-05-07"), trainee.Token)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestLeaveProcessing(t *testing.T) {
	r, db, mail := leaveRouter(t)
	admin := newAccount(t, db, models.RoleAdmin, "admin@x.test")
	trainee := newAccount(t, db, models.RoleTrainee, "lwazi@x.test")

	w := doJSON(t, r, http.MethodPost, "/leave", leaveBody(models.LeaveAdHoc, "2026-06-01", "2026-06-01"), trainee.Token)
	require.Equal(t, http.StatusCreated, w.Code)
	var request models.LeaveRequest
	decode(t, w, &request)
	path := "/leave/" + request.ID.String()

	w = doJSON(t, r, http.MethodPatch, path+"/process", gin.H{"status": "Approved"}, trainee.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPatch, path+"/process", gin.H{"status": "Maybe"}, admin.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPatch, path+"/process", gin.H{"status": "Rejected", "adminComment": "exam week"}, admin.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &request)
	assert.Equal(t, models.LeaveRejected, request.Status)
	require.NotNil(t, request.ProcessedBy)
	assert.Equal(t, admin.User.ID, *request.ProcessedBy)

	sent := mail.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, []string{"lwazi@x.test"}, sent[1].To)

	w = doJSON(t, r, http.MethodPatch, path+"/process", gin.H{"status": "Approved"}, admin.Token)
	assert.Equal(t, http.StatusConflict, w.Code)

	// processed requests are locked for the owner
	w = doJSON(t, r, http.MethodPut, path, leaveBody(models.LeaveAdHoc, "2026-06-02", "2026-06-02"), trainee.Token)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doJSON(t, r, http.MethodDelete, path, nil, trainee.Token)
	assert.Equal(t, http.StatusConflict, w.Code)

	// rejected leave does not block the same dates
	w = doJSON(t, r, http.MethodPost, "/leave", leaveBody(models.LeaveAdHoc, "2026-06-01", "2026-06-01"), trainee.Token)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/leave?status=Rejected", nil, admin.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.LeaveRequest
	decode(t, w, &listed)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].User)
	assert.Equal(t, "lwazi@x.test", listed[0].User.Email)
}

func TestLeaveOwnerEditsPending(t *testing.T) {
	r, db, _ := leaveRouter(t)
	owner := newAccount(t, db, models.RoleTrainee, "owner@x.test")
	other := newAccount(t, db, models.RoleTrainee, "other@x.test")

	w := doJSON(t, r, http.MethodPost, "/leave", leaveBody(models.LeaveSick, "2026-07-01", "2026-07-01"), owner.Token)
	require.Equal(t, http.StatusCreated, w.Code)
	var request models.LeaveRequest
	decode(t, w, &request)
	path := "/leave/" + request.ID.String()

	w = doJSON(t, r, http.MethodPut, path, leaveBody(models.LeaveSick, "2026-07-01", "2026-07-03"), other.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPut, path, leaveBody(models.LeaveFamily, "2026-07-01", "2026-07-03"), owner.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &request)
	assert.Equal(t, 3, request.Days)
	assert.Equal(t, models.LeaveFamily, request.LeaveType)

	w = doJSON(t, r, http.MethodGet, "/leave/user/owner@x.test", nil, other.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, path, nil, owner.Token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/leave/me", nil, owner.Token)
	var mine []models.LeaveRequest
	decode(t, w, &mine)
	assert.Empty(t, mine)
}
