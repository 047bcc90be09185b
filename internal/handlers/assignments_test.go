package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

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

type assignmentFixture struct {
	r      *gin.Engine
	db     *gorm.DB
	mail   *email.ConsoleSender
	clock  *clock
	upload string
}

func newAssignmentFixture(t *testing.T) assignmentFixture {
	db := testutil.OpenDB(t)
	mail := email.NewConsoleSender(nil, "TMS <noreply@x.test>")
	dir := t.TempDir()
	clk := &clock{t: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}

	h := NewAssignmentHandler(db, mail, email.Links{FrontendURL: "https://tms.x.test"}, dir, time.UTC, logger.Discard())
	h.now = clk.now

	staff := middleware.RequireAnyRole(models.StaffRoles...)
	r := gin.New()
	auth := r.Group("/", middleware.AuthRequired(testSecret))
	auth.POST("/assignments", staff, h.Create)
	auth.GET("/assignments", staff, h.List)
	auth.GET("/assignments/my", h.Mine)
	auth.GET("/assignments/submissions", staff, h.Submissions)
	auth.GET("/assignments/files/:filename", h.Download)
	auth.GET("/assignments/:id", h.Get)
	auth.PUT("/assignments/:id", staff, h.Update)
	auth.DELETE("/assignments/:id", staff, h.Delete)
	auth.POST("/assignments/:id/submit", h.Submit)
	auth.POST("/assignments/:id/grade", staff, h.Grade)
	return assignmentFixture{r: r, db: db, mail: mail, clock: clk, upload: dir}
}

func (f assignmentFixture) submit(t *testing.T, id string, token string, filename string, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, form.WriteField("submissionComment", "done"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/assignments/"+id+"/submit", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

type mineEntry struct {
	ID         string                 `json:"id"`
	Title      string                 `json:"title"`
	Status     string                 `json:"status"`
	LateDays   int                    `json:"lateDays"`
	Submission *models.AssignmentUser `json:"submission"`
}

func TestAssignmentWorkflow(t *testing.T) {
	f := newAssignmentFixture(t)
	mentor := newAccount(t, f.db, models.RoleTechnicalMentor, "mentor@x.test")
	trainee := newAccount(t, f.db, models.RoleTrainee, "sam@x.test")

	w := doJSON(t, f.r, http.MethodPost, "/assignments", gin.H{
		"title":          "REST API",
		"description":    "Build a small API",
		"specialization": "Software Development",
		"dueDate":        "2026-02-12",
		"userEmails":     []string{"SAM@x.test", "sam@x.test", "ghost@x.test"},
	}, trainee.Token)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, f.r, http.MethodPost, "/assignments", gin.H{
		"title":          "REST API",
		"description":    "Build a small API",
		"specialization": "Software Development",
		"dueDate":        "2026-02-12",
		"userEmails":     []string{"SAM@x.test", "sam@x.test", "ghost@x.test"},
	}, mentor.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var assignment models.Assignment
	decode(t, w, &assignment)
	require.Len(t, assignment.Assignees, 1)
	assert.Equal(t, "mentor@x.test", assignment.CreatedByEmail)
	assert.Equal(t, time.Date(2026, 2, 12, 23, 59, 59, 0, time.UTC), assignment.DueDate.UTC())

	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"sam@x.test"}, sent[0].To)

	w = doJSON(t, f.r, http.MethodGet, "/assignments/my", nil, trainee.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []mineEntry
	decode(t, w, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "pending", mine[0].Status)

	// two days late
	f.clock.t = time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	w = f.submit(t, assignment.ID.String(), trainee.Token, "../../etc/my report.pdf", "%PDF-1.4")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var link models.AssignmentUser
	decode(t, w, &link)
	assert.True(t, link.Submitted)
	assert.Equal(t, "done", link.SubmissionComment)
	name := filepath.Base(link.SubmissionLink)
	assert.Contains(t, name, "my_report.pdf")

	stored, err := os.ReadFile(filepath.Join(f.upload, name))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(stored))

	w = doJSON(t, f.r, http.MethodGet, "/assignments/my", nil, trainee.Token)
	decode(t, w, &mine)
	assert.Equal(t, "late", mine[0].Status)
	assert.Equal(t, 2, mine[0].LateDays)

	w = doJSON(t, f.r, http.MethodGet, "/assignments/files/"+name, nil, trainee.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4", w.Body.String())

	w = doJSON(t, f.r, http.MethodPost, "/assignments/"+assignment.ID.String()+"/grade", gin.H{"userEmail": "sam@x.test", "grade": 101}, mentor.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, f.r, http.MethodPost, "/assignments/"+assignment.ID.String()+"/grade", gin.H{"userEmail": "sam@x.test", "grade": 0, "comments": "missing tests"}, mentor.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, f.r, http.MethodGet, "/assignments/my", nil, trainee.Token)
	decode(t, w, &mine)
	assert.Equal(t, "graded", mine[0].Status)
	require.NotNil(t, mine[0].Submission.Grade)
	assert.Equal(t, 0, *mine[0].Submission.Grade)

	w = doJSON(t, f.r, http.MethodGet, "/assignments/submissions", nil, mentor.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"graded"`)
}

func TestAssignmentSubmitRequiresAssignee(t *testing.T) {
	f := newAssignmentFixture(t)
	mentor := newAccount(t, f.db, models.RoleFacilitator, "fac@x.test")
	outsider := newAccount(t, f.db, models.RoleTrainee, "outsider@x.test")

	w := doJSON(t, f.r, http.MethodPost, "/assignments", gin.H{
		"title": "Essay", "specialization": "Data", "dueDate": "2026-03-01T12:00:00Z",
	}, mentor.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var assignment models.Assignment
	decode(t, w, &assignment)

	w = f.submit(t, assignment.ID.String(), outsider.Token, "essay.txt", "hello")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, f.r, http.MethodPost, "/assignments/"+assignment.ID.String()+"/grade", gin.H{"userEmail": "outsider@x.test", "grade": 50}, mentor.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssignmentUpdateSyncsAssignees(t *testing.T) {
	f := newAssignmentFixture(t)
	mentor := newAccount(t, f.db, models.RoleCareerCoach, "coach@x.test")
	newAccount(t, f.db, models.RoleTrainee, "a@x.test")
	newAccount(t, f.db, models.RoleTrainee, "b@x.test")

	body := gin.H{"title": "CV", "specialization": "Career", "dueDate": "2026-03-01", "userEmails": []string{"a@x.test"}}
	w := doJSON(t, f.r, http.MethodPost, "/assignments", body, mentor.Token)
	require.Equal(t, http.StatusCreated, w.Code)
	var assignment models.Assignment
	decode(t, w, &assignment)

	body["userEmails"] = []string{"b@x.test"}
	body["title"] = "CV v2"
	w = doJSON(t, f.r, http.MethodPut, "/assignments/"+assignment.ID.String(), body, mentor.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &assignment)
	assert.Equal(t, "CV v2", assignment.Title)
	require.Len(t, assignment.Assignees, 1)
	assert.Equal(t, "b@x.test", assignment.Assignees[0].UserEmail)

	sent := f.mail.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, []string{"b@x.test"}, sent[1].To)

	w = doJSON(t, f.r, http.MethodDelete, "/assignments/"+assignment.ID.String(), nil, mentor.Token)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, f.r, http.MethodGet, "/assignments/"+assignment.ID.String(), nil, mentor.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssignmentDownloadRejectsTraversal(t *testing.T) {
	f := newAssignmentFixture(t)
	trainee := newAccount(t, f.db, models.RoleTrainee, "t@x.test")

	w := doJSON(t, f.r, http.MethodGet, "/assignments/files/..hidden", nil, trainee.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, f.r, http.MethodGet, "/assignments/files/missing.pdf", nil, trainee.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
