package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/email"
	"github.com/SummerNgcobo/parakeet/internal/grading"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

const maxSubmissionBytes = 25 << 20

type AssignmentHandler struct {
	DB        *gorm.DB
	Mail      email.Sender
	Links     email.Links
	UploadDir string
	Loc       *time.Location
	Log       *logger.Logger
	now       func() time.Time
}

type assignmentRequest struct {
	Title          string   `json:"title" binding:"required,max=255"`
	Description    string   `json:"description"`
	Specialization string   `json:"specialization" binding:"required,max=120"`
	DueDate        string   `json:"dueDate" binding:"required"`
	UserEmails     []string `json:"userEmails" binding:"dive,email"`
}

type gradeRequest struct {
	UserEmail string `json:"userEmail" binding:"required,email"`
	Grade     *int   `json:"grade" binding:"required,min=0,max=100"`
	Comments  string `json:"comments"`
}

// assignmentView is an assignment as seen by one assignee.
type assignmentView struct {
	models.Assignment
	Submission *models.AssignmentUser `json:"submission"`
	grading.Classification
}

type submissionView struct {
	models.AssignmentUser
	grading.Classification
}

func NewAssignmentHandler(db *gorm.DB, mail email.Sender, links email.Links, uploadDir string, loc *time.Location, log *logger.Logger) *AssignmentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AssignmentHandler{DB: db, Mail: mail, Links: links, UploadDir: uploadDir, Loc: loc, Log: log, now: time.Now}
}

func normalizeEmails(list []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(list))
	for _, addr := range list {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

func (h *AssignmentHandler) bindAssignment(c *gin.Context) (assignmentRequest, time.Time, bool) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return req, time.Time{}, false
	}
	due, err := parseTime(req.DueDate, h.Loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dueDate"})
		return req, time.Time{}, false
	}
	if len(req.DueDate) == len("2006-01-02") {
		due = due.AddDate(0, 0, 1).Add(-time.Second)
	}
	req.UserEmails = normalizeEmails(req.UserEmails)
	return req, due, true
}

func (h *AssignmentHandler) Create(c *gin.Context) {
	req, due, ok := h.bindAssignment(c)
	if !ok {
		return
	}

	assignment := models.Assignment{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Specialization: req.Specialization,
		DueDate:        due,
		CreatedByID:    middleware.UserID(c),
		CreatedByEmail: middleware.Email(c),
	}

	var added []models.User
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}
		var err error
		added, err = linkAssignees(tx, assignment.ID, req.UserEmails)
		return err
	})
	if err != nil {
		serverError(c, h.Log, "create failed", err)
		return
	}

	h.mailAssignees(c, assignment, added)
	h.respondAssignment(c, http.StatusCreated, assignment.ID)
}

// linkAssignees links every known user in emails to the assignment and
// returns the users that were linked. Unknown emails are ignored.
func linkAssignees(tx *gorm.DB, assignmentID uuid.UUID, emails []string) ([]models.User, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := tx.Where("email IN ?", emails).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, user := range users {
		link := models.AssignmentUser{AssignmentID: assignmentID, UserID: user.ID, UserEmail: user.Email}
		if err := tx.Create(&link).Error; err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (h *AssignmentHandler) mailAssignees(c *gin.Context, assignment models.Assignment, users []models.User) {
	for _, user := range users {
		notify(c, h.Mail, h.Log, email.AssignmentMessage(h.Links, user.Email, assignment.Title, assignment.DueDate, assignment.CreatedByEmail))
	}
}

func (h *AssignmentHandler) Update(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	req, due, ok := h.bindAssignment(c)
	if !ok {
		return
	}

	var assignment models.Assignment
	if err := h.DB.Preload("Assignees").First(&assignment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "assignment not found"})
			return
		}
		serverError(c, h.Log, "failed to load assignment", err)
		return
	}

	current := map[string]bool{}
	for _, link := range assignment.Assignees {
		current[strings.ToLower(link.UserEmail)] = true
	}
	wanted := map[string]bool{}
	var toAdd []string
	for _, addr := range req.UserEmails {
		wanted[addr] = true
		if !current[addr] {
			toAdd = append(toAdd, addr)
		}
	}
	var toRemove []uuid.UUID
	for _, link := range assignment.Assignees {
		if !wanted[strings.ToLower(link.UserEmail)] {
			toRemove = append(toRemove, link.ID)
		}
	}

	assignment.Title = strings.TrimSpace(req.Title)
	assignment.Description = req.Description
	assignment.Specialization = req.Specialization
	assignment.DueDate = due

	var added []models.User
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Assignment{}).Where("id = ?", assignment.ID).Updates(map[string]interface{}{
			"title":          assignment.Title,
			"description":    assignment.Description,
			"specialization": assignment.Specialization,
			"due_date":       assignment.DueDate,
		}).Error; err != nil {
			return err
		}
		if len(toRemove) > 0 {
			if err := tx.Where("id IN ?", toRemove).Delete(&models.AssignmentUser{}).Error; err != nil {
				return err
			}
		}
		var err error
		added, err = linkAssignees(tx, assignment.ID, toAdd)
		return err
	})
	if err != nil {
		serverError(c, h.Log, "update failed", err)
		return
	}

	h.mailAssignees(c, assignment, added)
	h.respondAssignment(c, http.StatusOK, assignment.ID)
}

func (h *AssignmentHandler) respondAssignment(c *gin.Context, status int, id uuid.UUID) {
	var assignment models.Assignment
	if err := h.DB.Preload("Assignees").First(&assignment, "id = ?", id).Error; err != nil {
		serverError(c, h.Log, "failed to load assignment", err)
		return
	}
	c.JSON(status, assignment)
}

func (h *AssignmentHandler) List(c *gin.Context) {
	query := h.DB.Preload("Assignees")
	if spec := c.Query("specialization"); spec != "" {
		query = query.Where("specialization = ?", spec)
	}
	var assignments []models.Assignment
	if err := query.Order("due_date asc").Find(&assignments).Error; err != nil {
		serverError(c, h.Log, "could not load assignments", err)
		return
	}
	c.JSON(http.StatusOK, assignments)
}

func (h *AssignmentHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var assignment models.Assignment
	if err := h.DB.Preload("Assignees.User").First(&assignment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "assignment not found"})
			return
		}
		serverError(c, h.Log, "failed to load assignment", err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

func (h *AssignmentHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var deleted int64
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ?", id).Delete(&models.AssignmentUser{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Assignment{}, "id = ?", id)
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		serverError(c, h.Log, "delete failed", err)
		return
	}
	if deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "assignment not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// Mine lists the caller's assignments with their own submission state.
func (h *AssignmentHandler) Mine(c *gin.Context) {
	var links []models.AssignmentUser
	if err := h.DB.Preload("Assignment").
		Where("user_id = ?", middleware.UserID(c)).
		Find(&links).Error; err != nil {
		serverError(c, h.Log, "could not load assignments", err)
		return
	}

	views := make([]assignmentView, 0, len(links))
	for i := range links {
		link := links[i]
		if link.Assignment == nil {
			continue
		}
		assignment := *link.Assignment
		link.Assignment = nil
		views = append(views, assignmentView{
			Assignment:     assignment,
			Submission:     &link,
			Classification: grading.Classify(link.SubmittedAt, assignment.DueDate, link.Grade),
		})
	}
	c.JSON(http.StatusOK, views)
}

func (h *AssignmentHandler) Submit(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var link models.AssignmentUser
	if err := h.DB.Where("assignment_id = ? AND user_id = ?", id, middleware.UserID(c)).Take(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "assignment not found for this user"})
			return
		}
		serverError(c, h.Log, "submit failed", err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSubmissionBytes)
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	now := h.now()
	name := fmt.Sprintf("%d_%s", now.UnixMilli(), safeFileName(file.Filename))
	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		serverError(c, h.Log, "submit failed", err)
		return
	}
	if err := c.SaveUploadedFile(file, filepath.Join(h.UploadDir, name)); err != nil {
		serverError(c, h.Log, "submit failed", err)
		return
	}

	updates := map[string]interface{}{
		"submitted":          true,
		"submission_link":    "/assignments/files/" + name,
		"submission_comment": c.PostForm("submissionComment"),
		"submitted_at":       now,
	}
	if err := h.DB.Model(&models.AssignmentUser{}).Where("id = ?", link.ID).Updates(updates).Error; err != nil {
		serverError(c, h.Log, "submit failed", err)
		return
	}
	if err := h.DB.First(&link, "id = ?", link.ID).Error; err != nil {
		serverError(c, h.Log, "submit failed", err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func safeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == 0:
			return -1
		case r == ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}

func (h *AssignmentHandler) Grade(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !grading.ValidGrade(*req.Grade) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userEmail and a grade between 0 and 100 are required"})
		return
	}

	res := h.DB.Model(&models.AssignmentUser{}).
		Where("assignment_id = ? AND user_email = ?", id, strings.ToLower(strings.TrimSpace(req.UserEmail))).
		Updates(map[string]interface{}{
			"grade":     *req.Grade,
			"comments":  req.Comments,
			"graded_at": h.now(),
		})
	if res.Error != nil {
		serverError(c, h.Log, "grade failed", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "assignment not found for this user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "graded"})
}

func (h *AssignmentHandler) Submissions(c *gin.Context) {
	var links []models.AssignmentUser
	if err := h.DB.Preload("Assignment").Preload("User").
		Where("submitted = ?", true).
		Order("submitted_at desc").
		Find(&links).Error; err != nil {
		serverError(c, h.Log, "could not load submissions", err)
		return
	}

	views := make([]submissionView, 0, len(links))
	for _, link := range links {
		view := submissionView{AssignmentUser: link}
		if link.Assignment != nil {
			view.Classification = grading.Classify(link.SubmittedAt, link.Assignment.DueDate, link.Grade)
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

func (h *AssignmentHandler) Download(c *gin.Context) {
	name := c.Param("filename")
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
		return
	}
	path := filepath.Join(h.UploadDir, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.FileAttachment(path, name)
}
