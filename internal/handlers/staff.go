package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/directory"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

type StaffHandler struct {
	DB  *gorm.DB
	Log *logger.Logger
}

type addTraineeRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	StaffID   string `json:"staffId"`
}

func NewStaffHandler(db *gorm.DB, log *logger.Logger) *StaffHandler {
	return &StaffHandler{DB: db, Log: log}
}

var (
	errTraineeNotFound  = errors.New("trainee not found")
	errTraineeAmbiguous = errors.New("more than one trainee has that name")
)

// AddTrainee links a trainee, found by first and last name, to a staff
// member of role. Admins may act for another staff member via staffId.
func (h *StaffHandler) AddTrainee(role string) gin.HandlerFunc {
	column, _ := models.StaffColumn(role)

	return func(c *gin.Context) {
		var req addTraineeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "firstName and lastName are required"})
			return
		}

		staffUserID := middleware.UserID(c)
		if req.StaffID != "" {
			if !middleware.HasRole(c, models.RoleAdmin) {
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
			parsed, err := uuid.Parse(req.StaffID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid staffId"})
				return
			}
			staffUserID = parsed
		}

		staffUser, err := directory.FindByID(h.DB, staffUserID)
		if errors.Is(err, directory.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "staff member not found"})
			return
		}
		if err != nil {
			serverError(c, h.Log, "failed to add trainee", err)
			return
		}
		if staffUser.Role != role || staffUser.SourceTable != models.StaffTable {
			c.JSON(http.StatusForbidden, gin.H{"error": "staff member is not a " + strings.ReplaceAll(role, "_", " ")})
			return
		}

		var trainee models.Trainee
		err = h.DB.Transaction(func(tx *gorm.DB) error {
			var matches []models.Trainee
			if err := tx.Where("first_name = ? AND last_name = ?", strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)).
				Limit(2).Find(&matches).Error; err != nil {
				return err
			}
			switch len(matches) {
			case 0:
				return errTraineeNotFound
			case 1:
				trainee = matches[0]
			default:
				return errTraineeAmbiguous
			}
			if err := tx.Model(&trainee).Update(column, staffUser.SourceUserID).Error; err != nil {
				return err
			}
			if err := tx.First(&trainee, "id = ?", trainee.ID).Error; err != nil {
				return err
			}
			_, err := directory.SyncUser(tx, &trainee)
			return err
		})
		switch {
		case errors.Is(err, errTraineeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		case errors.Is(err, errTraineeAmbiguous):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case err != nil:
			serverError(c, h.Log, "failed to add trainee", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Trainee added successfully.", "trainee": trainee})
	}
}

// ListTrainees returns the trainees linked to the caller. Admins see all
// trainees, optionally filtered by cohort.
func (h *StaffHandler) ListTrainees(c *gin.Context) {
	query := h.DB.Model(&models.Trainee{}).Order("first_name asc, last_name asc")
	if cohort := c.Query("cohort"); cohort != "" {
		query = query.Where("cohort = ?", cohort)
	}

	if !middleware.HasRole(c, models.RoleAdmin) {
		user, err := directory.FindByID(h.DB, middleware.UserID(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		column, ok := models.StaffColumn(user.Role)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		query = query.Where(column+" = ?", user.SourceUserID)
	}

	var trainees []models.Trainee
	if err := query.Find(&trainees).Error; err != nil {
		serverError(c, h.Log, "could not load trainees", err)
		return
	}
	c.JSON(http.StatusOK, trainees)
}
