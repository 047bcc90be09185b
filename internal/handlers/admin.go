package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SummerNgcobo/parakeet/internal/accounts"
	"github.com/SummerNgcobo/parakeet/internal/directory"
	"github.com/SummerNgcobo/parakeet/internal/hubspot"
	"github.com/SummerNgcobo/parakeet/internal/logger"
)

// ContactSource lists CRM contacts.
type ContactSource interface {
	Contacts(ctx context.Context) ([]hubspot.Contact, error)
}

type AdminHandler struct {
	Accounts *accounts.Service
	CRM      ContactSource
	Log      *logger.Logger
}

type createUserRequest struct {
	FirstName      string `json:"firstName" binding:"required"`
	LastName       string `json:"lastName" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Role           string `json:"role" binding:"required,role"`
	Cohort         string `json:"cohort"`
	Specialisation string `json:"specialisation"`
}

func NewAdminHandler(accountService *accounts.Service, crm ContactSource, log *logger.Logger) *AdminHandler {
	return &AdminHandler{Accounts: accountService, CRM: crm, Log: log}
}

// Onboard imports HubSpot contacts as users with pending validation tokens.
func (h *AdminHandler) Onboard(c *gin.Context) {
	contacts, err := h.CRM.Contacts(c.Request.Context())
	if err != nil {
		if errors.Is(err, hubspot.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.Log.Error("fetching hubspot contacts", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch contacts"})
		return
	}

	result, err := h.Accounts.Import(contacts)
	if err != nil {
		serverError(c, h.Log, "import failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Successfully imported users",
		"imported": result.Imported,
		"skipped":  result.Skipped,
	})
}

func (h *AdminHandler) SendUserInvites(c *gin.Context) {
	sent, err := h.Accounts.SendInvites(c.Request.Context())
	if err != nil {
		serverError(c, h.Log, "there was an issue while sending out email invites please try again", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully sent out email invites", "sent": sent})
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	user, err := h.Accounts.Create(c.Request.Context(), directory.NewAccount{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Role:           req.Role,
		Cohort:         req.Cohort,
		Specialisation: req.Specialisation,
	})
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, directory.ErrUnknownRole):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			serverError(c, h.Log, "user creation failed", err)
		}
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AdminHandler) Cohorts(c *gin.Context) {
	contacts, err := h.CRM.Contacts(c.Request.Context())
	if err != nil {
		h.Log.Error("fetching hubspot contacts", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch contacts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cohorts": hubspot.GroupByCohort(contacts)})
}
