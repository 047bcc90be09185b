package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/accounts"
	"github.com/SummerNgcobo/parakeet/internal/config"
	"github.com/SummerNgcobo/parakeet/internal/directory"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
	"github.com/SummerNgcobo/parakeet/internal/utils"
)

const (
	ValidationCookie    = "TMS-validation-token"
	ResetPasswordCookie = "TMS-reset-password-token"
)

type AuthHandler struct {
	DB       *gorm.DB
	Cfg      config.Config
	Accounts *accounts.Service
	Log      *logger.Logger
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	UserType string `json:"userType"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type passwordResetEmailRequest struct {
	Email string `json:"email" form:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
	Token    string `json:"token"`
}

type verifyAccountRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Token    string `json:"token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

func NewAuthHandler(db *gorm.DB, cfg config.Config, accountService *accounts.Service, log *logger.Logger) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Accounts: accountService, Log: log}
}

// userTypeMatches accepts both role names and the camel-cased user types
// sent by older clients.
func userTypeMatches(userType string, role string) bool {
	if userType == "" {
		return true
	}
	normalized := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(userType, "-", "_"), " ", "_"))
	switch normalized {
	case "careercoach":
		normalized = models.RoleCareerCoach
	case "technicalmentor":
		normalized = models.RoleTechnicalMentor
	case "talent", "talent_user":
		normalized = models.RoleTrainee
	}
	return normalized == role
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	user, err := directory.FindByEmail(h.DB, req.Email)
	if errors.Is(err, directory.ErrUserNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		serverError(c, h.Log, "login failed", err)
		return
	}
	if !userTypeMatches(req.UserType, user.Role) || !utils.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.Validated {
		c.JSON(http.StatusForbidden, gin.H{"error": "account not validated"})
		return
	}

	accessToken, refresh, err := h.issueTokens(h.DB, user)
	if err != nil {
		serverError(c, h.Log, "token error", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken":  accessToken,
		"refreshToken": refresh.Token,
		"user":         user,
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := directory.FindByID(h.DB, middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	profile, err := directory.LoadSource(h.DB, user)
	if err != nil && !errors.Is(err, directory.ErrUserNotFound) {
		serverError(c, h.Log, "could not load user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "profile": profile})
}

// Refresh rotates the refresh token: the presented token is revoked and a
// new pair is returned. Presenting a token that was already rotated
// revokes every live token of its user.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	now := time.Now()
	var (
		accessToken string
		next        models.RefreshToken
		replayed    models.RefreshToken
	)
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var token models.RefreshToken
		if err := tx.Where("token = ?", req.RefreshToken).First(&token).Error; err != nil {
			return errInvalidRefresh
		}
		if token.Replayed() {
			replayed = token
			return errRefreshReplayed
		}
		if !token.Active(now) {
			return errInvalidRefresh
		}

		user, err := directory.FindByID(tx, token.UserID)
		if err != nil {
			return errInvalidRefresh
		}
		accessToken, next, err = h.issueTokens(tx, user)
		if err != nil {
			return err
		}
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", token.ID).
			Updates(map[string]interface{}{"revoked_at": now, "replaced_by_id": next.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errInvalidRefresh
		}
		return nil
	})
	switch {
	case errors.Is(err, errRefreshReplayed):
		h.Log.Warn("refresh token replayed", map[string]interface{}{"userId": replayed.UserID})
		if err := h.DB.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked_at IS NULL", replayed.UserID).
			Update("revoked_at", now).Error; err != nil {
			h.Log.Error("revoking refresh tokens", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh"})
		return
	case errors.Is(err, errInvalidRefresh):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh"})
		return
	case err != nil:
		serverError(c, h.Log, "token error", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken, "refreshToken": next.Token})
}

var (
	errInvalidRefresh  = errors.New("invalid refresh")
	errRefreshReplayed = errors.New("refresh token replayed")
)

func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	if err := h.DB.Model(&models.RefreshToken{}).
		Where("token = ? AND revoked_at IS NULL", req.RefreshToken).
		Update("revoked_at", time.Now()).Error; err != nil {
		serverError(c, h.Log, "logout failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) SendPasswordResetEmail(c *gin.Context) {
	var req passwordResetEmailRequest
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	if err := h.Accounts.SendPasswordReset(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, accounts.ErrNotValidated) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		serverError(c, h.Log, "failed to send password reset email", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset email sent"})
}

// ResetPasswordLink is the target of the mailed reset link. It stores the
// token in a cookie and forwards the browser to the reset form.
func (h *AuthHandler) ResetPasswordLink(c *gin.Context) {
	token := c.Param("token")
	if _, _, err := h.Accounts.Verify(h.DB, token, models.TokenPurposePasswordReset); err != nil {
		h.linkError(c, err, "password reset")
		return
	}
	h.setTokenCookie(c, ResetPasswordCookie, token)
	c.Redirect(http.StatusFound, h.Cfg.FrontendPasswordReset)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	token := req.Token
	if cookie, err := c.Cookie(ResetPasswordCookie); err == nil && cookie != "" {
		token = cookie
	}
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing reset token"})
		return
	}

	if _, err := h.Accounts.ResetPassword(token, req.Password); err != nil {
		if errors.Is(err, accounts.ErrInvalidToken) || errors.Is(err, accounts.ErrWeakPassword) || errors.Is(err, directory.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		serverError(c, h.Log, "password reset failed", err)
		return
	}
	h.clearTokenCookie(c, ResetPasswordCookie)
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// VerifyUserLink is the target of the mailed invite link.
func (h *AuthHandler) VerifyUserLink(c *gin.Context) {
	token := c.Param("userToken")
	if _, _, err := h.Accounts.Verify(h.DB, token, models.TokenPurposeValidation); err != nil {
		h.linkError(c, err, "account validation")
		return
	}
	h.setTokenCookie(c, ValidationCookie, token)
	c.Redirect(http.StatusFound, h.Cfg.FrontendValidatorURL)
}

func (h *AuthHandler) VerifyAccount(c *gin.Context) {
	var req verifyAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	token := req.Token
	if cookie, err := c.Cookie(ValidationCookie); err == nil && cookie != "" {
		token = cookie
	}
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing validation token"})
		return
	}

	user, err := h.Accounts.VerifyAccount(token, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrEmailMismatch):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, accounts.ErrInvalidToken), errors.Is(err, accounts.ErrWeakPassword), errors.Is(err, directory.ErrUserNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			serverError(c, h.Log, "account verification failed", err)
		}
		return
	}
	h.clearTokenCookie(c, ValidationCookie)
	c.JSON(http.StatusOK, gin.H{"message": "account verified", "user": user})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	user, err := directory.FindByID(h.DB, middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current password is incorrect"})
		return
	}

	newHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		serverError(c, h.Log, "password error", err)
		return
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		_, err := directory.SetCredentials(tx, user, newHash, user.Validated)
		return err
	}); err != nil {
		serverError(c, h.Log, "update failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (h *AuthHandler) linkError(c *gin.Context, err error, what string) {
	if errors.Is(err, accounts.ErrInvalidToken) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "there seems to be an issue with your " + what + " token, please contact your administrator"})
		return
	}
	serverError(c, h.Log, what+" failed", err)
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, name string, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, h.Cfg.AccountTokenHours*3600, "/", "", h.Cfg.IsProduction(), true)
}

func (h *AuthHandler) clearTokenCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", h.Cfg.IsProduction(), true)
}

func (h *AuthHandler) issueTokens(tx *gorm.DB, user models.User) (string, models.RefreshToken, error) {
	accessToken, err := utils.GenerateAccessToken(user.ID.String(), user.Role, user.Email, h.Cfg.JwtSecret, h.Cfg.JwtAccessMinutes)
	if err != nil {
		return "", models.RefreshToken{}, err
	}

	raw, err := utils.GenerateRefreshToken()
	if err != nil {
		return "", models.RefreshToken{}, err
	}

	refresh := models.RefreshToken{
		UserID:    user.ID,
		Token:     raw,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JwtRefreshHours) * time.Hour),
	}
	if err := tx.Create(&refresh).Error; err != nil {
		return "", models.RefreshToken{}, err
	}
	return accessToken, refresh, nil
}
