package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

const (
	maxAvatarBytes = 2 << 20
	maxAvatarSide  = 512
)

type AvatarHandler struct {
	DB  *gorm.DB
	Log *logger.Logger
}

func NewAvatarHandler(db *gorm.DB, log *logger.Logger) *AvatarHandler {
	return &AvatarHandler{DB: db, Log: log}
}

func (h *AvatarHandler) Upload(c *gin.Context) {
	userID, ok := paramUUID(c, "userId")
	if !ok {
		return
	}
	if userID != middleware.UserID(c) && !middleware.HasRole(c, models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes+1024)
	header, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}
	if header.Size > maxAvatarBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "avatar is too large"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar could not be read"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar could not be read"})
		return
	}

	data, contentType, err := fitAvatar(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar must be an image"})
		return
	}

	var existing int64
	if err := h.DB.Model(&models.Avatar{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
		serverError(c, h.Log, "failed to upload avatar", err)
		return
	}

	avatar := models.Avatar{UserID: userID, Image: data, ContentType: contentType}
	if err := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"image", "content_type", "updated_at"}),
	}).Create(&avatar).Error; err != nil {
		serverError(c, h.Log, "failed to upload avatar", err)
		return
	}

	message := "avatar created"
	if existing > 0 {
		message = "avatar updated"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// fitAvatar decodes an uploaded image and scales it down to fit a
// maxAvatarSide square. Images already small enough are stored as sent.
// Resized JPEGs stay JPEG; every other format is re-encoded as PNG.
func fitAvatar(data []byte) ([]byte, string, error) {
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", errors.New("not an image")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", err
	}
	bounds := img.Bounds()
	if bounds.Dx() <= maxAvatarSide && bounds.Dy() <= maxAvatarSide {
		return data, contentType, nil
	}

	format, outType := imaging.PNG, "image/png"
	if contentType == "image/jpeg" {
		format, outType = imaging.JPEG, "image/jpeg"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Fit(img, maxAvatarSide, maxAvatarSide, imaging.Lanczos), format); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), outType, nil
}

func (h *AvatarHandler) Get(c *gin.Context) {
	userID, ok := paramUUID(c, "userId")
	if !ok {
		return
	}
	var avatar models.Avatar
	if err := h.DB.Where("user_id = ?", userID).Take(&avatar).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "avatar not found"})
			return
		}
		serverError(c, h.Log, "failed to get avatar", err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, avatar.ContentType, avatar.Image)
}
