package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/middleware"
	"github.com/SummerNgcobo/parakeet/internal/models"
	"github.com/SummerNgcobo/parakeet/internal/realtime"
)

type MessagingHandler struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	Log *logger.Logger
}

type conversationRequest struct {
	UserID1 uuid.UUID `json:"userId1" binding:"required"`
	UserID2 uuid.UUID `json:"userId2" binding:"required"`
}

type sendMessageRequest struct {
	ConversationID uuid.UUID `json:"conversationId" binding:"required"`
	RecipientID    uuid.UUID `json:"recipientId"`
	Message        string    `json:"message" binding:"max=10000"`
	Image          string    `json:"image"`
}

type editMessageRequest struct {
	Message string `json:"message" binding:"required,max=10000"`
}

type reactionRequest struct {
	MessageID uuid.UUID `json:"messageId" binding:"required"`
	Emoji     string    `json:"emoji" binding:"max=32"`
}

type conversationView struct {
	models.Conversation
	PartnerID     uuid.UUID `json:"partnerId"`
	PartnerOnline bool      `json:"partnerOnline"`
}

type reactionEvent struct {
	MessageID      uuid.UUID              `json:"messageId"`
	ConversationID uuid.UUID              `json:"conversationId"`
	Reactions      map[string]interface{} `json:"reactions"`
}

var (
	errNotParticipant = errors.New("not a participant of this conversation")
	errEmptyMessage   = errors.New("message or image is required")
)

func NewMessagingHandler(db *gorm.DB, hub *realtime.Hub, log *logger.Logger) *MessagingHandler {
	return &MessagingHandler{DB: db, Hub: hub, Log: log}
}

// conversationFor loads a conversation the user takes part in.
func conversationFor(db *gorm.DB, id uuid.UUID, userID uuid.UUID) (models.Conversation, error) {
	var conversation models.Conversation
	if err := db.First(&conversation, "id = ?", id).Error; err != nil {
		return conversation, err
	}
	if !conversation.Includes(userID) {
		return conversation, errNotParticipant
	}
	return conversation, nil
}

func (h *MessagingHandler) respondLookupError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, errNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		serverError(c, h.Log, "messaging failed", err)
	}
}

// GetOrCreateConversation returns the conversation between the two users,
// creating it on first contact.
func (h *MessagingHandler) GetOrCreateConversation(c *gin.Context) {
	var req conversationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID1 == uuid.Nil || req.UserID2 == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "both user ids are required"})
		return
	}
	if req.UserID1 == req.UserID2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a conversation needs two different users"})
		return
	}
	caller := middleware.UserID(c)
	if caller != req.UserID1 && caller != req.UserID2 && !middleware.HasRole(c, models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	one, two := models.OrderedPair(req.UserID1, req.UserID2)
	var count int64
	if err := h.DB.Model(&models.User{}).Where("id IN ?", []uuid.UUID{one, two}).Count(&count).Error; err != nil {
		serverError(c, h.Log, "failed to load users", err)
		return
	}
	if count != 2 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	conversation, err := getOrCreateConversation(h.DB, one, two)
	if err != nil {
		serverError(c, h.Log, "failed to get or create conversation", err)
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func getOrCreateConversation(db *gorm.DB, one, two uuid.UUID) (models.Conversation, error) {
	conversation := models.Conversation{ParticipantOneID: one, ParticipantTwoID: two}
	err := db.Where("participant_one_id = ? AND participant_two_id = ?", one, two).
		FirstOrCreate(&conversation).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		conversation = models.Conversation{}
		err = db.Where("participant_one_id = ? AND participant_two_id = ?", one, two).Take(&conversation).Error
	}
	return conversation, err
}

func (h *MessagingHandler) UserConversations(c *gin.Context) {
	userID, ok := paramUUID(c, "userId")
	if !ok {
		return
	}
	if userID != middleware.UserID(c) && !middleware.HasRole(c, models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	var conversations []models.Conversation
	if err := h.DB.Where("participant_one_id = ? OR participant_two_id = ?", userID, userID).
		Order("updated_at desc").Find(&conversations).Error; err != nil {
		serverError(c, h.Log, "failed to fetch conversations", err)
		return
	}
	views := make([]conversationView, 0, len(conversations))
	for _, conversation := range conversations {
		partner := conversation.ParticipantOneID
		if partner == userID {
			partner = conversation.ParticipantTwoID
		}
		views = append(views, conversationView{
			Conversation:  conversation,
			PartnerID:     partner,
			PartnerOnline: h.Hub.Online(partner.String()),
		})
	}
	c.JSON(http.StatusOK, views)
}

// OnlineUsers lists the ids of users with an open socket.
func (h *MessagingHandler) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.Hub.OnlineUsers()})
}

func (h *MessagingHandler) FindConversation(c *gin.Context) {
	first, ok := paramUUID(c, "userId1")
	if !ok {
		return
	}
	second, ok := paramUUID(c, "userId2")
	if !ok {
		return
	}
	one, two := models.OrderedPair(first, second)
	var conversation models.Conversation
	err := h.DB.Where("participant_one_id = ? AND participant_two_id = ?", one, two).Take(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found", "shouldCreate": true})
		return
	}
	if err != nil {
		serverError(c, h.Log, "failed to find conversation", err)
		return
	}
	if !conversation.Includes(middleware.UserID(c)) && !middleware.HasRole(c, models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func (h *MessagingHandler) ListMessages(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Query("conversationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
		return
	}
	if _, err := conversationFor(h.DB, conversationID, middleware.UserID(c)); err != nil {
		h.respondLookupError(c, err, "conversation not found")
		return
	}
	limit, offset := pagination(c, 20, 200)
	var messages []models.Message
	if err := h.DB.Where("conversation_id = ?", conversationID).
		Order("created_at asc").Limit(limit).Offset(offset).
		Find(&messages).Error; err != nil {
		serverError(c, h.Log, "error fetching messages", err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *MessagingHandler) ConversationMessages(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if _, err := conversationFor(h.DB, id, middleware.UserID(c)); err != nil {
		h.respondLookupError(c, err, "conversation not found")
		return
	}
	var messages []models.Message
	if err := h.DB.Where("conversation_id = ?", id).Order("created_at asc").Find(&messages).Error; err != nil {
		serverError(c, h.Log, "error fetching messages", err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *MessagingHandler) LastMessage(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if _, err := conversationFor(h.DB, id, middleware.UserID(c)); err != nil {
		h.respondLookupError(c, err, "conversation not found")
		return
	}
	var message models.Message
	err := h.DB.Where("conversation_id = ?", id).Order("created_at desc").Take(&message).Error
	if err != nil {
		h.respondLookupError(c, err, "no messages found for this conversation")
		return
	}
	c.JSON(http.StatusOK, message)
}

// Recent lists the newest messages the caller sent or received.
func (h *MessagingHandler) Recent(c *gin.Context) {
	userID := middleware.UserID(c)
	limit, _ := pagination(c, 10, 100)
	var messages []models.Message
	if err := h.DB.Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at desc").Limit(limit).Find(&messages).Error; err != nil {
		serverError(c, h.Log, "error fetching recent messages", err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *MessagingHandler) UserMessages(c *gin.Context) {
	userID, ok := paramUUID(c, "userId")
	if !ok {
		return
	}
	if userID != middleware.UserID(c) && !middleware.HasRole(c, models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	var messages []models.Message
	if err := h.DB.Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at desc").Find(&messages).Error; err != nil {
		serverError(c, h.Log, "error fetching user messages", err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// storeMessage persists a message from sender. The recipient is always the
// other participant of the conversation.
func storeMessage(db *gorm.DB, sender uuid.UUID, req sendMessageRequest) (models.Message, error) {
	var message models.Message
	if strings.TrimSpace(req.Message) == "" && strings.TrimSpace(req.Image) == "" {
		return message, errEmptyMessage
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		conversation, err := conversationFor(tx, req.ConversationID, sender)
		if err != nil {
			return err
		}
		recipient := conversation.ParticipantOneID
		if recipient == sender {
			recipient = conversation.ParticipantTwoID
		}
		message = models.Message{
			ConversationID: conversation.ID,
			SenderID:       sender,
			RecipientID:    recipient,
			Message:        req.Message,
			Image:          req.Image,
		}
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", conversation.ID).Update("updated_at", time.Now()).Error
	})
	return message, err
}

func (h *MessagingHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	message, err := storeMessage(h.DB, middleware.UserID(c), req)
	if errors.Is(err, errEmptyMessage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.respondLookupError(c, err, "conversation not found")
		return
	}
	h.Hub.SendTo(message.RecipientID.String(), realtime.Event{Event: realtime.EventNewMessage, Data: message})
	c.JSON(http.StatusCreated, message)
}

// ownMessage loads :messageId and checks the caller sent it.
func (h *MessagingHandler) ownMessage(c *gin.Context) (models.Message, bool) {
	var message models.Message
	id, ok := paramUUID(c, "messageId")
	if !ok {
		return message, false
	}
	if err := h.DB.First(&message, "id = ?", id).Error; err != nil {
		h.respondLookupError(c, err, "message not found")
		return message, false
	}
	if message.SenderID != middleware.UserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender may change this message"})
		return message, false
	}
	return message, true
}

func (h *MessagingHandler) EditMessage(c *gin.Context) {
	message, ok := h.ownMessage(c)
	if !ok {
		return
	}
	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	if err := h.DB.Model(&message).Update("message", req.Message).Error; err != nil {
		serverError(c, h.Log, "error editing message", err)
		return
	}
	message.Message = req.Message
	c.JSON(http.StatusOK, message)
}

func (h *MessagingHandler) DeleteMessage(c *gin.Context) {
	message, ok := h.ownMessage(c)
	if !ok {
		return
	}
	if err := h.DB.Delete(&models.Message{}, "id = ?", message.ID).Error; err != nil {
		serverError(c, h.Log, "error deleting message", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// React records the caller's emoji on a message. An empty emoji removes it.
// Both participants receive the updated reaction set.
func (h *MessagingHandler) React(c *gin.Context) {
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	userID := middleware.UserID(c)

	var message models.Message
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&message, "id = ?", req.MessageID).Error; err != nil {
			return err
		}
		if message.SenderID != userID && message.RecipientID != userID {
			return errNotParticipant
		}
		if message.Reactions == nil {
			message.Reactions = map[string]interface{}{}
		}
		if req.Emoji == "" {
			delete(message.Reactions, userID.String())
		} else {
			message.Reactions[userID.String()] = req.Emoji
		}
		return tx.Model(&models.Message{}).Where("id = ?", message.ID).Update("reactions", message.Reactions).Error
	})
	if err != nil {
		h.respondLookupError(c, err, "message not found")
		return
	}

	ev := realtime.Event{Event: realtime.EventNewReaction, Data: reactionEvent{
		MessageID:      message.ID,
		ConversationID: message.ConversationID,
		Reactions:      message.Reactions,
	}}
	h.Hub.SendTo(message.SenderID.String(), ev)
	h.Hub.SendTo(message.RecipientID.String(), ev)
	c.JSON(http.StatusOK, message)
}
