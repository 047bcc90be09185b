package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/realtime"
	"github.com/SummerNgcobo/parakeet/internal/utils"
)

const (
	inboundSendNotification = "sendNotification"
	inboundSendMessage      = "sendMessage"
)

type SocketHandler struct {
	DB       *gorm.DB
	Hub      *realtime.Hub
	Secret   string
	Log      *logger.Logger
	upgrader websocket.Upgrader
}

type notificationPayload struct {
	ReceiverID string `json:"receiverId"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

type notificationEvent struct {
	SenderID string `json:"senderId"`
	Type     string `json:"type"`
	Message  string `json:"message"`
}

func NewSocketHandler(db *gorm.DB, hub *realtime.Hub, secret string, origins []string, log *logger.Logger) *SocketHandler {
	allowed := map[string]bool{}
	for _, origin := range origins {
		allowed[strings.TrimRight(origin, "/")] = true
	}
	return &SocketHandler{
		DB:     db,
		Hub:    hub,
		Secret: secret,
		Log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[strings.TrimRight(origin, "/")]
			},
		},
	}
}

// Connect upgrades GET /ws?token=<access token> and serves the socket until
// the peer disconnects.
func (h *SocketHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token missing"})
		return
	}
	claims, err := utils.ParseAccessToken(token, h.Secret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	client := realtime.NewClient(userID.String(), conn)
	h.Log.Debug("websocket connected", map[string]interface{}{"userId": userID.String()})
	h.Hub.Serve(client, func(cl *realtime.Client, in realtime.Inbound) {
		h.dispatch(userID, cl, in)
	})
	h.Log.Debug("websocket disconnected", map[string]interface{}{"userId": userID.String()})
}

func (h *SocketHandler) dispatch(userID uuid.UUID, client *realtime.Client, in realtime.Inbound) {
	switch in.Event {
	case inboundSendNotification:
		var payload notificationPayload
		if err := json.Unmarshal(in.Data, &payload); err != nil || payload.ReceiverID == "" {
			client.Send(socketError("invalid notification"))
			return
		}
		h.Hub.SendTo(payload.ReceiverID, realtime.Event{Event: realtime.EventGetNotification, Data: notificationEvent{
			SenderID: userID.String(),
			Type:     payload.Type,
			Message:  payload.Message,
		}})
	case inboundSendMessage:
		var req sendMessageRequest
		if err := json.Unmarshal(in.Data, &req); err != nil || req.ConversationID == uuid.Nil {
			client.Send(socketError("invalid message"))
			return
		}
		message, err := storeMessage(h.DB, userID, req)
		if err != nil {
			switch {
			case errors.Is(err, errEmptyMessage), errors.Is(err, errNotParticipant):
				client.Send(socketError(err.Error()))
			case errors.Is(err, gorm.ErrRecordNotFound):
				client.Send(socketError("conversation not found"))
			default:
				h.Log.Error("storing socket message", err, map[string]interface{}{"userId": userID.String()})
				client.Send(socketError("message could not be sent"))
			}
			return
		}
		ev := realtime.Event{Event: realtime.EventNewMessage, Data: message}
		h.Hub.SendTo(message.RecipientID.String(), ev)
		client.Send(ev)
	default:
		client.Send(socketError("unknown event: " + in.Event))
	}
}

func socketError(msg string) realtime.Event {
	return realtime.Event{Event: realtime.EventError, Data: gin.H{"error": msg}}
}
