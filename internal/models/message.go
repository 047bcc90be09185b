package models

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Conversation is a direct channel between two users. Participants are
// stored in a fixed order (ParticipantOneID < ParticipantTwoID) so each
// pair maps to exactly one row.
type Conversation struct {
	ID               uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	ParticipantOneID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_conversation_pair" json:"participantOneId"`
	ParticipantTwoID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_conversation_pair" json:"participantTwoId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c Conversation) Includes(userID uuid.UUID) bool {
	return c.ParticipantOneID == userID || c.ParticipantTwoID == userID
}

// OrderedPair sorts two user IDs into conversation participant order.
func OrderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

type Message struct {
	ID             uuid.UUID         `gorm:"type:char(36);primaryKey" json:"id"`
	ConversationID uuid.UUID         `gorm:"type:char(36);index;not null" json:"conversationId"`
	SenderID       uuid.UUID         `gorm:"type:char(36);index;not null" json:"senderId"`
	RecipientID    uuid.UUID         `gorm:"type:char(36);index;not null" json:"recipientId"`
	Message        string            `gorm:"type:text" json:"message"`
	Image          string            `gorm:"type:text" json:"image,omitempty"`
	Reactions      datatypes.JSONMap `json:"reactions"`
	Conversation   *Conversation     `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt      time.Time         `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Reactions == nil {
		m.Reactions = datatypes.JSONMap{}
	}
	return nil
}
