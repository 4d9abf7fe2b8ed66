package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
)

// Actor identifies the authenticated user driving a chat operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ConversationDTO is the API shape of a conversation thread.
type ConversationDTO struct {
	ID                uuid.UUID `json:"id"`
	PatientUserID     uuid.UUID `json:"patient_user_id"`
	ProviderID        uuid.UUID `json:"provider_id"`
	ProviderName      string    `json:"provider_name,omitempty"`
	ProviderSpecialty string    `json:"provider_specialty,omitempty"`
	LastActivityAt    time.Time `json:"last_activity_at"`
	UnreadCount       int64     `json:"unread_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// MessageDTO is the API shape of a chat message.
type MessageDTO struct {
	ID             uuid.UUID         `json:"id"`
	ConversationID uuid.UUID         `json:"conversation_id"`
	SenderUserID   uuid.UUID         `json:"sender_user_id"`
	Type           enums.MessageType `json:"type"`
	Content        string            `json:"content"`
	ReadAt         *time.Time        `json:"read_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// SendMessageInput carries a submitted message. Type defaults to text.
type SendMessageInput struct {
	Type    enums.MessageType `json:"type"`
	Content string            `json:"content" validate:"required,max=10000"`
}

// MessagePage is a cursor page of messages, newest first.
type MessagePage struct {
	Items      []MessageDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func conversationFromModel(c *models.Conversation) *ConversationDTO {
	dto := &ConversationDTO{
		ID:             c.ID,
		PatientUserID:  c.PatientUserID,
		ProviderID:     c.ProviderID,
		LastActivityAt: c.LastActivityAt,
		CreatedAt:      c.CreatedAt,
	}
	if c.Provider != nil {
		dto.ProviderName = c.Provider.FirstName + " " + c.Provider.LastName
		dto.ProviderSpecialty = c.Provider.Specialty
	}
	return dto
}

func messageFromModel(m *models.Message) *MessageDTO {
	return &MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderUserID:   m.SenderUserID,
		Type:           m.Type,
		Content:        m.Content,
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
}
