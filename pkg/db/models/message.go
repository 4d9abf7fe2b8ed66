package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/pkg/enums"
)

// Message is a single entry in a conversation. ReadAt is set when the
// counterparty marks the thread read.
type Message struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID uuid.UUID         `gorm:"column:conversation_id;type:uuid;not null;index"`
	SenderUserID   uuid.UUID         `gorm:"column:sender_user_id;type:uuid;not null"`
	Type           enums.MessageType `gorm:"column:type;type:message_type;not null;default:'text'"`
	Content        string            `gorm:"column:content;not null"`
	ReadAt         *time.Time        `gorm:"column:read_at"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
