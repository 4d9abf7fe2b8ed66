package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/pkg/enums"
)

// MessageSentEvent is emitted when a chat message is stored.
type MessageSentEvent struct {
	MessageID      uuid.UUID         `json:"message_id"`
	ConversationID uuid.UUID         `json:"conversation_id"`
	SenderUserID   uuid.UUID         `json:"sender_user_id"`
	RecipientIDs   []uuid.UUID       `json:"recipient_ids"`
	Type           enums.MessageType `json:"type"`
	Preview        string            `json:"preview"`
}

// InvitationCreatedEvent is emitted when a family invitation is issued.
type InvitationCreatedEvent struct {
	InvitationID uuid.UUID        `json:"invitation_id"`
	FamilyID     uuid.UUID        `json:"family_id"`
	FamilyName   string           `json:"family_name"`
	Email        string           `json:"email"`
	Role         enums.FamilyRole `json:"role"`
	InvitedBy    uuid.UUID        `json:"invited_by"`
	ExpiresAt    time.Time        `json:"expires_at"`
}

// InvitationDecidedEvent is emitted when an invitation is accepted or declined.
type InvitationDecidedEvent struct {
	InvitationID uuid.UUID              `json:"invitation_id"`
	FamilyID     uuid.UUID              `json:"family_id"`
	FamilyName   string                 `json:"family_name"`
	Email        string                 `json:"email"`
	Status       enums.InvitationStatus `json:"status"`
	InvitedBy    uuid.UUID              `json:"invited_by"`
	DecidedBy    *uuid.UUID             `json:"decided_by,omitempty"`
}

// ReminderDueEvent is emitted by the due sweep for each reminder hitting its window.
type ReminderDueEvent struct {
	ReminderID       uuid.UUID          `json:"reminder_id"`
	OwnerUserID      uuid.UUID          `json:"owner_user_id"`
	AssignedToUserID *uuid.UUID         `json:"assigned_to_user_id,omitempty"`
	Type             enums.ReminderType `json:"type"`
	Title            string             `json:"title"`
	ScheduledAt      time.Time          `json:"scheduled_at"`
}
