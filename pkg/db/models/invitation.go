package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/enums"
)

// Invitation is an offer to join a family, addressed by email so the
// recipient does not need an account yet. At most one pending
// invitation may exist per (family, email), enforced by a partial
// unique index.
type Invitation struct {
	ID         uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FamilyID   uuid.UUID              `gorm:"column:family_id;type:uuid;not null;index"`
	Email      string                 `gorm:"column:email;not null;index"`
	Role       enums.FamilyRole       `gorm:"column:role;type:family_role;not null"`
	Status     enums.InvitationStatus `gorm:"column:status;type:invitation_status;not null;default:'pending'"`
	InvitedBy  uuid.UUID              `gorm:"column:invited_by;type:uuid;not null"`
	ExpiresAt  time.Time              `gorm:"column:expires_at;not null"`
	AcceptedAt *time.Time             `gorm:"column:accepted_at"`
	DeclinedAt *time.Time             `gorm:"column:declined_at"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time              `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt  gorm.DeletedAt         `gorm:"column:deleted_at;index"`

	Family *Family `gorm:"foreignKey:FamilyID"`
}
