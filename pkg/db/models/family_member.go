package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/pkg/enums"
)

// FamilyMember links a user to a family with a role. A user belongs to
// at most one family, enforced by a unique index on user_id.
type FamilyMember struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FamilyID  uuid.UUID        `gorm:"column:family_id;type:uuid;not null;index"`
	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Role      enums.FamilyRole `gorm:"column:role;type:family_role;not null"`
	InvitedBy *uuid.UUID       `gorm:"column:invited_by;type:uuid"`
	JoinedAt  time.Time        `gorm:"column:joined_at;not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`

	Family *Family `gorm:"foreignKey:FamilyID"`
	User   *User   `gorm:"foreignKey:UserID"`
}
