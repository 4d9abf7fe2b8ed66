package families

import (
	"time"

	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
)

// FamilyDTO is the transport shape for a family.
type FamilyDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedBy   uuid.UUID `json:"created_by"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FamilyMemberDTO combines membership metadata with the member's identity.
type FamilyMemberDTO struct {
	ID        uuid.UUID        `json:"id"`
	FamilyID  uuid.UUID        `json:"family_id"`
	UserID    uuid.UUID        `json:"user_id"`
	Role      enums.FamilyRole `json:"role"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	Email     string           `json:"email"`
	JoinedAt  time.Time        `json:"joined_at"`
}

// CreateFamilyInput captures the fields for creating a family.
type CreateFamilyInput struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// UpdateFamilyInput captures the mutable family fields.
type UpdateFamilyInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func familyFromModel(f *models.Family) *FamilyDTO {
	if f == nil {
		return nil
	}
	return &FamilyDTO{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		CreatedBy:   f.CreatedBy,
		IsActive:    f.IsActive,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
