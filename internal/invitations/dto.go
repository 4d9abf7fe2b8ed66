package invitations

import (
	"time"

	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
)

// InvitationDTO is the API shape of an invitation.
type InvitationDTO struct {
	ID         uuid.UUID              `json:"id"`
	FamilyID   uuid.UUID              `json:"family_id"`
	FamilyName string                 `json:"family_name,omitempty"`
	Email      string                 `json:"email"`
	Role       enums.FamilyRole       `json:"role"`
	Status     enums.InvitationStatus `json:"status"`
	InvitedBy  uuid.UUID              `json:"invited_by"`
	ExpiresAt  time.Time              `json:"expires_at"`
	AcceptedAt *time.Time             `json:"accepted_at,omitempty"`
	DeclinedAt *time.Time             `json:"declined_at,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// CreateInvitationInput carries the fields an admin submits when inviting
// someone into their family.
type CreateInvitationInput struct {
	Email string           `json:"email" validate:"required,email"`
	Role  enums.FamilyRole `json:"role" validate:"required"`
}

func fromModel(inv *models.Invitation) *InvitationDTO {
	dto := &InvitationDTO{
		ID:         inv.ID,
		FamilyID:   inv.FamilyID,
		Email:      inv.Email,
		Role:       inv.Role,
		Status:     inv.Status,
		InvitedBy:  inv.InvitedBy,
		ExpiresAt:  inv.ExpiresAt,
		AcceptedAt: inv.AcceptedAt,
		DeclinedAt: inv.DeclinedAt,
		CreatedAt:  inv.CreatedAt,
	}
	if inv.Family != nil {
		dto.FamilyName = inv.Family.Name
	}
	return dto
}
