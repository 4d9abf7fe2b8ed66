package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       enums.UserRole
	FamilyID   *uuid.UUID
	FamilyRole *enums.FamilyRole
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID         `json:"user_id"`
	Role       enums.UserRole    `json:"role"`
	FamilyID   *uuid.UUID        `json:"family_id,omitempty"`
	FamilyRole *enums.FamilyRole `json:"family_role,omitempty"`
	jwt.RegisteredClaims
}
