package directory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carenest/carenest-backend/pkg/db/models"
	dbtypes "github.com/carenest/carenest-backend/pkg/db/types"
	"github.com/carenest/carenest-backend/pkg/pagination"
)

// FacilityDTO is the API shape of a directory facility.
type FacilityDTO struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	Address        string          `json:"address"`
	City           string          `json:"city"`
	Phone          *string         `json:"phone,omitempty"`
	Email          *string         `json:"email,omitempty"`
	Website        *string         `json:"website,omitempty"`
	Services       []string        `json:"services"`
	OperatingHours dbtypes.JSONMap `json:"operating_hours,omitempty"`
	AverageRating  decimal.Decimal `json:"average_rating"`
	ReviewCount    int             `json:"review_count"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ProviderDTO is the API shape of a directory provider.
type ProviderDTO struct {
	ID             uuid.UUID       `json:"id"`
	FacilityID     *uuid.UUID      `json:"facility_id,omitempty"`
	FacilityName   string          `json:"facility_name,omitempty"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Specialty      string          `json:"specialty"`
	Bio            *string         `json:"bio,omitempty"`
	Phone          *string         `json:"phone,omitempty"`
	Email          *string         `json:"email,omitempty"`
	Qualifications []string        `json:"qualifications"`
	Availability   dbtypes.JSONMap `json:"availability,omitempty"`
	AverageRating  decimal.Decimal `json:"average_rating"`
	ReviewCount    int             `json:"review_count"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// FacilityFilter narrows facility listings. All fields are optional.
type FacilityFilter struct {
	City    string
	Service string
	Search  string
	Page    pagination.Params
}

// ProviderFilter narrows provider listings. All fields are optional.
type ProviderFilter struct {
	Specialty  string
	FacilityID *uuid.UUID
	Search     string
	Page       pagination.Params
}

// FacilityPage is a cursor page of facilities.
type FacilityPage struct {
	Items      []FacilityDTO `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ProviderPage is a cursor page of providers.
type ProviderPage struct {
	Items      []ProviderDTO `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// CreateFacilityInput carries admin-submitted facility fields.
type CreateFacilityInput struct {
	Name           string          `json:"name" validate:"required"`
	Description    *string         `json:"description"`
	Address        string          `json:"address" validate:"required"`
	City           string          `json:"city" validate:"required"`
	Phone          *string         `json:"phone"`
	Email          *string         `json:"email" validate:"omitempty,email"`
	Website        *string         `json:"website" validate:"omitempty,url"`
	Services       []string        `json:"services"`
	OperatingHours dbtypes.JSONMap `json:"operating_hours"`
}

// UpdateFacilityInput carries optional facility updates; nil means unchanged.
type UpdateFacilityInput struct {
	Name           *string         `json:"name"`
	Description    *string         `json:"description"`
	Address        *string         `json:"address"`
	City           *string         `json:"city"`
	Phone          *string         `json:"phone"`
	Email          *string         `json:"email" validate:"omitempty,email"`
	Website        *string         `json:"website" validate:"omitempty,url"`
	Services       []string        `json:"services"`
	OperatingHours dbtypes.JSONMap `json:"operating_hours"`
}

// CreateProviderInput carries admin-submitted provider fields.
type CreateProviderInput struct {
	FacilityID     *uuid.UUID      `json:"facility_id"`
	FirstName      string          `json:"first_name" validate:"required"`
	LastName       string          `json:"last_name" validate:"required"`
	Specialty      string          `json:"specialty" validate:"required"`
	Bio            *string         `json:"bio"`
	Phone          *string         `json:"phone"`
	Email          *string         `json:"email" validate:"omitempty,email"`
	Qualifications []string        `json:"qualifications"`
	Availability   dbtypes.JSONMap `json:"availability"`
}

// UpdateProviderInput carries optional provider updates; nil means unchanged.
type UpdateProviderInput struct {
	FacilityID     *uuid.UUID      `json:"facility_id"`
	FirstName      *string         `json:"first_name"`
	LastName       *string         `json:"last_name"`
	Specialty      *string         `json:"specialty"`
	Bio            *string         `json:"bio"`
	Phone          *string         `json:"phone"`
	Email          *string         `json:"email" validate:"omitempty,email"`
	Qualifications []string        `json:"qualifications"`
	Availability   dbtypes.JSONMap `json:"availability"`
}

func facilityFromModel(f *models.HealthcareFacility) *FacilityDTO {
	return &FacilityDTO{
		ID:             f.ID,
		Name:           f.Name,
		Description:    f.Description,
		Address:        f.Address,
		City:           f.City,
		Phone:          f.Phone,
		Email:          f.Email,
		Website:        f.Website,
		Services:       []string(f.Services),
		OperatingHours: f.OperatingHours,
		AverageRating:  f.AverageRating,
		ReviewCount:    f.ReviewCount,
		IsActive:       f.IsActive,
		CreatedAt:      f.CreatedAt,
	}
}

func providerFromModel(p *models.HealthcareProvider) *ProviderDTO {
	dto := &ProviderDTO{
		ID:             p.ID,
		FacilityID:     p.FacilityID,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Specialty:      p.Specialty,
		Bio:            p.Bio,
		Phone:          p.Phone,
		Email:          p.Email,
		Qualifications: []string(p.Qualifications),
		Availability:   p.Availability,
		AverageRating:  p.AverageRating,
		ReviewCount:    p.ReviewCount,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
	}
	if p.Facility != nil {
		dto.FacilityName = p.Facility.Name
	}
	return dto
}
