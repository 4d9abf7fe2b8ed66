package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	pkgerrors "github.com/carenest/carenest-backend/pkg/errors"
	"github.com/carenest/carenest-backend/pkg/pagination"
)

// Service covers directory browsing plus the admin catalogue operations.
type Service interface {
	ListFacilities(ctx context.Context, filter FacilityFilter) (*FacilityPage, error)
	GetFacility(ctx context.Context, id uuid.UUID) (*FacilityDTO, error)
	CreateFacility(ctx context.Context, input CreateFacilityInput) (*FacilityDTO, error)
	UpdateFacility(ctx context.Context, id uuid.UUID, input UpdateFacilityInput) (*FacilityDTO, error)
	DeactivateFacility(ctx context.Context, id uuid.UUID) error

	ListProviders(ctx context.Context, filter ProviderFilter) (*ProviderPage, error)
	GetProvider(ctx context.Context, id uuid.UUID) (*ProviderDTO, error)
	CreateProvider(ctx context.Context, input CreateProviderInput) (*ProviderDTO, error)
	UpdateProvider(ctx context.Context, id uuid.UUID, input UpdateProviderInput) (*ProviderDTO, error)
	DeactivateProvider(ctx context.Context, id uuid.UUID) error
}

type directoryRepository interface {
	ListFacilities(ctx context.Context, filter FacilityFilter, cursor *pagination.Cursor, limit int) ([]models.HealthcareFacility, error)
	FindFacilityByID(ctx context.Context, id uuid.UUID) (*models.HealthcareFacility, error)
	CreateFacility(ctx context.Context, facility *models.HealthcareFacility) error
	UpdateFacility(ctx context.Context, facility *models.HealthcareFacility) error

	ListProviders(ctx context.Context, filter ProviderFilter, cursor *pagination.Cursor, limit int) ([]models.HealthcareProvider, error)
	FindProviderByID(ctx context.Context, id uuid.UUID) (*models.HealthcareProvider, error)
	CreateProvider(ctx context.Context, provider *models.HealthcareProvider) error
	UpdateProvider(ctx context.Context, provider *models.HealthcareProvider) error
}

type service struct {
	repo directoryRepository
}

// ServiceParams wires the directory service dependencies.
type ServiceParams struct {
	Repo directoryRepository
}

// NewService validates dependencies and builds the directory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("directory service requires a repository")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) ListFacilities(ctx context.Context, filter FacilityFilter) (*FacilityPage, error) {
	cursor, err := pagination.ParseCursor(filter.Page.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(filter.Page.Limit)
	rows, err := s.repo.ListFacilities(ctx, filter, cursor, pagination.LimitWithBuffer(filter.Page.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list facilities")
	}

	page := &FacilityPage{Items: make([]FacilityDTO, 0, len(rows))}
	for i := range rows {
		if i == limit {
			last := rows[limit-1]
			page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		page.Items = append(page.Items, *facilityFromModel(&rows[i]))
	}
	return page, nil
}

func (s *service) GetFacility(ctx context.Context, id uuid.UUID) (*FacilityDTO, error) {
	facility, err := s.findFacility(ctx, id)
	if err != nil {
		return nil, err
	}
	if !facility.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "facility not found")
	}
	return facilityFromModel(facility), nil
}

func (s *service) CreateFacility(ctx context.Context, input CreateFacilityInput) (*FacilityDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	facility := &models.HealthcareFacility{
		Name:           name,
		Description:    input.Description,
		Address:        strings.TrimSpace(input.Address),
		City:           strings.TrimSpace(input.City),
		Phone:          input.Phone,
		Email:          input.Email,
		Website:        input.Website,
		Services:       input.Services,
		OperatingHours: input.OperatingHours,
		IsActive:       true,
	}
	if err := s.repo.CreateFacility(ctx, facility); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create facility")
	}
	return facilityFromModel(facility), nil
}

func (s *service) UpdateFacility(ctx context.Context, id uuid.UUID, input UpdateFacilityInput) (*FacilityDTO, error) {
	facility, err := s.findFacility(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		facility.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		facility.Description = input.Description
	}
	if input.Address != nil {
		facility.Address = strings.TrimSpace(*input.Address)
	}
	if input.City != nil {
		facility.City = strings.TrimSpace(*input.City)
	}
	if input.Phone != nil {
		facility.Phone = input.Phone
	}
	if input.Email != nil {
		facility.Email = input.Email
	}
	if input.Website != nil {
		facility.Website = input.Website
	}
	if input.Services != nil {
		facility.Services = input.Services
	}
	if input.OperatingHours != nil {
		facility.OperatingHours = input.OperatingHours
	}
	if err := s.repo.UpdateFacility(ctx, facility); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update facility")
	}
	return facilityFromModel(facility), nil
}

func (s *service) DeactivateFacility(ctx context.Context, id uuid.UUID) error {
	facility, err := s.findFacility(ctx, id)
	if err != nil {
		return err
	}
	if !facility.IsActive {
		return nil
	}
	facility.IsActive = false
	if err := s.repo.UpdateFacility(ctx, facility); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate facility")
	}
	return nil
}

func (s *service) ListProviders(ctx context.Context, filter ProviderFilter) (*ProviderPage, error) {
	cursor, err := pagination.ParseCursor(filter.Page.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(filter.Page.Limit)
	rows, err := s.repo.ListProviders(ctx, filter, cursor, pagination.LimitWithBuffer(filter.Page.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list providers")
	}

	page := &ProviderPage{Items: make([]ProviderDTO, 0, len(rows))}
	for i := range rows {
		if i == limit {
			last := rows[limit-1]
			page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		page.Items = append(page.Items, *providerFromModel(&rows[i]))
	}
	return page, nil
}

func (s *service) GetProvider(ctx context.Context, id uuid.UUID) (*ProviderDTO, error) {
	provider, err := s.findProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	if !provider.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "provider not found")
	}
	return providerFromModel(provider), nil
}

func (s *service) CreateProvider(ctx context.Context, input CreateProviderInput) (*ProviderDTO, error) {
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}
	if strings.TrimSpace(input.Specialty) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "specialty is required")
	}
	if input.FacilityID != nil {
		if _, err := s.findFacility(ctx, *input.FacilityID); err != nil {
			return nil, err
		}
	}
	provider := &models.HealthcareProvider{
		FacilityID:     input.FacilityID,
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		Specialty:      strings.TrimSpace(input.Specialty),
		Bio:            input.Bio,
		Phone:          input.Phone,
		Email:          input.Email,
		Qualifications: input.Qualifications,
		Availability:   input.Availability,
		IsActive:       true,
	}
	if err := s.repo.CreateProvider(ctx, provider); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create provider")
	}
	return providerFromModel(provider), nil
}

func (s *service) UpdateProvider(ctx context.Context, id uuid.UUID, input UpdateProviderInput) (*ProviderDTO, error) {
	provider, err := s.findProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.FacilityID != nil {
		if _, err := s.findFacility(ctx, *input.FacilityID); err != nil {
			return nil, err
		}
		provider.FacilityID = input.FacilityID
		provider.Facility = nil
	}
	if input.FirstName != nil {
		provider.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		provider.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Specialty != nil {
		provider.Specialty = strings.TrimSpace(*input.Specialty)
	}
	if input.Bio != nil {
		provider.Bio = input.Bio
	}
	if input.Phone != nil {
		provider.Phone = input.Phone
	}
	if input.Email != nil {
		provider.Email = input.Email
	}
	if input.Qualifications != nil {
		provider.Qualifications = input.Qualifications
	}
	if input.Availability != nil {
		provider.Availability = input.Availability
	}
	if err := s.repo.UpdateProvider(ctx, provider); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update provider")
	}
	return providerFromModel(provider), nil
}

func (s *service) DeactivateProvider(ctx context.Context, id uuid.UUID) error {
	provider, err := s.findProvider(ctx, id)
	if err != nil {
		return err
	}
	if !provider.IsActive {
		return nil
	}
	provider.IsActive = false
	if err := s.repo.UpdateProvider(ctx, provider); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate provider")
	}
	return nil
}

func (s *service) findFacility(ctx context.Context, id uuid.UUID) (*models.HealthcareFacility, error) {
	facility, err := s.repo.FindFacilityByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "facility not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load facility")
	}
	return facility, nil
}

func (s *service) findProvider(ctx context.Context, id uuid.UUID) (*models.HealthcareProvider, error) {
	provider, err := s.repo.FindProviderByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "provider not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load provider")
	}
	return provider, nil
}
