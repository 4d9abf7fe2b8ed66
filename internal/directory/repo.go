package directory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/pagination"
)

// Repository exposes directory persistence for facilities and providers.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFacilities returns active facilities matching the filter, newest
// first, fetching one row beyond the limit so callers can detect the
// next page.
func (r *Repository) ListFacilities(ctx context.Context, filter FacilityFilter, cursor *pagination.Cursor, limit int) ([]models.HealthcareFacility, error) {
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if city := strings.TrimSpace(filter.City); city != "" {
		query = query.Where("lower(city) = lower(?)", city)
	}
	if service := strings.TrimSpace(filter.Service); service != "" {
		query = query.Where("? = ANY(services)", service)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.HealthcareFacility
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindFacilityByID loads a facility by id regardless of active state.
func (r *Repository) FindFacilityByID(ctx context.Context, id uuid.UUID) (*models.HealthcareFacility, error) {
	var facility models.HealthcareFacility
	if err := r.db.WithContext(ctx).First(&facility, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &facility, nil
}

// CreateFacility inserts a facility row.
func (r *Repository) CreateFacility(ctx context.Context, facility *models.HealthcareFacility) error {
	return r.db.WithContext(ctx).Create(facility).Error
}

// UpdateFacility persists the facility's mutable fields.
func (r *Repository) UpdateFacility(ctx context.Context, facility *models.HealthcareFacility) error {
	return r.db.WithContext(ctx).Save(facility).Error
}

// ListProviders returns active providers matching the filter, newest
// first, fetching one row beyond the limit.
func (r *Repository) ListProviders(ctx context.Context, filter ProviderFilter, cursor *pagination.Cursor, limit int) ([]models.HealthcareProvider, error) {
	query := r.db.WithContext(ctx).Preload("Facility").Where("is_active = ?", true)
	if specialty := strings.TrimSpace(filter.Specialty); specialty != "" {
		query = query.Where("lower(specialty) = lower(?)", specialty)
	}
	if filter.FacilityID != nil {
		query = query.Where("facility_id = ?", *filter.FacilityID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("(first_name ILIKE ? OR last_name ILIKE ?)", pattern, pattern)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.HealthcareProvider
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindProviderByID loads a provider with its facility.
func (r *Repository) FindProviderByID(ctx context.Context, id uuid.UUID) (*models.HealthcareProvider, error) {
	var provider models.HealthcareProvider
	err := r.db.WithContext(ctx).Preload("Facility").First(&provider, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

// CreateProvider inserts a provider row.
func (r *Repository) CreateProvider(ctx context.Context, provider *models.HealthcareProvider) error {
	return r.db.WithContext(ctx).Create(provider).Error
}

// UpdateProvider persists the provider's mutable fields.
func (r *Repository) UpdateProvider(ctx context.Context, provider *models.HealthcareProvider) error {
	return r.db.WithContext(ctx).Save(provider).Error
}
