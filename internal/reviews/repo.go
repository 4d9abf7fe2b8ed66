package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/pagination"
)

// Repository exposes review persistence plus the denormalized rating
// recompute for both target kinds.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindFacilityReview(ctx context.Context, facilityID, userID uuid.UUID) (*models.FacilityReview, error) {
	var review models.FacilityReview
	err := r.db.WithContext(ctx).
		First(&review, "facility_id = ? AND user_id = ?", facilityID, userID).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *Repository) SaveFacilityReview(ctx context.Context, review *models.FacilityReview) error {
	return r.db.WithContext(ctx).Save(review).Error
}

func (r *Repository) DeleteFacilityReview(ctx context.Context, facilityID, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Delete(&models.FacilityReview{}, "facility_id = ? AND user_id = ?", facilityID, userID)
	return res.RowsAffected, res.Error
}

func (r *Repository) ListFacilityReviews(ctx context.Context, facilityID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.FacilityReview, error) {
	query := r.db.WithContext(ctx).Preload("User").Where("facility_id = ?", facilityID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.FacilityReview
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RecomputeFacilityRating rewrites the facility's aggregates from its
// review rows. Runs in the same transaction as the review write.
func (r *Repository) RecomputeFacilityRating(ctx context.Context, facilityID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE healthcare_facilities SET
			average_rating = COALESCE((SELECT ROUND(AVG(rating), 2) FROM facility_reviews WHERE facility_id = ?), 0),
			review_count = (SELECT COUNT(*) FROM facility_reviews WHERE facility_id = ?)
		WHERE id = ?`,
		facilityID, facilityID, facilityID).Error
}

func (r *Repository) FindProviderReview(ctx context.Context, providerID, userID uuid.UUID) (*models.ProviderReview, error) {
	var review models.ProviderReview
	err := r.db.WithContext(ctx).
		First(&review, "provider_id = ? AND user_id = ?", providerID, userID).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *Repository) SaveProviderReview(ctx context.Context, review *models.ProviderReview) error {
	return r.db.WithContext(ctx).Save(review).Error
}

func (r *Repository) DeleteProviderReview(ctx context.Context, providerID, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Delete(&models.ProviderReview{}, "provider_id = ? AND user_id = ?", providerID, userID)
	return res.RowsAffected, res.Error
}

func (r *Repository) ListProviderReviews(ctx context.Context, providerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ProviderReview, error) {
	query := r.db.WithContext(ctx).Preload("User").Where("provider_id = ?", providerID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.ProviderReview
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RecomputeProviderRating rewrites the provider's aggregates from its
// review rows.
func (r *Repository) RecomputeProviderRating(ctx context.Context, providerID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE healthcare_providers SET
			average_rating = COALESCE((SELECT ROUND(AVG(rating), 2) FROM provider_reviews WHERE provider_id = ?), 0),
			review_count = (SELECT COUNT(*) FROM provider_reviews WHERE provider_id = ?)
		WHERE id = ?`,
		providerID, providerID, providerID).Error
}
