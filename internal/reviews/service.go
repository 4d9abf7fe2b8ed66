package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db"
	"github.com/carenest/carenest-backend/pkg/db/models"
	pkgerrors "github.com/carenest/carenest-backend/pkg/errors"
	"github.com/carenest/carenest-backend/pkg/pagination"
)

// Service covers review submission and browsing for facilities and
// providers. A write and its rating recompute share one transaction.
// Each user gets at most one review per target: create rejects a second
// submission, update overwrites the existing one.
type Service interface {
	CreateFacilityReview(ctx context.Context, userID, facilityID uuid.UUID, input ReviewInput) (*ReviewDTO, error)
	UpdateFacilityReview(ctx context.Context, userID, facilityID uuid.UUID, input ReviewInput) (*ReviewDTO, error)
	DeleteFacilityReview(ctx context.Context, userID, facilityID uuid.UUID) error
	ListFacilityReviews(ctx context.Context, facilityID uuid.UUID, page pagination.Params) (*ReviewPage, error)

	CreateProviderReview(ctx context.Context, userID, providerID uuid.UUID, input ReviewInput) (*ReviewDTO, error)
	UpdateProviderReview(ctx context.Context, userID, providerID uuid.UUID, input ReviewInput) (*ReviewDTO, error)
	DeleteProviderReview(ctx context.Context, userID, providerID uuid.UUID) error
	ListProviderReviews(ctx context.Context, providerID uuid.UUID, page pagination.Params) (*ReviewPage, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reviewRepository interface {
	FindFacilityReview(ctx context.Context, facilityID, userID uuid.UUID) (*models.FacilityReview, error)
	SaveFacilityReview(ctx context.Context, review *models.FacilityReview) error
	DeleteFacilityReview(ctx context.Context, facilityID, userID uuid.UUID) (int64, error)
	ListFacilityReviews(ctx context.Context, facilityID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.FacilityReview, error)
	RecomputeFacilityRating(ctx context.Context, facilityID uuid.UUID) error

	FindProviderReview(ctx context.Context, providerID, userID uuid.UUID) (*models.ProviderReview, error)
	SaveProviderReview(ctx context.Context, review *models.ProviderReview) error
	DeleteProviderReview(ctx context.Context, providerID, userID uuid.UUID) (int64, error)
	ListProviderReviews(ctx context.Context, providerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ProviderReview, error)
	RecomputeProviderRating(ctx context.Context, providerID uuid.UUID) error
}

type targetRepository interface {
	FindFacilityByID(ctx context.Context, id uuid.UUID) (*models.HealthcareFacility, error)
	FindProviderByID(ctx context.Context, id uuid.UUID) (*models.HealthcareProvider, error)
}

type service struct {
	db      txRunner
	repo    reviewRepository
	targets targetRepository
	txRepo  func(tx *gorm.DB) reviewRepository
}

// ServiceParams wires the review service dependencies.
type ServiceParams struct {
	DB      txRunner
	Repo    reviewRepository
	Targets targetRepository

	// Optional tx-scoped repo factory, stubbable in tests.
	TxRepoFactory func(tx *gorm.DB) reviewRepository
}

// NewService validates dependencies and builds the review service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("reviews service requires a transaction runner")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("reviews service requires a review repository")
	}
	if params.Targets == nil {
		return nil, fmt.Errorf("reviews service requires a target repository")
	}
	svc := &service{
		db:      params.DB,
		repo:    params.Repo,
		targets: params.Targets,
		txRepo:  params.TxRepoFactory,
	}
	if svc.txRepo == nil {
		svc.txRepo = func(tx *gorm.DB) reviewRepository { return NewRepository(tx) }
	}
	return svc, nil
}

func (s *service) CreateFacilityReview(ctx context.Context, userID, facilityID uuid.UUID, input ReviewInput) (*ReviewDTO, error) {
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}
	if err := s.requireActiveFacility(ctx, facilityID); err != nil {
		return nil, err
	}
	review := &models.FacilityReview{FacilityID: facilityID, UserID: userID, Rating: input.Rating, Comment: input.Comment}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		if _, err := repo.FindFacilityReview(ctx, facilityID, userID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "review already submitted")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
		}
		if err := repo.SaveFacilityReview(ctx, review); err != nil {
			if db.IsUniqueViolation(err, "ux_facility_reviews_target_user") {
				return pkgerrors.New(pkgerrors.CodeConflict, "review already submitted")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save review")
		}
		return repo.RecomputeFacilityRating(ctx, facilityID)
	})
	if err != nil {
		return nil, err
	}
	return facilityReviewFromModel(review), nil
}

func (s *service) UpdateFacilityReview(ctx context.Context, userID, facilityID uuid.UUID, input ReviewInput) (*ReviewDTO, error) {
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}
	if err := s.requireActiveFacility(ctx, facilityID); err != nil {
		return nil, err
	}
	var result *models.FacilityReview
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		review, err := repo.FindFacilityReview(ctx, facilityID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
		}
		review.Rating = input.Rating
		review.Comment = input.Comment
		if err := repo.SaveFacilityReview(ctx, review); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save review")
		}
		result = review
		return repo.RecomputeFacilityRating(ctx, facilityID)
	})
	if err != nil {
		return nil, err
	}
	return facilityReviewFromModel(result), nil
}

func (s *service) DeleteFacilityReview(ctx context.Context, userID, facilityID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		affected, err := repo.DeleteFacilityReview(ctx, facilityID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete review")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return repo.RecomputeFacilityRating(ctx, facilityID)
	})
}

func (s *service) ListFacilityReviews(ctx context.Context, facilityID uuid.UUID, page pagination.Params) (*ReviewPage, error) {
	if err := s.requireActiveFacility(ctx, facilityID); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(page.Limit)
	rows, err := s.repo.ListFacilityReviews(ctx, facilityID, cursor, pagination.LimitWithBuffer(page.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	out := &ReviewPage{Items: make([]ReviewDTO, 0, len(rows))}
	for i := range rows {
		if i == limit {
			last := rows[limit-1]
			out.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		out.Items = append(out.Items, *facilityReviewFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) CreateProviderReview(ctx context.Context, userID, providerID uuid.UUID, input ReviewInput) (*ReviewDTO, error) {
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}
	if err := s.requireActiveProvider(ctx, providerID); err != nil {
		return nil, err
	}
	review := &models.ProviderReview{ProviderID: providerID, UserID: userID, Rating: input.Rating, Comment: input.Comment}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		if _, err := repo.FindProviderReview(ctx, providerID, userID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "review already submitted")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
		}
		if err := repo.SaveProviderReview(ctx, review); err != nil {
			if db.IsUniqueViolation(err, "ux_provider_reviews_target_user") {
				return pkgerrors.New(pkgerrors.CodeConflict, "review already submitted")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save review")
		}
		return repo.RecomputeProviderRating(ctx, providerID)
	})
	if err != nil {
		return nil, err
	}
	return providerReviewFromModel(review), nil
}

func (s *service) UpdateProviderReview(ctx context.Context, userID, providerID uuid.UUID, input ReviewInput) (*ReviewDTO, error) {
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}
	if err := s.requireActiveProvider(ctx, providerID); err != nil {
		return nil, err
	}
	var result *models.ProviderReview
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		review, err := repo.FindProviderReview(ctx, providerID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
		}
		review.Rating = input.Rating
		review.Comment = input.Comment
		if err := repo.SaveProviderReview(ctx, review); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save review")
		}
		result = review
		return repo.RecomputeProviderRating(ctx, providerID)
	})
	if err != nil {
		return nil, err
	}
	return providerReviewFromModel(result), nil
}

func (s *service) DeleteProviderReview(ctx context.Context, userID, providerID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		affected, err := repo.DeleteProviderReview(ctx, providerID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete review")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return repo.RecomputeProviderRating(ctx, providerID)
	})
}

func (s *service) ListProviderReviews(ctx context.Context, providerID uuid.UUID, page pagination.Params) (*ReviewPage, error) {
	if err := s.requireActiveProvider(ctx, providerID); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(page.Limit)
	rows, err := s.repo.ListProviderReviews(ctx, providerID, cursor, pagination.LimitWithBuffer(page.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	out := &ReviewPage{Items: make([]ReviewDTO, 0, len(rows))}
	for i := range rows {
		if i == limit {
			last := rows[limit-1]
			out.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		out.Items = append(out.Items, *providerReviewFromModel(&rows[i]))
	}
	return out, nil
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	return nil
}

func (s *service) requireActiveFacility(ctx context.Context, id uuid.UUID) error {
	facility, err := s.targets.FindFacilityByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "facility not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load facility")
	}
	if !facility.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "facility not found")
	}
	return nil
}

func (s *service) requireActiveProvider(ctx context.Context, id uuid.UUID) error {
	provider, err := s.targets.FindProviderByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "provider not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load provider")
	}
	if !provider.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "provider not found")
	}
	return nil
}
