package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	pkgerrors "github.com/carenest/carenest-backend/pkg/errors"
	"github.com/carenest/carenest-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubTargetRepo struct {
	facilities map[uuid.UUID]*models.HealthcareFacility
	providers  map[uuid.UUID]*models.HealthcareProvider
}

func (s *stubTargetRepo) FindFacilityByID(ctx context.Context, id uuid.UUID) (*models.HealthcareFacility, error) {
	f, ok := s.facilities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f, nil
}

func (s *stubTargetRepo) FindProviderByID(ctx context.Context, id uuid.UUID) (*models.HealthcareProvider, error) {
	p, ok := s.providers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

type stubReviewRepo struct {
	facilityReviews map[uuid.UUID]*models.FacilityReview
	recomputed      []uuid.UUID
}

func newStubReviewRepo() *stubReviewRepo {
	return &stubReviewRepo{facilityReviews: map[uuid.UUID]*models.FacilityReview{}}
}

func (s *stubReviewRepo) FindFacilityReview(ctx context.Context, facilityID, userID uuid.UUID) (*models.FacilityReview, error) {
	for _, review := range s.facilityReviews {
		if review.FacilityID == facilityID && review.UserID == userID {
			return review, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubReviewRepo) SaveFacilityReview(ctx context.Context, review *models.FacilityReview) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	s.facilityReviews[review.ID] = review
	return nil
}

func (s *stubReviewRepo) DeleteFacilityReview(ctx context.Context, facilityID, userID uuid.UUID) (int64, error) {
	for id, review := range s.facilityReviews {
		if review.FacilityID == facilityID && review.UserID == userID {
			delete(s.facilityReviews, id)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *stubReviewRepo) ListFacilityReviews(ctx context.Context, facilityID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.FacilityReview, error) {
	var rows []models.FacilityReview
	for _, review := range s.facilityReviews {
		if review.FacilityID == facilityID {
			rows = append(rows, *review)
		}
	}
	return rows, nil
}

func (s *stubReviewRepo) RecomputeFacilityRating(ctx context.Context, facilityID uuid.UUID) error {
	s.recomputed = append(s.recomputed, facilityID)
	return nil
}

func (s *stubReviewRepo) FindProviderReview(ctx context.Context, providerID, userID uuid.UUID) (*models.ProviderReview, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubReviewRepo) SaveProviderReview(ctx context.Context, review *models.ProviderReview) error {
	return nil
}

func (s *stubReviewRepo) DeleteProviderReview(ctx context.Context, providerID, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubReviewRepo) ListProviderReviews(ctx context.Context, providerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ProviderReview, error) {
	return nil, nil
}

func (s *stubReviewRepo) RecomputeProviderRating(ctx context.Context, providerID uuid.UUID) error {
	return nil
}

func buildReviewService(t *testing.T) (Service, *stubReviewRepo, *stubTargetRepo) {
	t.Helper()
	repo := newStubReviewRepo()
	targets := &stubTargetRepo{
		facilities: map[uuid.UUID]*models.HealthcareFacility{},
		providers:  map[uuid.UUID]*models.HealthcareProvider{},
	}
	svc, err := NewService(ServiceParams{
		DB:      stubTxRunner{},
		Repo:    repo,
		Targets: targets,
		TxRepoFactory: func(tx *gorm.DB) reviewRepository {
			return repo
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, targets
}

func TestCreateFacilityReviewValidatesRating(t *testing.T) {
	svc, _, targets := buildReviewService(t)
	facilityID := uuid.New()
	targets.facilities[facilityID] = &models.HealthcareFacility{ID: facilityID, IsActive: true}

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.CreateFacilityReview(context.Background(), uuid.New(), facilityID, ReviewInput{Rating: rating})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("rating %d: expected validation error, got %v", rating, err)
		}
	}
}

func TestCreateFacilityReviewUnknownTarget(t *testing.T) {
	svc, _, _ := buildReviewService(t)

	_, err := svc.CreateFacilityReview(context.Background(), uuid.New(), uuid.New(), ReviewInput{Rating: 4})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateFacilityReviewInactiveTarget(t *testing.T) {
	svc, _, targets := buildReviewService(t)
	facilityID := uuid.New()
	targets.facilities[facilityID] = &models.HealthcareFacility{ID: facilityID, IsActive: false}

	_, err := svc.CreateFacilityReview(context.Background(), uuid.New(), facilityID, ReviewInput{Rating: 4})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for inactive facility, got %v", err)
	}
}

func TestCreateFacilityReviewRejectsSecondSubmission(t *testing.T) {
	svc, repo, targets := buildReviewService(t)
	facilityID := uuid.New()
	userID := uuid.New()
	targets.facilities[facilityID] = &models.HealthcareFacility{ID: facilityID, IsActive: true}

	first, err := svc.CreateFacilityReview(context.Background(), userID, facilityID, ReviewInput{Rating: 3})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err = svc.CreateFacilityReview(context.Background(), userID, facilityID, ReviewInput{Rating: 5})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on second review, got %v", err)
	}

	stored, err := repo.FindFacilityReview(context.Background(), facilityID, userID)
	if err != nil {
		t.Fatalf("load stored review: %v", err)
	}
	if stored.ID != first.ID || stored.Rating != 3 {
		t.Fatalf("expected original review untouched, got id %s rating %d", stored.ID, stored.Rating)
	}
	if len(repo.facilityReviews) != 1 {
		t.Fatalf("expected one stored review, got %d", len(repo.facilityReviews))
	}
}

func TestUpdateFacilityReviewOverwritesExisting(t *testing.T) {
	svc, repo, targets := buildReviewService(t)
	facilityID := uuid.New()
	userID := uuid.New()
	targets.facilities[facilityID] = &models.HealthcareFacility{ID: facilityID, IsActive: true}

	first, err := svc.CreateFacilityReview(context.Background(), userID, facilityID, ReviewInput{Rating: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := svc.UpdateFacilityReview(context.Background(), userID, facilityID, ReviewInput{Rating: 5})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != first.ID {
		t.Fatalf("expected same review row, got %s and %s", first.ID, updated.ID)
	}
	if updated.Rating != 5 {
		t.Fatalf("expected rating 5, got %d", updated.Rating)
	}
	if len(repo.recomputed) != 2 {
		t.Fatalf("expected recompute per write, got %d", len(repo.recomputed))
	}
}

func TestUpdateFacilityReviewMissing(t *testing.T) {
	svc, _, targets := buildReviewService(t)
	facilityID := uuid.New()
	targets.facilities[facilityID] = &models.HealthcareFacility{ID: facilityID, IsActive: true}

	_, err := svc.UpdateFacilityReview(context.Background(), uuid.New(), facilityID, ReviewInput{Rating: 4})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteFacilityReviewMissing(t *testing.T) {
	svc, _, targets := buildReviewService(t)
	facilityID := uuid.New()
	targets.facilities[facilityID] = &models.HealthcareFacility{ID: facilityID, IsActive: true}

	err := svc.DeleteFacilityReview(context.Background(), uuid.New(), facilityID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
