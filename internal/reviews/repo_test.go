package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/carenest/carenest-backend/pkg/db/models"
)

func openReviewDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE healthcare_facilities (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			average_rating NUMERIC NOT NULL DEFAULT 0,
			review_count INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE facility_reviews (
			id TEXT PRIMARY KEY,
			facility_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			rating INTEGER NOT NULL,
			comment TEXT,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (facility_id, user_id)
		)`,
		`CREATE TABLE healthcare_providers (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			average_rating NUMERIC NOT NULL DEFAULT 0,
			review_count INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE provider_reviews (
			id TEXT PRIMARY KEY,
			provider_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			rating INTEGER NOT NULL,
			comment TEXT,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (provider_id, user_id)
		)`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func facilityAggregates(t *testing.T, conn *gorm.DB, facilityID uuid.UUID) (decimal.Decimal, int) {
	t.Helper()
	var row struct {
		AverageRating decimal.Decimal
		ReviewCount   int
	}
	err := conn.Raw(
		"SELECT average_rating, review_count FROM healthcare_facilities WHERE id = ?",
		facilityID,
	).Scan(&row).Error
	require.NoError(t, err)
	return row.AverageRating, row.ReviewCount
}

func addFacilityReview(t *testing.T, repo *Repository, facilityID, userID uuid.UUID, rating int) {
	t.Helper()
	err := repo.SaveFacilityReview(context.Background(), &models.FacilityReview{
		ID:         uuid.New(),
		FacilityID: facilityID,
		UserID:     userID,
		Rating:     rating,
	})
	require.NoError(t, err)
}

func TestFacilityRatingRecompute(t *testing.T) {
	conn := openReviewDB(t)
	repo := NewRepository(conn)

	facilityID := uuid.New()
	require.NoError(t, conn.Exec(
		"INSERT INTO healthcare_facilities (id, name) VALUES (?, ?)",
		facilityID, "Riverside Clinic",
	).Error)

	raters := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for i, rating := range []int{4, 5, 3} {
		addFacilityReview(t, repo, facilityID, raters[i], rating)
	}
	require.NoError(t, repo.RecomputeFacilityRating(context.Background(), facilityID))

	avg, count := facilityAggregates(t, conn, facilityID)
	require.True(t, avg.Equal(decimal.New(4, 0)), "expected average 4, got %s", avg)
	require.Equal(t, 3, count)

	// Dropping the 3-star review moves the average to 4.5.
	affected, err := repo.DeleteFacilityReview(context.Background(), facilityID, raters[2])
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)
	require.NoError(t, repo.RecomputeFacilityRating(context.Background(), facilityID))

	avg, count = facilityAggregates(t, conn, facilityID)
	require.True(t, avg.Equal(decimal.RequireFromString("4.5")), "expected average 4.5, got %s", avg)
	require.Equal(t, 2, count)
}

func TestFacilityRatingRecomputeEmpty(t *testing.T) {
	conn := openReviewDB(t)
	repo := NewRepository(conn)

	facilityID := uuid.New()
	userID := uuid.New()
	require.NoError(t, conn.Exec(
		"INSERT INTO healthcare_facilities (id, name) VALUES (?, ?)",
		facilityID, "Riverside Clinic",
	).Error)

	addFacilityReview(t, repo, facilityID, userID, 5)
	require.NoError(t, repo.RecomputeFacilityRating(context.Background(), facilityID))

	affected, err := repo.DeleteFacilityReview(context.Background(), facilityID, userID)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)
	require.NoError(t, repo.RecomputeFacilityRating(context.Background(), facilityID))

	avg, count := facilityAggregates(t, conn, facilityID)
	require.True(t, avg.IsZero(), "expected zero average, got %s", avg)
	require.Equal(t, 0, count)
}

func TestFacilityReviewUniquePerUser(t *testing.T) {
	conn := openReviewDB(t)
	repo := NewRepository(conn)

	facilityID := uuid.New()
	userID := uuid.New()
	addFacilityReview(t, repo, facilityID, userID, 4)

	err := repo.SaveFacilityReview(context.Background(), &models.FacilityReview{
		ID:         uuid.New(),
		FacilityID: facilityID,
		UserID:     userID,
		Rating:     2,
	})
	require.Error(t, err)

	// Re-saving the existing row updates instead of conflicting.
	review, err := repo.FindFacilityReview(context.Background(), facilityID, userID)
	require.NoError(t, err)
	review.Rating = 2
	require.NoError(t, repo.SaveFacilityReview(context.Background(), review))

	updated, err := repo.FindFacilityReview(context.Background(), facilityID, userID)
	require.NoError(t, err)
	require.Equal(t, 2, updated.Rating)
}

func TestProviderRatingRecompute(t *testing.T) {
	conn := openReviewDB(t)
	repo := NewRepository(conn)

	providerID := uuid.New()
	require.NoError(t, conn.Exec(
		"INSERT INTO healthcare_providers (id, first_name, last_name) VALUES (?, ?, ?)",
		providerID, "Dana", "Reyes",
	).Error)

	for _, rating := range []int{5, 4} {
		err := repo.SaveProviderReview(context.Background(), &models.ProviderReview{
			ID:         uuid.New(),
			ProviderID: providerID,
			UserID:     uuid.New(),
			Rating:     rating,
		})
		require.NoError(t, err)
	}
	require.NoError(t, repo.RecomputeProviderRating(context.Background(), providerID))

	var row struct {
		AverageRating decimal.Decimal
		ReviewCount   int
	}
	err := conn.Raw(
		"SELECT average_rating, review_count FROM healthcare_providers WHERE id = ?",
		providerID,
	).Scan(&row).Error
	require.NoError(t, err)
	require.True(t, row.AverageRating.Equal(decimal.RequireFromString("4.5")), "expected 4.5, got %s", row.AverageRating)
	require.Equal(t, 2, row.ReviewCount)
}
