package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/pkg/db/models"
)

// ReviewDTO is the API shape of a review, independent of target kind.
type ReviewDTO struct {
	ID           uuid.UUID `json:"id"`
	TargetID     uuid.UUID `json:"target_id"`
	UserID       uuid.UUID `json:"user_id"`
	ReviewerName string    `json:"reviewer_name,omitempty"`
	Rating       int       `json:"rating"`
	Comment      *string   `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ReviewInput carries a submitted rating and optional comment.
type ReviewInput struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// ReviewPage is a cursor page of reviews.
type ReviewPage struct {
	Items      []ReviewDTO `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func reviewerName(user *models.User) string {
	if user == nil {
		return ""
	}
	return user.FirstName + " " + user.LastName
}

func facilityReviewFromModel(r *models.FacilityReview) *ReviewDTO {
	return &ReviewDTO{
		ID:           r.ID,
		TargetID:     r.FacilityID,
		UserID:       r.UserID,
		ReviewerName: reviewerName(r.User),
		Rating:       r.Rating,
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func providerReviewFromModel(r *models.ProviderReview) *ReviewDTO {
	return &ReviewDTO{
		ID:           r.ID,
		TargetID:     r.ProviderID,
		UserID:       r.UserID,
		ReviewerName: reviewerName(r.User),
		Rating:       r.Rating,
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
