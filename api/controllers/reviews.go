package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/api/responses"
	"github.com/carenest/carenest-backend/api/validators"
	"github.com/carenest/carenest-backend/internal/reviews"
	"github.com/carenest/carenest-backend/pkg/logger"
	"github.com/carenest/carenest-backend/pkg/pagination"
)

func CreateFacilityReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return writeReview(svc.CreateFacilityReview, "facilityID", http.StatusCreated, logg)
}

func UpdateFacilityReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return writeReview(svc.UpdateFacilityReview, "facilityID", http.StatusOK, logg)
}

func CreateProviderReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return writeReview(svc.CreateProviderReview, "providerID", http.StatusCreated, logg)
}

func UpdateProviderReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return writeReview(svc.UpdateProviderReview, "providerID", http.StatusOK, logg)
}

func DeleteFacilityReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return deleteReview(svc.DeleteFacilityReview, "facilityID", logg)
}

func DeleteProviderReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return deleteReview(svc.DeleteProviderReview, "providerID", logg)
}

func ListFacilityReviews(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return listReviews(svc.ListFacilityReviews, "facilityID", logg)
}

func ListProviderReviews(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return listReviews(svc.ListProviderReviews, "providerID", logg)
}

func writeReview(write func(ctx context.Context, userID, targetID uuid.UUID, input reviews.ReviewInput) (*reviews.ReviewDTO, error), param string, status int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		targetID, err := validators.ParsePathUUID(chi.URLParam(r, param), param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body reviews.ReviewInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := write(r.Context(), actor, targetID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, dto)
	}
}

func deleteReview(remove func(ctx context.Context, userID, targetID uuid.UUID) error, param string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		targetID, err := validators.ParsePathUUID(chi.URLParam(r, param), param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := remove(r.Context(), actor, targetID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func listReviews(list func(ctx context.Context, targetID uuid.UUID, page pagination.Params) (*reviews.ReviewPage, error), param string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID, err := validators.ParsePathUUID(chi.URLParam(r, param), param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := list(r.Context(), targetID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
