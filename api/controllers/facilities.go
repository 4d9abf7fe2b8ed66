package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carenest/carenest-backend/api/responses"
	"github.com/carenest/carenest-backend/api/validators"
	"github.com/carenest/carenest-backend/internal/directory"
	"github.com/carenest/carenest-backend/pkg/logger"
)

// ListFacilities returns the public facility directory.
func ListFacilities(svc directory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := directory.FacilityFilter{
			City:    strings.TrimSpace(r.URL.Query().Get("city")),
			Service: strings.TrimSpace(r.URL.Query().Get("service")),
			Search:  strings.TrimSpace(r.URL.Query().Get("q")),
			Page:    page,
		}

		result, err := svc.ListFacilities(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetFacility(svc directory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		facilityID, err := validators.ParsePathUUID(chi.URLParam(r, "facilityID"), "facilityID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetFacility(r.Context(), facilityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CreateFacility registers a facility. Admin surface only.
func CreateFacility(svc directory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body directory.CreateFacilityInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateFacility(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func UpdateFacility(svc directory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		facilityID, err := validators.ParsePathUUID(chi.URLParam(r, "facilityID"), "facilityID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body directory.UpdateFacilityInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateFacility(r.Context(), facilityID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func DeactivateFacility(svc directory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		facilityID, err := validators.ParsePathUUID(chi.URLParam(r, "facilityID"), "facilityID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeactivateFacility(r.Context(), facilityID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
