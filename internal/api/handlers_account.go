package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mediconnect/booking-service/internal/auth"
	"github.com/mediconnect/booking-service/internal/clinic"
)

func getProfileHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		user, err := svc.UserByID(r.Context(), sess.UserID)
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

func updateProfileHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		var req ProfileUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		user, err := svc.UpdateProfile(r.Context(), sess, auth.ProfileUpdate{
			Name:        req.Name,
			Phone:       req.Phone,
			DateOfBirth: req.DateOfBirth,
			Patient:     req.Patient,
			Doctor:      req.Doctor,
		})
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

func listPaymentMethodsHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		methods, err := svc.PaymentMethods(r.Context(), sess)
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, methods)
	}
}

func addPaymentMethodHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		var req PaymentMethodRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		pm, err := svc.AddPaymentMethod(r.Context(), sess, clinic.PaymentMethod{
			Type:      req.Type,
			LastFour:  req.LastFour,
			CardType:  req.CardType,
			IsDefault: req.IsDefault,
			Holder:    req.Holder,
		})
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, pm)
	}
}

func removePaymentMethodHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		if err := svc.RemovePaymentMethod(r.Context(), sess, chi.URLParam(r, "id")); err != nil {
			handleAccountError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, clinic.ErrPatientOnly):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, clinic.ErrWindowsOverlap),
		errors.Is(err, clinic.ErrMalformedTime):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
