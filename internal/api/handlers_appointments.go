package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mediconnect/booking-service/internal/clinic"
)

func bookAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Book(r.Context(), sess, req.DoctorID, req.Date, req.Time, req.Symptoms)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appt)
	}
}

func listAppointmentsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		appointments, err := svc.List(r.Context(), sess)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, appointments)
	}
}

func getAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		appt, err := svc.Get(r.Context(), sess, chi.URLParam(r, "id"))
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appt)
	}
}

func cancelAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		appt, err := svc.Cancel(r.Context(), sess, chi.URLParam(r, "id"))
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appt)
	}
}

func completePaymentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		var req CompletePaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.CompletePayment(r.Context(), sess, chi.URLParam(r, "id"), req.PaymentMethodID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appt)
	}
}

func recordConsultationHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		var req ConsultationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in := clinic.ConsultationInput{
			AppointmentID:   chi.URLParam(r, "id"),
			DurationMinutes: req.DurationMinutes,
			Notes:           req.Notes,
			Diagnosis:       req.Diagnosis,
		}
		for _, p := range req.Prescriptions {
			in.Prescriptions = append(in.Prescriptions, clinic.PrescriptionInput{
				MedicationName: p.MedicationName,
				Dosage:         p.Dosage,
				Frequency:      p.Frequency,
				Duration:       p.Duration,
				Notes:          p.Notes,
			})
		}

		consultation, err := svc.RecordConsultation(r.Context(), sess, in)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, consultation)
	}
}

func listConsultationsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		consultations, err := svc.ListConsultations(r.Context(), sess)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, consultations)
	}
}

func listPrescriptionsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())

		prescriptions, err := svc.ListPrescriptions(r.Context(), sess)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, prescriptions)
	}
}

func listDoctorsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.Doctors(r.Context(), r.URL.Query().Get("specialty"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, doctors)
	}
}

func getDoctorHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctor, err := svc.DoctorByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, doctor)
	}
}

// handleBookingError maps service failures onto distinct machine codes so the
// client can steer the user: no hours that day, outside hours, and slot taken
// each drive a different corrective action.
func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrPatientOnly),
		errors.Is(err, clinic.ErrDoctorOnly):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, clinic.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, clinic.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, clinic.ErrDoctorUnavailable):
		writeError(w, http.StatusConflict, "doctor_unavailable", err.Error())
	case errors.Is(err, clinic.ErrTimeOutsideHours):
		writeError(w, http.StatusConflict, "time_outside_hours", err.Error())
	case errors.Is(err, clinic.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, clinic.ErrSlotBusy):
		writeError(w, http.StatusConflict, "slot_busy", "slot is currently being booked, please retry shortly")
	case errors.Is(err, clinic.ErrAlreadyCompleted),
		errors.Is(err, clinic.ErrNotSchedulable):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, clinic.ErrPaymentDone):
		writeError(w, http.StatusConflict, "payment_already_completed", err.Error())
	case errors.Is(err, clinic.ErrPaymentMethod):
		writeError(w, http.StatusBadRequest, "payment_method_not_found", err.Error())
	case errors.Is(err, clinic.ErrMissingFields),
		errors.Is(err, clinic.ErrMalformedDate),
		errors.Is(err, clinic.ErrMalformedTime):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
