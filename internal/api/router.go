package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mediconnect/booking-service/internal/auth"
	"github.com/mediconnect/booking-service/internal/clinic"
)

type RouterConfig struct {
	Auth    *auth.Service
	Clinic  *clinic.Service
	Tokens  *auth.TokenIssuer
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/auth/register", registerHandler(cfg.Auth))
	r.Post("/auth/login", loginHandler(cfg.Auth))
	r.Post("/auth/refresh", refreshHandler(cfg.Auth))
	r.Post("/auth/otp/send", sendOTPHandler(cfg.Auth))

	// Everything below requires a valid session.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens))

		r.Get("/doctors", listDoctorsHandler(cfg.Clinic))
		r.Get("/doctors/{id}", getDoctorHandler(cfg.Clinic))

		r.Get("/appointments", listAppointmentsHandler(cfg.Clinic))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Clinic))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Clinic))

		r.With(RequireRole(clinic.RolePatient)).Post("/appointments", bookAppointmentHandler(cfg.Clinic))
		r.With(RequireRole(clinic.RolePatient)).Post("/appointments/{id}/pay", completePaymentHandler(cfg.Clinic))
		r.With(RequireRole(clinic.RoleDoctor)).Post("/appointments/{id}/consultation", recordConsultationHandler(cfg.Clinic))

		r.Get("/consultations", listConsultationsHandler(cfg.Clinic))
		r.Get("/prescriptions", listPrescriptionsHandler(cfg.Clinic))

		r.Get("/profile", getProfileHandler(cfg.Auth))
		r.Patch("/profile", updateProfileHandler(cfg.Auth))

		r.With(RequireRole(clinic.RolePatient)).Route("/payment-methods", func(r chi.Router) {
			r.Get("/", listPaymentMethodsHandler(cfg.Auth))
			r.Post("/", addPaymentMethodHandler(cfg.Auth))
			r.Delete("/{id}", removePaymentMethodHandler(cfg.Auth))
		})
	})

	return r
}
