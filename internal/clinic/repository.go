package clinic

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all record-store interactions needed by the services.
// Collections are read and written whole; callers serialize mutations with a
// Locker.
type Repository interface {
	Users(ctx context.Context) ([]User, error)
	SaveUsers(ctx context.Context, users []User) error

	Appointments(ctx context.Context) ([]Appointment, error)
	SaveAppointments(ctx context.Context, appointments []Appointment) error

	Consultations(ctx context.Context) ([]Consultation, error)
	SaveConsultations(ctx context.Context, consultations []Consultation) error

	Prescriptions(ctx context.Context) ([]Prescription, error)
	SavePrescriptions(ctx context.Context, prescriptions []Prescription) error
}

// Collection lock keys. Whole collections live under single store keys, so
// mutations lock the collection rather than an individual record.
const (
	LockUsers         = "collection:users"
	LockAppointments  = "collection:appointments"
	LockConsultations = "collection:consultations"
	LockPrescriptions = "collection:prescriptions"
	LockOTPs          = "collection:otps"
)
