// Package eventlog records domain events (bookings, cancellations, logins)
// into an append-only Postgres table for reporting. Recording failures are
// logged and never surfaced to the caller.
package eventlog

import "context"

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventPaymentCompleted     = "PAYMENT_COMPLETED"
	EventConsultationRecorded = "CONSULTATION_RECORDED"
	EventUserRegistered       = "USER_REGISTERED"
	EventUserLoggedIn         = "USER_LOGGED_IN"
)

type Event struct {
	Type      string
	ActorID   string
	SubjectID string
	Payload   map[string]any
}

type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// Nop is used when no Postgres DSN is configured.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
