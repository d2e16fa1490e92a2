package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediconnect/booking-service/internal/eventlog"
	redisclient "github.com/mediconnect/booking-service/internal/redis"
)

var (
	ErrPatientOnly      = errors.New("only patients can perform this action")
	ErrDoctorOnly       = errors.New("only doctors can perform this action")
	ErrMissingFields    = errors.New("doctor, date, and time are required")
	ErrSlotBusy         = errors.New("slot is currently being booked, please retry")
	ErrAlreadyCompleted = errors.New("appointment is already completed")
	ErrPaymentDone      = errors.New("payment is already completed")
	ErrPaymentMethod    = errors.New("payment method not found")
	ErrNotSchedulable   = errors.New("appointment is not in a schedulable state")
)

// Service owns the appointment lifecycle: booking, cancellation, payment
// transitions, and the consultation flow that completes an appointment.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	events eventlog.Recorder
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, events eventlog.Recorder) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		events: events,
		now:    time.Now,
	}
}

// Book reserves a slot for the calling patient. Availability is checked
// before conflicts so "doctor has no hours" and "time outside hours" are
// reported in preference to "slot taken". The conflict check and append run
// inside the appointments lock so the one-non-cancelled-appointment-per-slot
// invariant holds under concurrent callers.
func (s *Service) Book(ctx context.Context, sess Session, doctorID, date, clock, symptoms string) (*Appointment, error) {
	if sess.Role != RolePatient {
		return nil, ErrPatientOnly
	}
	if doctorID == "" || date == "" || clock == "" {
		return nil, ErrMissingFields
	}

	doctor, err := s.DoctorByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	var availability Availability
	if doctor.Doctor != nil {
		availability = doctor.Doctor.Availability
	}
	if err := CheckAvailability(availability, date, clock); err != nil {
		return nil, err
	}

	var created *Appointment

	err = s.locker.WithLock(ctx, LockAppointments, func(lockCtx context.Context) error {
		appointments, err := s.repo.Appointments(lockCtx)
		if err != nil {
			return fmt.Errorf("load appointments: %w", err)
		}

		if conflict := FindConflict(appointments, doctorID, date, clock); conflict != nil {
			return ErrSlotTaken
		}

		now := s.now()
		appt := Appointment{
			ID:            uuid.NewString(),
			PatientID:     sess.UserID,
			DoctorID:      doctorID,
			Date:          date,
			Time:          clock,
			Status:        StatusScheduled,
			PaymentStatus: PaymentPending,
			Symptoms:      symptoms,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		appointments = append(appointments, appt)
		if err := s.repo.SaveAppointments(lockCtx, appointments); err != nil {
			return fmt.Errorf("save appointments: %w", err)
		}

		created = &appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}

	s.events.Record(ctx, eventlog.Event{
		Type:      eventlog.EventAppointmentBooked,
		ActorID:   sess.UserID,
		SubjectID: created.ID,
		Payload: map[string]any{
			"doctor_id": doctorID,
			"date":      date,
			"time":      clock,
		},
	})

	return created, nil
}

// Cancel transitions the caller's own appointment to cancelled. Cancelling an
// already-cancelled appointment is a no-op, not an error; completed
// appointments cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, sess Session, appointmentID string) (*Appointment, error) {
	var cancelled *Appointment
	var changed bool

	err := s.locker.WithLock(ctx, LockAppointments, func(lockCtx context.Context) error {
		appointments, err := s.repo.Appointments(lockCtx)
		if err != nil {
			return fmt.Errorf("load appointments: %w", err)
		}

		idx := s.findOwned(appointments, sess, appointmentID)
		if idx < 0 {
			return ErrAppointmentNotFound
		}

		switch appointments[idx].Status {
		case StatusCancelled:
			cancelled = &appointments[idx]
			return nil
		case StatusCompleted:
			return ErrAlreadyCompleted
		}

		appointments[idx].Status = StatusCancelled
		appointments[idx].UpdatedAt = s.now()
		if err := s.repo.SaveAppointments(lockCtx, appointments); err != nil {
			return fmt.Errorf("save appointments: %w", err)
		}

		cancelled = &appointments[idx]
		changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}

	if changed {
		s.events.Record(ctx, eventlog.Event{
			Type:      eventlog.EventAppointmentCancelled,
			ActorID:   sess.UserID,
			SubjectID: cancelled.ID,
			Payload:   map[string]any{"doctor_id": cancelled.DoctorID, "date": cancelled.Date, "time": cancelled.Time},
		})
	}

	return cancelled, nil
}

// CompletePayment transitions the payment status of the calling patient's
// appointment from pending to completed. The payment method must exist on the
// caller's profile.
func (s *Service) CompletePayment(ctx context.Context, sess Session, appointmentID, paymentMethodID string) (*Appointment, error) {
	if sess.Role != RolePatient {
		return nil, ErrPatientOnly
	}

	if err := s.verifyPaymentMethod(ctx, sess.UserID, paymentMethodID); err != nil {
		return nil, err
	}

	var paid *Appointment

	err := s.locker.WithLock(ctx, LockAppointments, func(lockCtx context.Context) error {
		appointments, err := s.repo.Appointments(lockCtx)
		if err != nil {
			return fmt.Errorf("load appointments: %w", err)
		}

		idx := -1
		for i := range appointments {
			if appointments[i].ID == appointmentID && appointments[i].PatientID == sess.UserID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrAppointmentNotFound
		}

		if appointments[idx].PaymentStatus == PaymentCompleted {
			return ErrPaymentDone
		}

		appointments[idx].PaymentStatus = PaymentCompleted
		appointments[idx].UpdatedAt = s.now()
		if err := s.repo.SaveAppointments(lockCtx, appointments); err != nil {
			return fmt.Errorf("save appointments: %w", err)
		}

		paid = &appointments[idx]
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}

	s.events.Record(ctx, eventlog.Event{
		Type:      eventlog.EventPaymentCompleted,
		ActorID:   sess.UserID,
		SubjectID: paid.ID,
		Payload:   map[string]any{"payment_method_id": paymentMethodID},
	})

	return paid, nil
}

// List returns the appointments visible to the caller: patients see the ones
// they booked, doctors the ones booked with them. The filter is applied here,
// never left to the client.
func (s *Service) List(ctx context.Context, sess Session) ([]Appointment, error) {
	appointments, err := s.repo.Appointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	visible := make([]Appointment, 0, len(appointments))
	for _, a := range appointments {
		if s.owns(&a, sess) {
			visible = append(visible, a)
		}
	}
	return visible, nil
}

// Get returns a single appointment if it is visible to the caller.
func (s *Service) Get(ctx context.Context, sess Session, appointmentID string) (*Appointment, error) {
	appointments, err := s.repo.Appointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	idx := s.findOwned(appointments, sess, appointmentID)
	if idx < 0 {
		return nil, ErrAppointmentNotFound
	}
	return &appointments[idx], nil
}

type ConsultationInput struct {
	AppointmentID   string
	DurationMinutes int
	Notes           string
	Diagnosis       string
	Prescriptions   []PrescriptionInput
}

type PrescriptionInput struct {
	MedicationName string
	Dosage         string
	Frequency      string
	Duration       string
	Notes          string
}

// RecordConsultation lets a doctor write up a consultation for their own
// scheduled appointment. Recording it transitions the appointment to
// completed, which is terminal.
func (s *Service) RecordConsultation(ctx context.Context, sess Session, in ConsultationInput) (*Consultation, error) {
	if sess.Role != RoleDoctor {
		return nil, ErrDoctorOnly
	}

	var consultation *Consultation

	err := s.locker.WithLock(ctx, LockAppointments, func(lockCtx context.Context) error {
		appointments, err := s.repo.Appointments(lockCtx)
		if err != nil {
			return fmt.Errorf("load appointments: %w", err)
		}

		idx := -1
		for i := range appointments {
			if appointments[i].ID == in.AppointmentID && appointments[i].DoctorID == sess.UserID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrAppointmentNotFound
		}
		if appointments[idx].Status != StatusScheduled {
			return ErrNotSchedulable
		}

		now := s.now()
		consultation = &Consultation{
			ID:              uuid.NewString(),
			AppointmentID:   appointments[idx].ID,
			PatientID:       appointments[idx].PatientID,
			DoctorID:        sess.UserID,
			Date:            appointments[idx].Date,
			DurationMinutes: in.DurationMinutes,
			Notes:           in.Notes,
			Diagnosis:       in.Diagnosis,
			CreatedAt:       now,
		}

		appointments[idx].Status = StatusCompleted
		appointments[idx].UpdatedAt = now
		if err := s.repo.SaveAppointments(lockCtx, appointments); err != nil {
			return fmt.Errorf("save appointments: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}

	if err := s.appendConsultation(ctx, *consultation, in.Prescriptions); err != nil {
		return nil, err
	}

	s.events.Record(ctx, eventlog.Event{
		Type:      eventlog.EventConsultationRecorded,
		ActorID:   sess.UserID,
		SubjectID: consultation.ID,
		Payload:   map[string]any{"appointment_id": consultation.AppointmentID},
	})

	return consultation, nil
}

func (s *Service) appendConsultation(ctx context.Context, c Consultation, inputs []PrescriptionInput) error {
	err := s.locker.WithLock(ctx, LockConsultations, func(lockCtx context.Context) error {
		consultations, err := s.repo.Consultations(lockCtx)
		if err != nil {
			return fmt.Errorf("load consultations: %w", err)
		}
		consultations = append(consultations, c)
		return s.repo.SaveConsultations(lockCtx, consultations)
	})
	if err != nil {
		return err
	}

	if len(inputs) == 0 {
		return nil
	}

	return s.locker.WithLock(ctx, LockPrescriptions, func(lockCtx context.Context) error {
		prescriptions, err := s.repo.Prescriptions(lockCtx)
		if err != nil {
			return fmt.Errorf("load prescriptions: %w", err)
		}
		for _, in := range inputs {
			prescriptions = append(prescriptions, Prescription{
				ID:             uuid.NewString(),
				ConsultationID: c.ID,
				PatientID:      c.PatientID,
				MedicationName: in.MedicationName,
				Dosage:         in.Dosage,
				Frequency:      in.Frequency,
				Duration:       in.Duration,
				Notes:          in.Notes,
				IssuedDate:     c.Date,
				Status:         PrescriptionActive,
			})
		}
		return s.repo.SavePrescriptions(lockCtx, prescriptions)
	})
}

// ListConsultations returns the caller's consultations, role-filtered the
// same way as List.
func (s *Service) ListConsultations(ctx context.Context, sess Session) ([]Consultation, error) {
	consultations, err := s.repo.Consultations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load consultations: %w", err)
	}

	visible := make([]Consultation, 0, len(consultations))
	for _, c := range consultations {
		if (sess.Role == RolePatient && c.PatientID == sess.UserID) ||
			(sess.Role == RoleDoctor && c.DoctorID == sess.UserID) {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// ListPrescriptions returns prescriptions issued to the calling patient, or
// ones issued by the calling doctor's consultations.
func (s *Service) ListPrescriptions(ctx context.Context, sess Session) ([]Prescription, error) {
	prescriptions, err := s.repo.Prescriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prescriptions: %w", err)
	}

	if sess.Role == RolePatient {
		visible := make([]Prescription, 0, len(prescriptions))
		for _, p := range prescriptions {
			if p.PatientID == sess.UserID {
				visible = append(visible, p)
			}
		}
		return visible, nil
	}

	consultations, err := s.ListConsultations(ctx, sess)
	if err != nil {
		return nil, err
	}
	mine := make(map[string]bool, len(consultations))
	for _, c := range consultations {
		mine[c.ID] = true
	}

	visible := make([]Prescription, 0, len(prescriptions))
	for _, p := range prescriptions {
		if mine[p.ConsultationID] {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// Doctors lists doctor users, optionally filtered by specialty. The users
// collection is the canonical doctor source.
func (s *Service) Doctors(ctx context.Context, specialty string) ([]User, error) {
	users, err := s.repo.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	doctors := make([]User, 0)
	for _, u := range users {
		if u.Role != RoleDoctor {
			continue
		}
		if specialty != "" && (u.Doctor == nil || !strings.EqualFold(u.Doctor.Specialty, specialty)) {
			continue
		}
		doctors = append(doctors, u)
	}
	return doctors, nil
}

func (s *Service) DoctorByID(ctx context.Context, id string) (*User, error) {
	users, err := s.repo.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for i := range users {
		if users[i].ID == id && users[i].Role == RoleDoctor {
			return &users[i], nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (s *Service) owns(a *Appointment, sess Session) bool {
	switch sess.Role {
	case RolePatient:
		return a.PatientID == sess.UserID
	case RoleDoctor:
		return a.DoctorID == sess.UserID
	}
	return false
}

func (s *Service) findOwned(appointments []Appointment, sess Session, id string) int {
	for i := range appointments {
		if appointments[i].ID == id && s.owns(&appointments[i], sess) {
			return i
		}
	}
	return -1
}

func (s *Service) verifyPaymentMethod(ctx context.Context, userID, paymentMethodID string) error {
	if paymentMethodID == "" {
		return ErrPaymentMethod
	}
	users, err := s.repo.Users(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		if u.ID != userID || u.Patient == nil {
			continue
		}
		for _, pm := range u.Patient.PaymentMethods {
			if pm.ID == paymentMethodID {
				return nil
			}
		}
	}
	return ErrPaymentMethod
}
