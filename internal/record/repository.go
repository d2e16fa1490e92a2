// Package record implements the typed collection accessors over the
// key-value store. Each collection is one JSON array under its own key.
package record

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mediconnect/booking-service/internal/auth"
	"github.com/mediconnect/booking-service/internal/clinic"
	"github.com/mediconnect/booking-service/internal/kvstore"
)

const (
	keyUsers         = "users"
	keyAppointments  = "appointments"
	keyConsultations = "consultations"
	keyPrescriptions = "prescriptions"
	keyOTPs          = "otps"
	keySchemaVersion = "schemaVersion"
)

type Repository struct {
	store kvstore.Store
}

func New(store kvstore.Store) *Repository {
	return &Repository{store: store}
}

// storedUser adds the password hash back to the wire shape; clinic.User
// excludes it from JSON so it can never leak through an API response.
type storedUser struct {
	clinic.User
	PasswordHash string `json:"passwordHash,omitempty"`
}

func (r *Repository) Users(ctx context.Context) ([]clinic.User, error) {
	var stored []storedUser
	if err := r.getJSON(ctx, keyUsers, &stored); err != nil {
		return nil, err
	}
	users := make([]clinic.User, len(stored))
	for i := range stored {
		users[i] = stored[i].User
		users[i].PasswordHash = stored[i].PasswordHash
	}
	return users, nil
}

func (r *Repository) SaveUsers(ctx context.Context, users []clinic.User) error {
	stored := make([]storedUser, len(users))
	for i := range users {
		stored[i] = storedUser{User: users[i], PasswordHash: users[i].PasswordHash}
	}
	return r.setJSON(ctx, keyUsers, stored)
}

func (r *Repository) Appointments(ctx context.Context) ([]clinic.Appointment, error) {
	var out []clinic.Appointment
	if err := r.getJSON(ctx, keyAppointments, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) SaveAppointments(ctx context.Context, appointments []clinic.Appointment) error {
	return r.setJSON(ctx, keyAppointments, appointments)
}

func (r *Repository) Consultations(ctx context.Context) ([]clinic.Consultation, error) {
	var out []clinic.Consultation
	if err := r.getJSON(ctx, keyConsultations, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) SaveConsultations(ctx context.Context, consultations []clinic.Consultation) error {
	return r.setJSON(ctx, keyConsultations, consultations)
}

func (r *Repository) Prescriptions(ctx context.Context) ([]clinic.Prescription, error) {
	var out []clinic.Prescription
	if err := r.getJSON(ctx, keyPrescriptions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) SavePrescriptions(ctx context.Context, prescriptions []clinic.Prescription) error {
	return r.setJSON(ctx, keyPrescriptions, prescriptions)
}

func (r *Repository) OTPs(ctx context.Context) ([]auth.OTPRecord, error) {
	var out []auth.OTPRecord
	if err := r.getJSON(ctx, keyOTPs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) SaveOTPs(ctx context.Context, records []auth.OTPRecord) error {
	return r.setJSON(ctx, keyOTPs, records)
}

// getJSON leaves v untouched when the key is absent; callers treat a missing
// collection as empty.
func (r *Repository) getJSON(ctx context.Context, key string, v any) error {
	data, found, err := r.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode collection %s: %w", key, err)
	}
	return nil
}

func (r *Repository) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", key, err)
	}
	return r.store.Set(ctx, key, data)
}
