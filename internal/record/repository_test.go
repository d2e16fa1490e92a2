package record

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mediconnect/booking-service/internal/clinic"
	"github.com/mediconnect/booking-service/internal/kvstore"
)

func TestMigrateFreshStore(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	repo := New(store)

	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, key := range []string{keyUsers, keyAppointments, keyConsultations, keyPrescriptions, keyOTPs} {
		data, found, err := store.Get(ctx, key)
		if err != nil || !found {
			t.Fatalf("collection %s missing after migrate: found=%v err=%v", key, found, err)
		}
		if string(data) != "[]" {
			t.Errorf("collection %s = %s, want []", key, data)
		}
	}

	data, _, _ := store.Get(ctx, keySchemaVersion)
	if string(data) != "2" {
		t.Fatalf("schema version = %s, want 2", data)
	}

	// Re-running is a no-op.
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestMigrateRefusesNewerSchema(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	if err := store.Set(ctx, keySchemaVersion, []byte("99")); err != nil {
		t.Fatal(err)
	}

	if err := New(store).Migrate(ctx); err == nil {
		t.Fatal("expected error for newer schema version")
	}
}

func TestMigrateMergesLegacyDoctors(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	repo := New(store)

	existing := []storedUser{{
		User:         clinic.User{ID: "u-1", Email: "pat@example.com", Role: clinic.RolePatient},
		PasswordHash: "hash-pat",
	}}
	legacy := []storedUser{
		{
			User: clinic.User{
				ID: "d-1", Email: "dr@example.com", Role: clinic.RoleDoctor,
				Doctor: &clinic.DoctorProfile{Specialty: "Cardiology"},
			},
			PasswordHash: "hash-doc",
		},
		// Already present in users; the merge must not duplicate it.
		{User: clinic.User{ID: "u-1", Email: "pat@example.com", Role: clinic.RolePatient}},
	}

	mustSet := func(key string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Set(ctx, key, data); err != nil {
			t.Fatal(err)
		}
	}
	mustSet(keyUsers, existing)
	mustSet(legacyKeyDoctors, legacy)
	if err := store.Set(ctx, keySchemaVersion, []byte("1")); err != nil {
		t.Fatal(err)
	}

	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users, err := repo.Users(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("users after merge = %d, want 2", len(users))
	}

	var doc *clinic.User
	for i := range users {
		if users[i].ID == "d-1" {
			doc = &users[i]
		}
	}
	if doc == nil {
		t.Fatal("legacy doctor not merged into users")
	}
	if doc.PasswordHash != "hash-doc" {
		t.Errorf("doctor password hash = %q, want hash-doc", doc.PasswordHash)
	}
	if doc.Doctor == nil || doc.Doctor.Specialty != "Cardiology" {
		t.Errorf("doctor profile lost in merge: %+v", doc.Doctor)
	}

	if _, found, _ := store.Get(ctx, legacyKeyDoctors); found {
		t.Error("legacy doctors key survived the merge")
	}
}

func TestUsersRoundTripKeepsPasswordHash(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	repo := New(store)

	now := time.Now().UTC().Truncate(time.Second)
	in := []clinic.User{{
		ID: "u-1", Email: "rahul@example.com", Name: "Rahul",
		Role: clinic.RolePatient, PasswordHash: "bcrypt-hash",
		CreatedAt: now, UpdatedAt: now,
	}}
	if err := repo.SaveUsers(ctx, in); err != nil {
		t.Fatal(err)
	}

	out, err := repo.Users(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].PasswordHash != "bcrypt-hash" {
		t.Fatalf("round trip lost password hash: %+v", out)
	}

	// The stored JSON carries the hash under its own field, while marshalling
	// a clinic.User directly never exposes it.
	raw, _, _ := store.Get(ctx, keyUsers)
	var wire []map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatal(err)
	}
	if wire[0]["passwordHash"] != "bcrypt-hash" {
		t.Errorf("stored shape missing passwordHash: %v", wire[0])
	}

	public, err := json.Marshal(out[0])
	if err != nil {
		t.Fatal(err)
	}
	var publicMap map[string]any
	if err := json.Unmarshal(public, &publicMap); err != nil {
		t.Fatal(err)
	}
	if _, leaked := publicMap["passwordHash"]; leaked {
		t.Error("clinic.User JSON leaks the password hash")
	}
}

func TestMissingCollectionReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := New(kvstore.NewMemory())

	appts, err := repo.Appointments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(appts) != 0 {
		t.Fatalf("appointments = %+v, want empty", appts)
	}
}
