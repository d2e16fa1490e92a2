package record

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// SchemaVersion is the layout this code expects. Version 1 kept doctors in a
// separate collection alongside users; version 2 makes the users collection
// the canonical source of doctor records.
const SchemaVersion = 2

const legacyKeyDoctors = "doctors"

// Migrate brings the persisted layout up to SchemaVersion by running the
// idempotent upgrade steps in order. A fresh store is initialized with empty
// collections. A store written by a newer version is refused rather than
// downgraded.
func (r *Repository) Migrate(ctx context.Context) error {
	version, err := r.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("store schema version %d is newer than supported %d", version, SchemaVersion)
	}

	if version == 0 {
		if err := r.initialize(ctx); err != nil {
			return err
		}
		version = 1
	}

	if version == 1 {
		if err := r.mergeLegacyDoctors(ctx); err != nil {
			return err
		}
		version = 2
	}

	return r.store.Set(ctx, keySchemaVersion, []byte(strconv.Itoa(SchemaVersion)))
}

func (r *Repository) schemaVersion(ctx context.Context) (int, error) {
	data, found, err := r.store.Get(ctx, keySchemaVersion)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	version, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", data, err)
	}
	return version, nil
}

func (r *Repository) initialize(ctx context.Context) error {
	for _, key := range []string{keyUsers, keyAppointments, keyConsultations, keyPrescriptions, keyOTPs} {
		_, found, err := r.store.Get(ctx, key)
		if err != nil {
			return err
		}
		if found {
			continue
		}
		if err := r.store.Set(ctx, key, []byte("[]")); err != nil {
			return err
		}
	}
	return nil
}

// mergeLegacyDoctors folds a version-1 doctors collection into users, keyed
// by ID so re-running the step changes nothing, then removes the legacy key.
func (r *Repository) mergeLegacyDoctors(ctx context.Context) error {
	data, found, err := r.store.Get(ctx, legacyKeyDoctors)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	var legacy []storedUser
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("decode collection %s: %w", legacyKeyDoctors, err)
	}

	users, err := r.Users(ctx)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.ID] = true
	}

	for _, d := range legacy {
		if known[d.ID] {
			continue
		}
		u := d.User
		u.PasswordHash = d.PasswordHash
		users = append(users, u)
	}

	if err := r.SaveUsers(ctx, users); err != nil {
		return err
	}
	return r.store.Remove(ctx, legacyKeyDoctors)
}
