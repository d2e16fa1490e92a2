package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRecorder struct {
	pool *pgxpool.Pool
}

func NewPgRecorder(pool *pgxpool.Pool) *PgRecorder {
	return &PgRecorder{pool: pool}
}

// EnsureSchema creates the event table when it does not exist yet.
func (r *PgRecorder) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS event_logs (
			id          BIGSERIAL PRIMARY KEY,
			event_type  TEXT NOT NULL,
			actor_id    TEXT,
			subject_id  TEXT,
			payload     JSONB,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure event_logs schema: %w", err)
	}
	return nil
}

func (r *PgRecorder) Record(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", ev.Type, err)
		data = nil
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, actor_id, subject_id, payload, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, ev.Type, nullable(ev.ActorID), nullable(ev.SubjectID), data)
	if err != nil {
		log.Printf("failed to insert event log %s (subject %s): %v", ev.Type, ev.SubjectID, err)
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
