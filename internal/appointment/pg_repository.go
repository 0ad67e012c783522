package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is the slice of pgxpool.Pool the event log needs; pgxmock satisfies it too.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PgEventRepository appends booking events to Postgres.
type PgEventRepository struct {
	db execer
}

func NewPgEventRepository(db execer) *PgEventRepository {
	return &PgEventRepository{db: db}
}

func (r *PgEventRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booking_events (event_type, slot_key, session_id, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.EventType, ev.SlotKey, nullableString(ev.SessionID), ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert booking event: %w", err)
	}

	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
