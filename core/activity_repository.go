package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityEntry is a persisted audit row.
type ActivityEntry struct {
	ID         int64          `json:"id"`
	Event      string         `json:"event"`
	Actor      string         `json:"actor"`
	Subject    string         `json:"subject"`
	Detail     map[string]any `json:"detail"`
	OccurredAt time.Time      `json:"occurred_at"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// ActivityRepository defines persistence operations for the audit trail.
type ActivityRepository interface {
	Insert(ctx context.Context, ev ActivityEvent) error
	ListRecent(ctx context.Context, limit int) ([]ActivityEntry, error)
}

// PgActivityRepository implements ActivityRepository using pgxpool.
type PgActivityRepository struct {
	db *pgxpool.Pool
}

func NewPgActivityRepository(db *pgxpool.Pool) *PgActivityRepository {
	return &PgActivityRepository{db: db}
}

func (r *PgActivityRepository) Insert(ctx context.Context, ev ActivityEvent) error {
	detail := ev.Detail
	if detail == nil {
		detail = map[string]any{}
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	_, err = r.db.Exec(ctx, `
INSERT INTO activity_log (event, actor, subject, detail, occurred_at)
VALUES ($1,$2,$3,$4,$5)
`, ev.Event, ev.Actor, ev.Subject, payload, occurred)
	return err
}

func (r *PgActivityRepository) ListRecent(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
SELECT id, event, actor, subject, detail, occurred_at, recorded_at
FROM activity_log
ORDER BY occurred_at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []ActivityEntry{}
	for rows.Next() {
		var e ActivityEntry
		var detail []byte
		if err := rows.Scan(&e.ID, &e.Event, &e.Actor, &e.Subject, &detail, &e.OccurredAt, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.Detail = map[string]any{}
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &e.Detail)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
