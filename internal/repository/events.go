package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"reviewmonitor/internal/model"
)

// EventRepository is the persistence boundary for negative review events.
// Every mutation is a self-contained single-row autocommit statement keyed
// by id; the pipeline never wraps events in a cross-event transaction.
type EventRepository interface {
	// FetchPendingBatch selects pending events with remaining attempt budget,
	// joined with their business, ordered by id ascending.
	FetchPendingBatch(ctx context.Context, limit, maxAttempts int) ([]model.PendingEvent, error)
	// IncrementAttempt bumps send_attempts by exactly 1. Called before any
	// remote work so a crash mid-attempt still consumes budget.
	IncrementAttempt(ctx context.Context, eventID int64) error
	MarkSent(ctx context.Context, eventID int64) error
	MarkFailed(ctx context.Context, eventID int64) error
	// MarkExhausted moves pending events that are out of attempt budget to
	// the terminal exhausted status; returns the number of rows moved.
	MarkExhausted(ctx context.Context, maxAttempts int) (int64, error)
	CountByStatus(ctx context.Context) (map[model.SendStatus]int64, error)
	ListRecent(ctx context.Context, status model.SendStatus, limit, offset int) ([]model.PendingEvent, error)
}

type EventRepositoryImpl struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepositoryImpl {
	return &EventRepositoryImpl{db: db}
}

var _ EventRepository = (*EventRepositoryImpl)(nil)

const pendingEventColumns = `
	e.id,
	e.business_id,
	e.review_id,
	e.rating,
	e.review_snippet,
	e.review_date,
	e.review_url,
	e.source,
	e.send_status,
	e.send_attempts,
	e.sent_at,
	e.created_at,
	b.name    AS business_name,
	b.place_id,
	b.city,
	b.state,
	b.country
`

func (r *EventRepositoryImpl) FetchPendingBatch(ctx context.Context, limit, maxAttempts int) ([]model.PendingEvent, error) {
	const q = `
		SELECT ` + pendingEventColumns + `
		FROM negative_review_events e
		JOIN businesses b ON b.id = e.business_id
		WHERE e.send_status = 'pending'
		  AND e.send_attempts < ?
		ORDER BY e.id ASC
		LIMIT ?
	`
	var rows []model.PendingEvent
	if err := r.db.SelectContext(ctx, &rows, q, maxAttempts, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventRepositoryImpl) IncrementAttempt(ctx context.Context, eventID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE negative_review_events SET send_attempts = send_attempts + 1 WHERE id = ?`, eventID)
	return err
}

func (r *EventRepositoryImpl) MarkSent(ctx context.Context, eventID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE negative_review_events
		SET send_status = 'sent', sent_at = NOW()
		WHERE id = ? AND send_status = 'pending'
	`, eventID)
	return err
}

func (r *EventRepositoryImpl) MarkFailed(ctx context.Context, eventID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE negative_review_events
		SET send_status = 'failed'
		WHERE id = ? AND send_status = 'pending'
	`, eventID)
	return err
}

func (r *EventRepositoryImpl) MarkExhausted(ctx context.Context, maxAttempts int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE negative_review_events
		SET send_status = 'exhausted'
		WHERE send_status = 'pending' AND send_attempts >= ?
	`, maxAttempts)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *EventRepositoryImpl) CountByStatus(ctx context.Context) (map[model.SendStatus]int64, error) {
	var rows []struct {
		Status model.SendStatus `db:"send_status"`
		N      int64            `db:"n"`
	}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT send_status, COUNT(*) AS n FROM negative_review_events GROUP BY send_status`)
	if err != nil {
		return nil, err
	}
	out := make(map[model.SendStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

func (r *EventRepositoryImpl) ListRecent(ctx context.Context, status model.SendStatus, limit, offset int) ([]model.PendingEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT ` + pendingEventColumns + `
		FROM negative_review_events e
		JOIN businesses b ON b.id = e.business_id
	`
	args := []any{}
	if status != "" {
		q += " WHERE e.send_status = ?"
		args = append(args, status.String())
	}
	q += " ORDER BY e.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.PendingEvent
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
