package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"reviewmonitor/internal/model"
)

// CallLogRepository stores failed remote exchanges in ClickHouse. Inserts
// are best-effort from the gateway's point of view; listing feeds the ops
// report endpoint.
type CallLogRepository interface {
	Insert(ctx context.Context, rec model.RemoteCall) error
	ListRecent(ctx context.Context, target string, limit int) ([]model.RemoteCall, error)
}

type chCallLogRepository struct {
	ch *sqlx.DB
}

func NewCallLogRepository(ch *sqlx.DB) CallLogRepository {
	return &chCallLogRepository{ch: ch}
}

func (r *chCallLogRepository) Insert(ctx context.Context, rec model.RemoteCall) error {
	const q = `
		INSERT INTO rvmon.remote_calls
		    (run_id, target, method, url, status_code, request_body, response_body, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.ch.ExecContext(ctx, q,
		rec.RunID, rec.Target, rec.Method, rec.URL, rec.StatusCode,
		rec.RequestBody, rec.ResponseBody, rec.Error, rec.CreatedAt,
	)
	return err
}

func (r *chCallLogRepository) ListRecent(ctx context.Context, target string, limit int) ([]model.RemoteCall, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	q := `
		SELECT run_id, target, method, url, status_code, request_body, response_body, error, created_at
		FROM rvmon.remote_calls
	`
	args := []any{}
	if target != "" {
		q += " WHERE target = ?"
		args = append(args, target)
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	var rows []model.RemoteCall
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
