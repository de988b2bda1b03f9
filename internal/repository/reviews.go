package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"reviewmonitor/internal/model"
)

// ReviewRepository persists scraped reviews and the negative review events
// derived from them. Reviews are deduped by the provider review id.
type ReviewRepository interface {
	Exists(ctx context.Context, reviewID string) (bool, error)
	Insert(ctx context.Context, rev model.Review) error
	InsertNegativeEvent(ctx context.Context, ev model.NegativeReviewEvent) error
}

type ReviewRepositoryImpl struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepositoryImpl {
	return &ReviewRepositoryImpl{db: db}
}

var _ ReviewRepository = (*ReviewRepositoryImpl)(nil)

func (r *ReviewRepositoryImpl) Exists(ctx context.Context, reviewID string) (bool, error) {
	var id int64
	err := r.db.GetContext(ctx, &id,
		`SELECT id FROM reviews WHERE review_id = ? LIMIT 1`, reviewID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ReviewRepositoryImpl) Insert(ctx context.Context, rev model.Review) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews
		    (business_id, review_id, rating, review_text, review_url, review_datetime, source, created_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, NOW())
	`, rev.BusinessID, rev.ReviewID, rev.Rating, rev.Text, rev.URL, rev.ReviewDatetime, rev.Source)
	return err
}

func (r *ReviewRepositoryImpl) InsertNegativeEvent(ctx context.Context, ev model.NegativeReviewEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO negative_review_events
		    (business_id, review_id, rating, review_snippet, review_date, review_url, source, send_status, send_attempts, created_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, 'pending', 0, NOW())
	`, ev.BusinessID, ev.ReviewID, ev.Rating, ev.Snippet, ev.ReviewDate, ev.ReviewURL, ev.Source)
	return err
}
