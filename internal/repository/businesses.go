package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"reviewmonitor/internal/model"
)

type BusinessRepository interface {
	ListActive(ctx context.Context) ([]model.Business, error)
	TouchLastChecked(ctx context.Context, businessID int64) error
}

type BusinessRepositoryImpl struct {
	db *sqlx.DB
}

func NewBusinessRepository(db *sqlx.DB) *BusinessRepositoryImpl {
	return &BusinessRepositoryImpl{db: db}
}

var _ BusinessRepository = (*BusinessRepositoryImpl)(nil)

func (r *BusinessRepositoryImpl) ListActive(ctx context.Context) ([]model.Business, error) {
	var rows []model.Business
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, place_id, city, state, country, active, last_checked_at, created_at
		  FROM businesses
		 WHERE active = 1
		 ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BusinessRepositoryImpl) TouchLastChecked(ctx context.Context, businessID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE businesses SET last_checked_at = NOW() WHERE id = ?`, businessID)
	return err
}
