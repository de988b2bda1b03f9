package model

import (
	"database/sql"
	"time"
)

// Review is a stored scraped review. ReviewID comes from the provider and is
// not guaranteed numeric; it is the dedupe key for ingestion.
type Review struct {
	ID             int64          `db:"id"`
	BusinessID     int64          `db:"business_id"`
	ReviewID       string         `db:"review_id"`
	Rating         int            `db:"rating"`
	Text           string         `db:"review_text"`
	URL            sql.NullString `db:"review_url"`
	ReviewDatetime sql.NullString `db:"review_datetime"`
	Source         string         `db:"source"`
	CreatedAt      time.Time      `db:"created_at"`
}
