package model

import (
	"database/sql"
	"time"
)

// Business is a monitored location. place_id is the provider-assigned
// identity key and the sole key used for CRM matching.
type Business struct {
	ID            int64          `db:"id"`
	Name          string         `db:"name"`
	PlaceID       string         `db:"place_id"`
	City          sql.NullString `db:"city"`
	State         sql.NullString `db:"state"`
	Country       sql.NullString `db:"country"`
	Active        bool           `db:"active"`
	LastCheckedAt sql.NullTime   `db:"last_checked_at"`
	CreatedAt     time.Time      `db:"created_at"`
}
