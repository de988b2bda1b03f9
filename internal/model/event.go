package model

import (
	"database/sql"
	"time"
)

type SendStatus string

const (
	SendStatusPending   SendStatus = "pending"
	SendStatusSent      SendStatus = "sent"
	SendStatusFailed    SendStatus = "failed"
	SendStatusExhausted SendStatus = "exhausted"
)

func (s SendStatus) String() string { return string(s) }

func (s SendStatus) Valid() bool {
	switch s {
	case SendStatusPending, SendStatusSent, SendStatusFailed, SendStatusExhausted:
		return true
	}
	return false
}

// NegativeReviewEvent is the DB entity persisted in negative_review_events.
// Rows are created by the ingestion path for 1-3 star reviews and closed by
// the delivery pipeline.
type NegativeReviewEvent struct {
	ID           int64          `db:"id"`
	BusinessID   int64          `db:"business_id"`
	ReviewID     string         `db:"review_id"`
	Rating       int            `db:"rating"`
	Snippet      string         `db:"review_snippet"`
	ReviewDate   sql.NullString `db:"review_date"`
	ReviewURL    sql.NullString `db:"review_url"`
	Source       string         `db:"source"`
	SendStatus   SendStatus     `db:"send_status"`
	SendAttempts int            `db:"send_attempts"`
	SentAt       sql.NullTime   `db:"sent_at"`
	CreatedAt    time.Time      `db:"created_at"`
}

// PendingEvent is an event row joined with its business, as selected by
// EventRepository.FetchPendingBatch. The business columns are read-only.
type PendingEvent struct {
	NegativeReviewEvent
	BusinessName string         `db:"business_name"`
	PlaceID      string         `db:"place_id"`
	City         sql.NullString `db:"city"`
	State        sql.NullString `db:"state"`
	Country      sql.NullString `db:"country"`
}
