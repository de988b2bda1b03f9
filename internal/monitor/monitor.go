// Package monitor scans active businesses, pulls their latest reviews from
// the scrape provider, stores new ones, and records a pending negative
// review event for every 1-3 star review.
package monitor

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"reviewmonitor/internal/model"
	"reviewmonitor/internal/repository"
	"reviewmonitor/internal/scrape"
	"reviewmonitor/internal/util"
)

const (
	reviewTextRunes = 1000
	snippetRunes    = 500
	negativeMin     = 1
	negativeMax     = 3

	source = "google"
)

// Fetcher pulls reviews for one place id. Satisfied by *scrape.Client.
type Fetcher interface {
	FetchReviews(ctx context.Context, placeID string) (*scrape.Result, error)
}

type Stats struct {
	Businesses int
	NewReviews int
	NewEvents  int
	Errors     int
}

type Monitor struct {
	Businesses repository.BusinessRepository
	Reviews    repository.ReviewRepository
	Fetcher    Fetcher
	Log        *zap.Logger
}

func New(businesses repository.BusinessRepository, reviews repository.ReviewRepository, fetcher Fetcher, lg *zap.Logger) *Monitor {
	return &Monitor{
		Businesses: businesses,
		Reviews:    reviews,
		Fetcher:    fetcher,
		Log:        lg,
	}
}

// Run scans every active business once. A failing business is logged and
// skipped; the scan continues.
func (m *Monitor) Run(ctx context.Context) (Stats, error) {
	var st Stats

	businesses, err := m.Businesses.ListActive(ctx)
	if err != nil {
		return st, err
	}
	st.Businesses = len(businesses)

	for _, b := range businesses {
		if ctx.Err() != nil {
			break
		}

		lg := m.Log.With(zap.Int64("business_id", b.ID), zap.String("place_id", b.PlaceID))

		res, err := m.Fetcher.FetchReviews(ctx, b.PlaceID)
		if err != nil {
			lg.Error("fetch reviews failed", zap.Error(err))
			st.Errors++
			continue
		}

		reviews, events, err := m.ingest(ctx, b.ID, res.Reviews)
		if err != nil {
			lg.Error("ingest failed", zap.Error(err))
			st.Errors++
			continue
		}
		st.NewReviews += reviews
		st.NewEvents += events

		if err := m.Businesses.TouchLastChecked(ctx, b.ID); err != nil {
			lg.Warn("touch last_checked_at failed", zap.Error(err))
		}

		lg.Info("business scanned", zap.Int("new_reviews", reviews), zap.Int("new_events", events))
	}

	return st, nil
}

func (m *Monitor) ingest(ctx context.Context, businessID int64, reviews []scrape.Review) (int, int, error) {
	var inserted, events int

	for _, rv := range reviews {
		if rv.ReviewID == "" {
			continue // malformed row from the provider
		}

		exists, err := m.Reviews.Exists(ctx, rv.ReviewID)
		if err != nil {
			return inserted, events, err
		}
		if exists {
			continue
		}

		rating := int(rv.Rating)
		text := util.TruncateRunes(strings.TrimSpace(rv.Text), reviewTextRunes)

		rev := model.Review{
			BusinessID: businessID,
			ReviewID:   rv.ReviewID,
			Rating:     rating,
			Text:       text,
			Source:     source,
		}
		if rv.Link != "" {
			rev.URL = sql.NullString{String: rv.Link, Valid: true}
		}
		if rv.DatetimeUTC != "" {
			rev.ReviewDatetime = sql.NullString{String: rv.DatetimeUTC, Valid: true}
		}
		if err := m.Reviews.Insert(ctx, rev); err != nil {
			return inserted, events, err
		}
		inserted++

		if rating < negativeMin || rating > negativeMax {
			continue
		}

		ev := model.NegativeReviewEvent{
			BusinessID: businessID,
			ReviewID:   rv.ReviewID,
			Rating:     rating,
			Snippet:    util.TruncateRunes(text, snippetRunes),
			ReviewDate: rev.ReviewDatetime,
			ReviewURL:  rev.URL,
			Source:     source,
		}
		if err := m.Reviews.InsertNegativeEvent(ctx, ev); err != nil {
			return inserted, events, err
		}
		events++
	}

	return inserted, events, nil
}
