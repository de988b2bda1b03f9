// Package pipeline delivers pending negative review events into the CRM:
// per event it spends one attempt, resolves the company by place id,
// patches the review properties, and records the terminal outcome. One
// event's failure never aborts the batch.
package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"reviewmonitor/internal/config"
	"reviewmonitor/internal/crm"
	"reviewmonitor/internal/metrics"
	"reviewmonitor/internal/model"
	"reviewmonitor/internal/repository"
	"reviewmonitor/internal/util"
)

const (
	maxTextRunes = 1000
)

// Directory resolves external business identity against the CRM and pushes
// property updates. Satisfied by *crm.Client.
type Directory interface {
	ResolveOrCreate(ctx context.Context, placeID, name string, loc crm.Location) (string, error)
	UpdateCompany(ctx context.Context, companyID string, properties map[string]any) error
}

// Stats summarizes one run. Outcomes are per event; there is no batch
// rollback.
type Stats struct {
	Exhausted int64
	Fetched   int
	Sent      int
	Failed    int
}

type Sender struct {
	Events      repository.EventRepository
	CRM         Directory
	Props       config.PropertyNames
	BatchLimit  int
	MaxAttempts int
	Log         *zap.Logger
}

func NewSender(events repository.EventRepository, dir Directory, props config.PropertyNames, batchLimit, maxAttempts int, lg *zap.Logger) *Sender {
	if batchLimit <= 0 {
		batchLimit = 20
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Sender{
		Events:      events,
		CRM:         dir,
		Props:       props,
		BatchLimit:  batchLimit,
		MaxAttempts: maxAttempts,
		Log:         lg,
	}
}

// Run processes one batch sequentially and returns per-run counters. The
// returned error is reserved for batch selection failures; per-event errors
// resolve to a status write plus a log line.
func (s *Sender) Run(ctx context.Context) (Stats, error) {
	var st Stats

	// Events out of attempt budget would otherwise sit in pending forever.
	n, err := s.Events.MarkExhausted(ctx, s.MaxAttempts)
	if err != nil {
		return st, err
	}
	st.Exhausted = n
	if n > 0 {
		metrics.EventsTotal.WithLabelValues("exhausted").Add(float64(n))
		s.Log.Warn("events out of attempt budget", zap.Int64("count", n))
	}

	events, err := s.Events.FetchPendingBatch(ctx, s.BatchLimit, s.MaxAttempts)
	if err != nil {
		return st, err
	}
	st.Fetched = len(events)
	s.Log.Info("events fetched", zap.Int("count", len(events)))

	for i := range events {
		if ctx.Err() != nil {
			break
		}
		if s.processOne(ctx, &events[i]) {
			st.Sent++
		} else {
			st.Failed++
		}
	}

	s.Log.Info("run complete", zap.Int("sent", st.Sent), zap.Int("failed", st.Failed))
	return st, nil
}

func (s *Sender) processOne(ctx context.Context, ev *model.PendingEvent) bool {
	lg := s.Log.With(
		zap.Int64("event_id", ev.ID),
		zap.String("review_id", ev.ReviewID),
		zap.Int("rating", ev.Rating),
		zap.String("business", ev.BusinessName),
	)
	lg.Info("sending event")

	// Spend the attempt before any remote work so a crash mid-attempt still
	// counts against the budget.
	if err := s.Events.IncrementAttempt(ctx, ev.ID); err != nil {
		lg.Error("increment attempt failed, skipping event", zap.Error(err))
		return false
	}

	if strings.TrimSpace(ev.BusinessName) == "" || strings.TrimSpace(ev.PlaceID) == "" {
		s.markFailed(ctx, lg, ev.ID, "missing business name or place id")
		return false
	}

	companyID, err := s.CRM.ResolveOrCreate(ctx, ev.PlaceID, ev.BusinessName, crm.Location{
		City:    ev.City.String,
		State:   ev.State.String,
		Country: ev.Country.String,
	})
	if err != nil {
		s.markFailed(ctx, lg, ev.ID, err.Error())
		return false
	}

	if err := s.CRM.UpdateCompany(ctx, companyID, s.buildProperties(ev)); err != nil {
		s.markFailed(ctx, lg, ev.ID, err.Error())
		return false
	}

	if err := s.Events.MarkSent(ctx, ev.ID); err != nil {
		lg.Error("mark sent failed", zap.Error(err))
		return false
	}
	metrics.EventsTotal.WithLabelValues("sent").Inc()
	lg.Info("event sent", zap.String("company_id", companyID))
	return true
}

// buildProperties assembles the CRM property update. Rating and text are
// always present; date and url are included only when usable.
func (s *Sender) buildProperties(ev *model.PendingEvent) map[string]any {
	props := map[string]any{
		s.Props.Rating: ev.Rating,
		s.Props.Text:   strings.TrimSpace(util.TruncateRunes(ev.Snippet, maxTextRunes)),
	}
	if ms, ok := reviewDateMillis(ev.ReviewDate.String); ok {
		props[s.Props.Date] = ms
	}
	if ev.ReviewURL.Valid && ev.ReviewURL.String != "" {
		props[s.Props.URL] = ev.ReviewURL.String
	}
	return props
}

func (s *Sender) markFailed(ctx context.Context, lg *zap.Logger, eventID int64, reason string) {
	lg.Warn("event failed", zap.String("reason", reason))
	if err := s.Events.MarkFailed(ctx, eventID); err != nil {
		lg.Error("mark failed errored", zap.Error(err))
	}
	metrics.EventsTotal.WithLabelValues("failed").Inc()
}
