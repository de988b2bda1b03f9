// Package scrape drives the review provider's submit/poll protocol. A fetch
// either returns immediately (plain 200) or is acknowledged with 202 plus a
// results_location that must be polled until the job completes, fails, or
// the poll budget runs out.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reviewmonitor/internal/gateway"
	"reviewmonitor/internal/metrics"
)

// JobState is the client-side state of one fetch. Jobs are ephemeral; no
// state survives the call.
type JobState string

const (
	StateSubmitted JobState = "submitted"
	StatePending   JobState = "pending"
	StateReady     JobState = "ready"
	StateFailed    JobState = "failed"
	StateTimedOut  JobState = "timed_out"
)

const (
	defaultMaxPolls     = 12
	defaultPollInterval = 5 * time.Second
)

// JobError is a terminal non-ready outcome. State distinguishes a provider
// failure from an exhausted poll budget.
type JobError struct {
	State      JobState
	Reason     string
	Status     string // provider job status, when the poll body carried one
	HTTPStatus int
}

func (e *JobError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("scrape job %s: %s (status=%s)", e.State, e.Reason, e.Status)
	}
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("scrape job %s: %s (http=%d)", e.State, e.Reason, e.HTTPStatus)
	}
	return fmt.Sprintf("scrape job %s: %s", e.State, e.Reason)
}

// TimedOut reports whether the job exhausted its poll budget, as opposed to
// being rejected by the provider.
func (e *JobError) TimedOut() bool { return e.State == StateTimedOut }

// Review is one scraped review in the provider's wire shape.
type Review struct {
	ReviewID    string  `json:"review_id"`
	Rating      float64 `json:"rating"`
	Text        string  `json:"review_text"`
	DatetimeUTC string  `json:"review_datetime_utc"`
	Link        string  `json:"review_link"`
}

type resultEntry struct {
	Reviews []Review `json:"reviews"`
}

type resultBody struct {
	Data []resultEntry `json:"data"`
}

type submitBody struct {
	ResultsLocation string `json:"results_location"`
	Status          string `json:"status"`
}

// Result is a ready fetch: reviews for the first (and only) queried place,
// plus the number of polls it took (0 for synchronous responses).
type Result struct {
	Reviews []Review
	Polls   int
}

type Client struct {
	// Poll budget; exported so tests can shrink the cadence.
	MaxPolls     int
	PollInterval time.Duration
	ReviewsLimit int

	gw       *gateway.Client
	endpoint string
	apiKey   string
}

func New(gw *gateway.Client, endpoint, apiKey string, reviewsLimit int) *Client {
	if reviewsLimit <= 0 {
		reviewsLimit = 20
	}
	return &Client{
		MaxPolls:     defaultMaxPolls,
		PollInterval: defaultPollInterval,
		ReviewsLimit: reviewsLimit,
		gw:           gw,
		endpoint:     strings.TrimRight(endpoint, "/"),
		apiKey:       apiKey,
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{"X-API-KEY": c.apiKey}
}

// FetchReviews runs one job to completion. On success err is nil; otherwise
// err is a *JobError (or a context error when cancelled mid-poll).
func (c *Client) FetchReviews(ctx context.Context, placeID string) (*Result, error) {
	q := url.Values{}
	q.Set("query", placeID)
	q.Set("limit", "1")
	q.Set("reviewsLimit", strconv.Itoa(c.ReviewsLimit))

	submit := c.gw.Do(ctx, "GET", c.endpoint+"?"+q.Encode(), nil, c.headers())

	// Synchronous answer: terminal either way, no polling.
	if submit.Status != http.StatusAccepted {
		if !submit.OK {
			metrics.ScrapeJobsTotal.WithLabelValues(string(StateFailed)).Inc()
			return nil, &JobError{State: StateFailed, Reason: "submit rejected", HTTPStatus: submit.Status}
		}
		res, err := parseReviews(submit.Body, 0)
		if err != nil {
			metrics.ScrapeJobsTotal.WithLabelValues(string(StateFailed)).Inc()
			return nil, err
		}
		metrics.ScrapeJobsTotal.WithLabelValues(string(StateReady)).Inc()
		return res, nil
	}

	var ack submitBody
	_ = json.Unmarshal(submit.Body, &ack)
	if ack.ResultsLocation == "" {
		metrics.ScrapeJobsTotal.WithLabelValues(string(StateFailed)).Inc()
		return nil, &JobError{State: StateFailed, Reason: "202 accepted but no results_location"}
	}

	maxPolls := c.MaxPolls
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}
	interval := c.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	for i := 1; i <= maxPolls; i++ {
		if err := sleepCtx(ctx, interval); err != nil {
			return nil, err
		}

		poll := c.gw.Do(ctx, "GET", ack.ResultsLocation, nil, c.headers())
		if poll.Status == http.StatusOK {
			res, err := parseReviews(poll.Body, i)
			if err != nil {
				metrics.ScrapeJobsTotal.WithLabelValues(string(StateFailed)).Inc()
				return nil, err
			}
			metrics.ScrapeJobsTotal.WithLabelValues(string(StateReady)).Inc()
			return res, nil
		}

		var pb submitBody
		_ = json.Unmarshal(poll.Body, &pb)
		if pb.Status != "" && strings.ToLower(pb.Status) != "pending" {
			metrics.ScrapeJobsTotal.WithLabelValues(string(StateFailed)).Inc()
			return nil, &JobError{
				State:      StateFailed,
				Reason:     "job did not complete",
				Status:     pb.Status,
				HTTPStatus: poll.Status,
			}
		}
	}

	metrics.ScrapeJobsTotal.WithLabelValues(string(StateTimedOut)).Inc()
	return nil, &JobError{State: StateTimedOut, Reason: fmt.Sprintf("no result after %d polls", maxPolls)}
}

func parseReviews(body []byte, polls int) (*Result, error) {
	var rb resultBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return nil, &JobError{State: StateFailed, Reason: "unparseable result payload"}
	}
	res := &Result{Polls: polls}
	if len(rb.Data) > 0 {
		res.Reviews = rb.Data[0].Reviews
	}
	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
