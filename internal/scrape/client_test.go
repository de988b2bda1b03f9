package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"reviewmonitor/internal/gateway"
	"reviewmonitor/internal/model"
)

const reviewsPayload = `{"data":[{"reviews":[
	{"review_id":"r1","rating":2,"review_text":"cold food","review_datetime_utc":"2024-03-01 10:00:00","review_link":"https://maps.example/r1"},
	{"review_id":"r2","rating":5,"review_text":"great"}
]}]}`

func newTestScrapeClient(endpoint string) *Client {
	return newTestScrapeClientWithCallLog(endpoint, nil)
}

func newTestScrapeClientWithCallLog(endpoint string, calls gateway.CallLogger) *Client {
	gw := gateway.New("scrape", 5*time.Second, zap.NewNop(), calls)
	gw.BackoffBase = time.Millisecond
	c := New(gw, endpoint, "key", 20)
	c.PollInterval = time.Millisecond
	return c
}

type recordingCallLog struct {
	recs []model.RemoteCall
}

func (l *recordingCallLog) Insert(_ context.Context, rec model.RemoteCall) error {
	l.recs = append(l.recs, rec)
	return nil
}

func TestFetchReviews_SynchronousResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-KEY"); got != "key" {
			t.Errorf("X-API-KEY = %q", got)
		}
		w.Write([]byte(reviewsPayload))
	}))
	defer srv.Close()

	res, err := newTestScrapeClient(srv.URL).FetchReviews(context.Background(), "ChIJ123")
	if err != nil {
		t.Fatal(err)
	}
	if res.Polls != 0 {
		t.Fatalf("polls = %d, want 0 for synchronous answer", res.Polls)
	}
	if len(res.Reviews) != 2 {
		t.Fatalf("reviews = %d, want 2", len(res.Reviews))
	}
	if res.Reviews[0].ReviewID != "r1" || res.Reviews[0].Rating != 2 {
		t.Fatalf("unexpected first review: %+v", res.Reviews[0])
	}
}

func TestFetchReviews_AsyncReadyAfterPolling(t *testing.T) {
	var polls int
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls < 3 {
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"status":"Pending"}`))
			return
		}
		w.Write([]byte(reviewsPayload))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, `{"results_location":%q}`, srv.URL+"/results")
	})

	res, err := newTestScrapeClient(srv.URL).FetchReviews(context.Background(), "ChIJ123")
	if err != nil {
		t.Fatal(err)
	}
	if res.Polls != 3 {
		t.Fatalf("polls = %d, want 3", res.Polls)
	}
	if len(res.Reviews) != 2 {
		t.Fatalf("reviews = %d", len(res.Reviews))
	}
}

func TestFetchReviews_MissingResultsLocation(t *testing.T) {
	var polls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			polls++
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestScrapeClient(srv.URL).FetchReviews(context.Background(), "ChIJ123")
	var je *JobError
	if !errors.As(err, &je) || je.State != StateFailed {
		t.Fatalf("err = %v, want failed JobError", err)
	}
	if polls != 0 {
		t.Fatalf("polled %d times despite missing results_location", polls)
	}
}

func TestFetchReviews_TimedOutAfterBudget(t *testing.T) {
	var polls int
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		polls++
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"Pending"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, `{"results_location":%q}`, srv.URL+"/results")
	})

	_, err := newTestScrapeClient(srv.URL).FetchReviews(context.Background(), "ChIJ123")
	var je *JobError
	if !errors.As(err, &je) {
		t.Fatalf("err = %v, want JobError", err)
	}
	if !je.TimedOut() {
		t.Fatalf("state = %s, want timed_out", je.State)
	}
	if polls != 12 {
		t.Fatalf("polls = %d, want the full budget of 12", polls)
	}
}

func TestFetchReviews_TerminalFailureStatus(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"Error"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, `{"results_location":%q}`, srv.URL+"/results")
	})

	_, err := newTestScrapeClient(srv.URL).FetchReviews(context.Background(), "ChIJ123")
	var je *JobError
	if !errors.As(err, &je) || je.State != StateFailed {
		t.Fatalf("err = %v, want failed JobError", err)
	}
	if je.Status != "Error" {
		t.Fatalf("provider status = %q", je.Status)
	}
	if je.TimedOut() {
		t.Fatal("a provider failure must not report as timed out")
	}
}

func TestFetchReviews_SubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestScrapeClient(srv.URL).FetchReviews(context.Background(), "ChIJ123")
	var je *JobError
	if !errors.As(err, &je) || je.State != StateFailed {
		t.Fatalf("err = %v, want failed JobError", err)
	}
	if je.HTTPStatus != http.StatusForbidden {
		t.Fatalf("http status = %d", je.HTTPStatus)
	}
}

func TestFetchReviews_FailedCallsReachCallLog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	calls := &recordingCallLog{}
	_, err := newTestScrapeClientWithCallLog(srv.URL, calls).FetchReviews(context.Background(), "ChIJ123")
	if err == nil {
		t.Fatal("expected failure")
	}
	if len(calls.recs) != 1 {
		t.Fatalf("call-log records = %d, want 1", len(calls.recs))
	}
	rec := calls.recs[0]
	if rec.Target != "scrape" {
		t.Fatalf("target = %q, want scrape", rec.Target)
	}
	if rec.StatusCode != http.StatusForbidden {
		t.Fatalf("status_code = %d", rec.StatusCode)
	}
	if rec.ResponseBody != `{"error":"bad key"}` {
		t.Fatalf("response_body = %q", rec.ResponseBody)
	}
}
