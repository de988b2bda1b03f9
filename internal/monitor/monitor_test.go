package monitor

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"reviewmonitor/internal/model"
	"reviewmonitor/internal/scrape"
)

type fakeBusinesses struct {
	active  []model.Business
	touched []int64
}

func (f *fakeBusinesses) ListActive(_ context.Context) ([]model.Business, error) {
	return f.active, nil
}

func (f *fakeBusinesses) TouchLastChecked(_ context.Context, id int64) error {
	f.touched = append(f.touched, id)
	return nil
}

type fakeReviews struct {
	existing map[string]bool
	reviews  []model.Review
	events   []model.NegativeReviewEvent
}

func (f *fakeReviews) Exists(_ context.Context, reviewID string) (bool, error) {
	return f.existing[reviewID], nil
}

func (f *fakeReviews) Insert(_ context.Context, rev model.Review) error {
	f.reviews = append(f.reviews, rev)
	return nil
}

func (f *fakeReviews) InsertNegativeEvent(_ context.Context, ev model.NegativeReviewEvent) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeFetcher struct {
	byPlace map[string][]scrape.Review
	err     error
}

func (f *fakeFetcher) FetchReviews(_ context.Context, placeID string) (*scrape.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &scrape.Result{Reviews: f.byPlace[placeID]}, nil
}

func TestRun_IngestsNewReviewsAndCreatesNegativeEvents(t *testing.T) {
	businesses := &fakeBusinesses{active: []model.Business{
		{ID: 1, Name: "Acme Diner", PlaceID: "ChIJ123"},
	}}
	reviews := &fakeReviews{existing: map[string]bool{"r-old": true}}
	fetcher := &fakeFetcher{byPlace: map[string][]scrape.Review{
		"ChIJ123": {
			{ReviewID: "r-old", Rating: 1, Text: "already stored"},
			{ReviewID: "r-neg", Rating: 2, Text: "cold food", DatetimeUTC: "2024-03-01 10:00:00", Link: "https://maps.example/r"},
			{ReviewID: "r-pos", Rating: 5, Text: "lovely"},
			{ReviewID: "", Rating: 1, Text: "malformed"},
		},
	}}

	st, err := New(businesses, reviews, fetcher, zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.NewReviews != 2 {
		t.Fatalf("new reviews = %d, want 2 (dedupe + malformed skip)", st.NewReviews)
	}
	if st.NewEvents != 1 {
		t.Fatalf("new events = %d, want 1", st.NewEvents)
	}
	if len(businesses.touched) != 1 || businesses.touched[0] != 1 {
		t.Fatalf("touched = %v", businesses.touched)
	}

	ev := reviews.events[0]
	if ev.ReviewID != "r-neg" || ev.Rating != 2 || ev.SendStatus != "" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if !ev.ReviewURL.Valid || ev.ReviewURL.String == "" {
		t.Fatal("event missing review url")
	}
}

func TestRun_SnippetCappedAt500Runes(t *testing.T) {
	businesses := &fakeBusinesses{active: []model.Business{{ID: 1, PlaceID: "p"}}}
	reviews := &fakeReviews{existing: map[string]bool{}}
	fetcher := &fakeFetcher{byPlace: map[string][]scrape.Review{
		"p": {{ReviewID: "r1", Rating: 1, Text: strings.Repeat("ü", 800)}},
	}}

	if _, err := New(businesses, reviews, fetcher, zap.NewNop()).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len([]rune(reviews.events[0].Snippet)); got != 500 {
		t.Fatalf("snippet = %d runes, want 500", got)
	}
	if got := len([]rune(reviews.reviews[0].Text)); got != 800 {
		t.Fatalf("stored review text = %d runes, want 800 (capped at 1000)", got)
	}
}

func TestRun_ReviewTextTrimmedBeforeCap(t *testing.T) {
	businesses := &fakeBusinesses{active: []model.Business{{ID: 1, PlaceID: "p"}}}
	reviews := &fakeReviews{existing: map[string]bool{}}
	fetcher := &fakeFetcher{byPlace: map[string][]scrape.Review{
		"p": {{ReviewID: "r1", Rating: 1, Text: "\n  " + strings.Repeat("x", 1200) + "  \n"}},
	}}

	if _, err := New(businesses, reviews, fetcher, zap.NewNop()).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	text := reviews.reviews[0].Text
	if strings.HasPrefix(text, " ") || strings.HasPrefix(text, "\n") {
		t.Fatalf("stored text keeps leading whitespace: %q", text[:8])
	}
	// whitespace must not consume cap budget
	if got := len([]rune(text)); got != 1000 {
		t.Fatalf("stored text = %d runes, want 1000", got)
	}
	if text[0] != 'x' {
		t.Fatalf("first rune = %q, want x", text[0])
	}
}

func TestRun_FetchErrorSkipsBusinessAndContinues(t *testing.T) {
	businesses := &fakeBusinesses{active: []model.Business{
		{ID: 1, PlaceID: "bad"},
		{ID: 2, PlaceID: "good"},
	}}
	reviews := &fakeReviews{existing: map[string]bool{}}

	calls := 0
	fetcher := &flakyFetcher{&calls}

	st, err := New(businesses, reviews, fetcher, zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Errors != 1 {
		t.Fatalf("errors = %d, want 1", st.Errors)
	}
	if len(businesses.touched) != 1 || businesses.touched[0] != 2 {
		t.Fatalf("touched = %v, want only the healthy business", businesses.touched)
	}
}

type flakyFetcher struct{ calls *int }

func (f *flakyFetcher) FetchReviews(_ context.Context, placeID string) (*scrape.Result, error) {
	*f.calls++
	if placeID == "bad" {
		return nil, &scrape.JobError{State: scrape.StateTimedOut, Reason: "no result"}
	}
	return &scrape.Result{Reviews: []scrape.Review{{ReviewID: "ok", Rating: 4, Text: "fine"}}}, nil
}
