package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rvmon_events_total",
			Help: "Negative review events by delivery outcome",
		},
		[]string{"outcome"}, // sent|failed|exhausted
	)

	CRMCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rvmon_crm_calls_total",
			Help: "CRM API calls by operation and result",
		},
		[]string{"op", "result"}, // search|create|update , ok|error
	)

	ScrapeJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rvmon_scrape_jobs_total",
			Help: "Scrape provider fetches by outcome",
		},
		[]string{"outcome"}, // ready|failed|timed_out
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EventsTotal,
		CRMCallsTotal,
		ScrapeJobsTotal,
	)
}
