package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlog_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatlog_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5, 30},
		},
		[]string{"method", "path"},
	)

	// Log metrics
	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlog_rooms_created_total",
			Help: "Total rooms created",
		},
	)

	MessagesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlog_messages_appended_total",
			Help: "Total messages appended to room logs",
		},
	)

	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlog_polls_total",
			Help: "Total poll requests by outcome",
		},
		[]string{"outcome"}, // "messages", "empty", "cancelled" or "error"
	)

	// Storage metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlog_db_queries_total",
			Help: "Total database statements",
		},
		[]string{"operation"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatlog_db_query_duration_seconds",
			Help:    "Database statement latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .5},
		},
		[]string{"operation"},
	)
)

// Poll outcomes recorded by PollsTotal.
const (
	PollOutcomeMessages  = "messages"
	PollOutcomeEmpty     = "empty"
	PollOutcomeError     = "error"
	PollOutcomeCancelled = "cancelled"
)
