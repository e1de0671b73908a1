package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "community_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// Chat metrics
	ChatSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_chat_sends_total",
			Help: "Chat send attempts by outcome",
		},
		[]string{"assistant", "outcome"}, // success, provider_error, network_error, rejected
	)

	CompletionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "community_chat_completion_seconds",
			Help:    "Remote completion latency",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 60},
		},
		[]string{"assistant"},
	)

	ChatCopies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_chat_copies_total",
			Help: "Copy actions by result",
		},
		[]string{"result"}, // copied, not_found, failed
	)

	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "community_chat_live_sessions",
			Help: "Chat sessions currently mounted",
		},
	)

	// Community metrics
	CommunityMemberships = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_memberships_total",
			Help: "Join and leave operations",
		},
		[]string{"action"}, // join, leave
	)
)
