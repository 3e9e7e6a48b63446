package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outcomeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jreminder_dispatch_outcome_total",
			Help: "Total per-patient dispatch outcomes by channel and result.",
		},
		[]string{"channel", "result"},
	)
	attemptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jreminder_dispatch_attempt_total",
			Help: "Total transport attempts by channel and result.",
		},
		[]string{"channel", "result"},
	)
	attemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jreminder_dispatch_attempt_duration_seconds",
			Help:    "Duration of transport attempts.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)
	escalationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jreminder_dispatch_escalation_total",
			Help: "Total escalations opened by channel and source.",
		},
		[]string{"channel", "source"},
	)
	recordErrTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jreminder_dispatch_record_error_total",
			Help: "Total notification records that failed to persist.",
		},
	)
	channelDegraded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jreminder_channel_degraded",
			Help: "Whether the channel is in systemic failure (1) or not (0).",
		},
		[]string{"channel"},
	)
)

const (
	resultSent      = "sent"
	resultFailed    = "failed"
	resultSuccess   = "success"
	resultRetryable = "retryable"
	resultTerminal  = "terminal"

	sourceTransport = "transport"
	sourceConsent   = "consent"
)
