package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jreminder_lifecycle_event_total",
			Help: "Total lifecycle events recorded by stage.",
		},
		[]string{"stage"},
	)
	sinkErrTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jreminder_lifecycle_sink_error_total",
			Help: "Total lifecycle events that failed to persist.",
		},
	)
)
