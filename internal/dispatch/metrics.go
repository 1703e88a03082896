package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiln_executions_total",
			Help: "Total number of executions reaching a terminal status.",
		},
		[]string{"kind", "status"},
	)

	executionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kiln_executions_in_flight",
			Help: "Number of executions with a live dispatch goroutine (queued or running).",
		},
	)

	executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kiln_execution_duration_seconds",
			Help:    "Duration from the running transition to the terminal transition, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(executionsTotal)
	prometheus.MustRegister(executionsInFlight)
	prometheus.MustRegister(executionDuration)
}
