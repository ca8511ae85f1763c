package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// loads counts snapshot loads by source (json, csv, xlsx, postgres) and outcome.
	loads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_loads_total",
		Help: "Total number of catalog snapshot loads by source and outcome",
	}, []string{"source", "outcome"})

	// breakerState is 0 closed, 1 open, 2 half-open.
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "feed_circuit_breaker_state",
		Help: "Circuit breaker state per catalog source (0 closed, 1 open, 2 half-open)",
	}, []string{"name"})
)

func recordLoad(source string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	loads.WithLabelValues(source, outcome).Inc()
}

// fetchRetries counts HTTP fetch attempts that were retried, by reason.
var fetchRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feed_fetch_retries_total",
	Help: "Total number of retried catalog fetch attempts by reason",
}, []string{"reason"})
