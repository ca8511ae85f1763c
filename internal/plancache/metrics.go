package plancache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plancache_hits_total",
		Help: "Plan requests served from cache",
	})
	misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plancache_misses_total",
		Help: "Plan requests not found in cache",
	})
	shared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plancache_shared_total",
		Help: "Plan requests whose run was shared with concurrent identical requests",
	})
	evictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plancache_evictions_total",
		Help: "Cached plans evicted to stay under max entries",
	})
	entries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "plancache_entries",
		Help: "Number of cached plan results",
	})
)
