package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Plan cache outcomes, the values of the result label.
const (
	cacheHit    = "hit"
	cacheMiss   = "miss"
	cacheBypass = "bypass"
)

type metrics struct {
	executions *prometheus.CounterVec
	hops       prometheus.Counter
	hopResults prometheus.Histogram
	planCache  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		executions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "archq",
			Subsystem: "engine",
			Name:      "executions_total",
			Help:      "Executed requests by backend and outcome.",
		}, []string{"backend", "status"}),
		hops: f.NewCounter(prometheus.CounterOpts{
			Namespace: "archq",
			Subsystem: "engine",
			Name:      "hops_total",
			Help:      "Executed hops.",
		}),
		hopResults: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "archq",
			Subsystem: "engine",
			Name:      "hop_results",
			Help:      "Records matched per hop.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		planCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "archq",
			Subsystem: "engine",
			Name:      "plan_cache_total",
			Help:      "Plan cache lookups by result.",
		}, []string{"result"}),
	}
}
