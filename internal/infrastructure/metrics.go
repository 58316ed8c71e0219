package infrastructure

import (
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// Metrics holds the catalog collectors exposed on /metrics
type Metrics struct {
	InFlight    prometheus.Gauge
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	Requests    *prometheus.CounterVec
}

// NewMetrics registers the catalog collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cinefin",
			Subsystem: "tmdb",
			Name:      "requests_in_flight",
			Help:      "Number of TMDB requests currently in flight.",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cinefin",
			Subsystem: "tmdb",
			Name:      "cache_hits_total",
			Help:      "Number of queries served from the query cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cinefin",
			Subsystem: "tmdb",
			Name:      "cache_misses_total",
			Help:      "Number of queries that were not in the query cache.",
		}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinefin",
			Subsystem: "tmdb",
			Name:      "requests_total",
			Help:      "Number of TMDB requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
	}
}

// endpointLabel replaces movie ids so that the label keeps a bounded cardinality
func endpointLabel(endpoint string) string {
	return numericSegment.ReplaceAllString("/"+endpoint, "/:id$1")[1:]
}
