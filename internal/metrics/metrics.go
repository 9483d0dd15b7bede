// Package metrics exposes the prometheus collectors for the search
// subsystem (A4): search latency, live index size, and rate-limit
// rejections. Handler implements http.Handler for mounting at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kpath",
		Subsystem: "search",
		Name:      "latency_seconds",
		Help:      "Time spent planning and assembling a search response, by search mode.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"search_mode"})

	IndexSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kpath",
		Subsystem: "index",
		Name:      "entries",
		Help:      "Number of entries currently held in an in-memory vector index.",
	}, []string{"index"})

	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kpath",
		Subsystem: "ratelimit",
		Name:      "rejections_total",
		Help:      "Requests rejected for exceeding a principal's hourly rate limit.",
	}, []string{"principal_id"})
)

// Handler serves the registered collectors for scraping at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
