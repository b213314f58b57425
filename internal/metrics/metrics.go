package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reportforge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by route and status code",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 15), // 5ms to ~80s
		},
		[]string{"route", "code"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reportforge_http_in_flight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	rateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reportforge_rate_limited_total",
			Help: "Total number of requests rejected by the per-client rate limiter",
		},
	)

	// Upstream metrics
	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reportforge_upstream_request_duration_seconds",
			Help:    "Upstream API request duration in seconds by stage",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 11), // 0.1s to ~200s
		},
		[]string{"stage", "status"}, // stage: "report"/"chart", status: "success"/"error"
	)

	// Chart extraction metrics
	chartExtractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportforge_chart_extractions_total",
			Help: "Chart extractions by the tier that produced the result",
		},
		[]string{"tier"}, // "direct", "substring", "repaired", "fallback"
	)
)

// Collector provides convenience methods for recording metrics
type Collector struct{}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{}
}

// RecordHTTPRequest records a served HTTP request
func (c *Collector) RecordHTTPRequest(route string, code int, duration time.Duration) {
	httpRequestDuration.WithLabelValues(route, strconv.Itoa(code)).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns a func that decrements it
func (c *Collector) TrackInFlight() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// IncrementRateLimited counts a request rejected by the rate limiter
func (c *Collector) IncrementRateLimited() {
	rateLimited.Inc()
}

// RecordUpstreamRequest records an upstream API call
func (c *Collector) RecordUpstreamRequest(stage string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	upstreamRequestDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

// IncrementChartTier counts a chart extraction by the tier it ended in
func (c *Collector) IncrementChartTier(tier string) {
	chartExtractions.WithLabelValues(tier).Inc()
}

// Handler serves the default Prometheus registry
func (c *Collector) Handler() http.Handler {
	return promhttp.Handler()
}
