// Package metrics provides Prometheus metrics collection and exposure.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the API server.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Auth
	AuthFailuresTotal prometheus.Counter
	TokensIssuedTotal prometheus.Counter

	// Recipes
	RecipesCreatedTotal   prometheus.Counter
	ImageUploadsTotal     prometheus.Counter
	ImageUploadBytesTotal prometheus.Counter

	// Token sweeper
	SweepLastRunTime  prometheus.Gauge
	SweepDuration     prometheus.Histogram
	SweepDeletedTotal prometheus.Counter
}

// New creates a Metrics instance with a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "galley_http_requests_total",
			Help: "Total HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "galley_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "galley_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
		AuthFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "galley_auth_failures_total",
			Help: "Total failed token authentications.",
		}),
		TokensIssuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "galley_tokens_issued_total",
			Help: "Total auth tokens issued.",
		}),
		RecipesCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "galley_recipes_created_total",
			Help: "Total recipes created.",
		}),
		ImageUploadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "galley_image_uploads_total",
			Help: "Total recipe image uploads.",
		}),
		ImageUploadBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "galley_image_upload_bytes_total",
			Help: "Total bytes of uploaded recipe images.",
		}),
		SweepLastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "galley_token_sweep_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last expired token sweep.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "galley_token_sweep_duration_seconds",
			Help:    "Duration of expired token sweeps in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		SweepDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "galley_token_sweep_deleted_total",
			Help: "Total expired tokens removed by the sweeper.",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AuthFailuresTotal,
		m.TokensIssuedTotal,
		m.RecipesCreatedTotal,
		m.ImageUploadsTotal,
		m.ImageUploadBytesTotal,
		m.SweepLastRunTime,
		m.SweepDuration,
		m.SweepDeletedTotal,
	)

	return m
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSweep records an expired token sweep run.
func (m *Metrics) RecordSweep(duration time.Duration, deleted int64) {
	m.SweepDuration.Observe(duration.Seconds())
	m.SweepDeletedTotal.Add(float64(deleted))
	m.SweepLastRunTime.SetToCurrentTime()
}

// RecordImageUpload records a stored recipe image.
func (m *Metrics) RecordImageUpload(size int64) {
	m.ImageUploadsTotal.Inc()
	m.ImageUploadBytesTotal.Add(float64(size))
}

// Handler returns an HTTP handler serving the registry for Prometheus
// scrapes.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
