// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated registry served by Handler.
	Registry = prometheus.NewRegistry()

	// Admissions counts admitted requests by config and outcome state
	// (rejected_signature, persist_failed, responded).
	Admissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hookbox_admissions_total", Help: "Inbound webhook requests by config and outcome."},
		[]string{"config", "outcome"},
	)

	// Settlements counts settle outcomes (enqueued, rejected_profile, deferral_failed).
	Settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hookbox_settlements_total", Help: "Settled webhook records by config and outcome."},
		[]string{"config", "outcome"},
	)

	// Processed counts job results by config and status (processed, failed, skipped).
	Processed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hookbox_processed_total", Help: "Processed webhook records by config and status."},
		[]string{"config", "status"},
	)

	// ProcessingDuration records job run time in seconds, retries included.
	ProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "hookbox_processing_duration_seconds", Help: "Job processing duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"config", "status"},
	)

	// HTTPRequests counts HTTP requests by route pattern and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hookbox_http_requests_total", Help: "HTTP requests by method, route and status."},
		[]string{"method", "route", "status"},
	)
)

var regOnce sync.Once

// Register adds the collectors to Registry. Safe to call more than once.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(Admissions)
		Registry.MustRegister(Settlements)
		Registry.MustRegister(Processed)
		Registry.MustRegister(ProcessingDuration)
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the prometheus text format.
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
