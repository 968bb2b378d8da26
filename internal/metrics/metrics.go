// Package metrics exposes Prometheus collectors for source loads, layer
// derivations and map sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SourceLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medtrixmap_source_loads_total",
		Help: "Feature source loads by outcome (ok, unavailable)",
	}, []string{"source", "outcome"})
	SourceLoadDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medtrixmap_source_load_duration_ms",
		Help:    "Feature source load duration in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"source"})
	SourceFeatures = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "medtrixmap_source_features",
		Help: "Number of features in the last loaded collection",
	}, []string{"source"})
	MalformedFeaturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medtrixmap_malformed_features_total",
		Help: "Features skipped because of an unsupported or missing geometry",
	}, []string{"source"})
	DerivationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medtrixmap_derivations_total",
		Help: "Layer derivations by result (computed, memoized, pending)",
	}, []string{"source", "result"})
	ViewportEmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medtrixmap_viewport_emissions_total",
		Help: "Settled viewport emissions by trigger (ready, debounced)",
	}, []string{"trigger"})
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medtrixmap_sessions_active",
		Help: "Number of connected map sessions",
	})
)

func init() {
	prometheus.MustRegister(SourceLoadsTotal)
	prometheus.MustRegister(SourceLoadDurationMs)
	prometheus.MustRegister(SourceFeatures)
	prometheus.MustRegister(MalformedFeaturesTotal)
	prometheus.MustRegister(DerivationsTotal)
	prometheus.MustRegister(ViewportEmissionsTotal)
	prometheus.MustRegister(SessionsActive)
}

// ObserveSourceLoad records one completed load.
func ObserveSourceLoad(source string, ok bool, elapsed time.Duration, features, skipped int) {
	outcome := "ok"
	if !ok {
		outcome = "unavailable"
	}
	SourceLoadsTotal.WithLabelValues(source, outcome).Inc()
	SourceLoadDurationMs.WithLabelValues(source).Observe(float64(elapsed.Milliseconds()))
	SourceFeatures.WithLabelValues(source).Set(float64(features))
	if skipped > 0 {
		MalformedFeaturesTotal.WithLabelValues(source).Add(float64(skipped))
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler { return promhttp.Handler() }
