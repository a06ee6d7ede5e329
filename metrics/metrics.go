// Package metrics exposes Prometheus instrumentation for provider calls and
// bundling passes, with an optional /metrics HTTP listener.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spicecouncil",
		Name:      "provider_calls_total",
		Help:      "Completion requests by provider, model, and outcome.",
	}, []string{"provider", "model", "outcome"})

	providerCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "spicecouncil",
		Name:      "provider_call_duration_seconds",
		Help:      "Completion request latency by provider.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"provider"})

	bundleCopiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spicecouncil",
		Name:      "bundle_copies_total",
		Help:      "Include files copied by the bundler.",
	})

	bundleMissingTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spicecouncil",
		Name:      "bundle_missing_total",
		Help:      "Include specifiers that could not be resolved.",
	})
)

// ObserveProviderCall records one completed (or failed) provider request.
func ObserveProviderCall(provider, model, outcome string, d time.Duration) {
	providerCallsTotal.WithLabelValues(provider, model, outcome).Inc()
	providerCallDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveBundle records the outcome counts of one bundling pass.
func ObserveBundle(copied, missing int) {
	bundleCopiesTotal.Add(float64(copied))
	bundleMissingTotal.Add(float64(missing))
}

// Serve starts a /metrics listener on addr. It returns the server so the
// caller can shut it down; errors after startup are logged, not returned.
func Serve(addr string, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("Metrics listener stopped", "error", err)
		}
	}()

	logger.Info("Metrics listening", "addr", addr)
	return srv
}
