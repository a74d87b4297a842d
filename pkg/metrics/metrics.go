// Copyright 2025 Certen Protocol
//
// Prometheus metrics for the running bridge: how far behind the trusted
// cursor is, how many proofs have been attempted and failed, and a
// backoff interval gauge. Wired directly into pkg/service via the
// Recorder interface, so every cycle of the main loop updates the height
// gauges and the counters without the service package needing to import
// prometheus itself. The service loop never calls SetBackoffSeconds, so
// backoff_seconds stays at zero.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bridge's Prometheus collectors and implements
// service.Recorder.
type Metrics struct {
	trustedHeight    prometheus.Gauge
	tendermintHeight prometheus.Gauge
	proofAttempts    prometheus.Counter
	proofFailures    prometheus.Counter
	backoffSeconds   prometheus.Gauge
}

// New registers and returns the bridge's metrics on a fresh registry.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		trustedHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blobstream0",
			Name:      "trusted_height",
			Help:      "Height of the bridge's current trusted cursor, as last posted to the settlement contract.",
		}),
		tendermintHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blobstream0",
			Name:      "tendermint_height",
			Help:      "Latest height observed from the Tendermint RPC endpoint.",
		}),
		proofAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blobstream0",
			Name:      "proof_attempts_total",
			Help:      "Total number of range proofs attempted.",
		}),
		proofFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blobstream0",
			Name:      "proof_failures_total",
			Help:      "Total number of service loop cycles that ended in an error.",
		}),
		backoffSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blobstream0",
			Name:      "backoff_seconds",
			Help:      "Backoff interval, in seconds, as last passed to SetBackoffSeconds; the service loop does not report it.",
		}),
	}
	reg.MustRegister(m.trustedHeight, m.tendermintHeight, m.proofAttempts, m.proofFailures, m.backoffSeconds)
	return m, reg
}

func (m *Metrics) SetTrustedHeight(height uint64)    { m.trustedHeight.Set(float64(height)) }
func (m *Metrics) SetTendermintHeight(height uint64) { m.tendermintHeight.Set(float64(height)) }
func (m *Metrics) IncProofAttempts()                 { m.proofAttempts.Inc() }
func (m *Metrics) IncProofFailures()                 { m.proofFailures.Inc() }
func (m *Metrics) SetBackoffSeconds(seconds float64) { m.backoffSeconds.Set(seconds) }

// Handler returns the /metrics HTTP handler for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// HealthHandler serves a trivial liveness check; readiness (is the
// trusted cursor making progress) is left to the operator's own alerting
// on trusted_height versus tendermint_height.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
