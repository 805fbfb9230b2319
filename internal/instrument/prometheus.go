// Package instrument exports Prometheus metrics for the cipher operations
// exercised by the harness.
package instrument

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation labels.
const (
	OpGen = "gen"
	OpEnc = "enc"
	OpDec = "dec"
)

// Metrics is a set of collectors registered on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	trials       *prometheus.CounterVec
	failures     *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spn_operations_total",
				Help: "Number of GEN, ENC and DEC calls",
			},
			[]string{"op"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spn_operation_duration_seconds",
				Help:    "Time taken by GEN, ENC and DEC calls",
				Buckets: prometheus.ExponentialBuckets(1e-7, 4, 12),
			},
			[]string{"op"},
		),
		trials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spn_trials_total",
				Help: "Number of completed harness trials",
			},
			[]string{"test"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spn_trial_failures_total",
				Help: "Number of failed harness trials",
			},
			[]string{"test"},
		),
	}
	m.registry.MustRegister(m.calls, m.callDuration, m.trials, m.failures)
	return m
}

// Observe records one call of op that took d.
func (m *Metrics) Observe(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(op).Inc()
	m.callDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Trial records a completed trial of test.
func (m *Metrics) Trial(test string) {
	if m == nil {
		return
	}
	m.trials.WithLabelValues(test).Inc()
}

// TrialFailed records a failed trial of test.
func (m *Metrics) TrialFailed(test string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(test).Inc()
}

// Handler returns the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Listen binds addr and serves the metrics until ctx is done.
// It returns the bound address.
func (m *Metrics) Listen(ctx context.Context, addr string) (net.Addr, <-chan error, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		err := srv.Serve(l)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	return l.Addr(), errCh, nil
}
