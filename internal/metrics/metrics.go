// ============================================
// File: internal/metrics/metrics.go
// ============================================
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the collectors for the submission pipeline. All collectors
// live in a private registry so repeated construction in tests never trips
// duplicate registration.
type Metrics struct {
	Registry *prometheus.Registry

	SubmissionsInFlight prometheus.Gauge
	SubmissionsTotal    *prometheus.CounterVec
	BroadcastsTotal     *prometheus.CounterVec
	ConfirmLatency      *prometheus.HistogramVec
	DiagnosesTotal      *prometheus.CounterVec
	BatchSize           prometheus.Histogram
}

// New creates a metrics set backed by a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		SubmissionsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "lander",
			Name:      "submissions_in_flight",
			Help:      "Number of submissions currently awaiting confirmation",
		}),

		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lander",
			Name:      "submissions_total",
			Help:      "Total number of completed submissions by outcome",
		}, []string{"outcome"}),

		BroadcastsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lander",
			Name:      "broadcasts_total",
			Help:      "Total number of raw transaction sends, including resends",
		}, []string{"result"}),

		ConfirmLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lander",
			Name:      "confirm_latency_seconds",
			Help:      "Time from first broadcast to target confirmation level",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"level"}),

		DiagnosesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lander",
			Name:      "diagnoses_total",
			Help:      "Total number of failure diagnoses by source of the verdict",
		}, []string{"source"}),

		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lander",
			Name:      "batch_size",
			Help:      "Number of transactions per submitted batch",
			Buckets:   prometheus.LinearBuckets(1, 5, 10),
		}),
	}
}

// RecordBroadcast counts a single send attempt.
func (m *Metrics) RecordBroadcast(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.BroadcastsTotal.WithLabelValues(result).Inc()
}

// RecordOutcome counts a finished submission and, for confirmed ones,
// observes the confirmation latency.
func (m *Metrics) RecordOutcome(outcome string, level string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
	if outcome == "confirmed" {
		m.ConfirmLatency.WithLabelValues(level).Observe(duration.Seconds())
	}
}

// RecordDiagnosis counts a diagnosis by where its verdict came from:
// program_log, raw_error, generic or unavailable.
func (m *Metrics) RecordDiagnosis(source string) {
	if m == nil {
		return
	}
	m.DiagnosesTotal.WithLabelValues(source).Inc()
}

// RecordBatch observes the size of a submitted batch.
func (m *Metrics) RecordBatch(size int) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(size))
}

// SubmissionStarted marks one more submission in flight.
func (m *Metrics) SubmissionStarted() {
	if m == nil {
		return
	}
	m.SubmissionsInFlight.Inc()
}

// SubmissionFinished marks one less submission in flight.
func (m *Metrics) SubmissionFinished() {
	if m == nil {
		return
	}
	m.SubmissionsInFlight.Dec()
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is canceled. Intended to run in
// its own goroutine; the server error is returned after shutdown.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("📊 Metrics endpoint listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
