package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/auton8n-git/auton8n/pkg/engine"
)

// Metrics provides Prometheus metrics for auton8n. It implements
// engine.Observer.
type Metrics struct {
	config MetricsConfig

	// Record metrics
	recordsProcessed   *prometheus.CounterVec
	recordsCategorized *prometheus.CounterVec
	recordDuration     prometheus.Histogram
	issues             *prometheus.CounterVec
	parseErrors        prometheus.Counter
	writeBackErrors    prometheus.Counter

	// Batch metrics
	batchesCompleted prometheus.Counter
	batchDuration    prometheus.Histogram
	lastBatch        *prometheus.GaugeVec

	// Table metrics
	tableReloads *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec

	registry *prometheus.Registry
}

var _ engine.Observer = (*Metrics)(nil)

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		recordsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_processed_total",
				Help:      "Total number of workflow records classified, by verdict",
			},
			[]string{"verdict"},
		),
		recordsCategorized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_categorized_total",
				Help:      "Total number of category assignments, by category and resolution tier",
			},
			[]string{"category", "tier"},
		),
		recordDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "record_duration_seconds",
				Help:      "Time spent analyzing a single record in seconds",
				Buckets:   buckets,
			},
		),
		issues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "issues_total",
				Help:      "Total number of validation findings, by kind",
			},
			[]string{"kind"},
		),
		parseErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_errors_total",
				Help:      "Total number of records that could not be parsed",
			},
		),
		writeBackErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "writeback_errors_total",
				Help:      "Total number of failed metadata write-backs",
			},
		),

		batchesCompleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_completed_total",
				Help:      "Total number of completed batches",
			},
		),
		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_duration_seconds",
				Help:      "Duration of a batch in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		lastBatch: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_batch_records",
				Help:      "Number of records per verdict in the most recent batch",
			},
			[]string{"verdict"},
		),

		tableReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "table_reloads_total",
				Help:      "Total number of reference table reloads",
			},
			[]string{"status"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
	}

	registry.MustRegister(
		m.recordsProcessed,
		m.recordsCategorized,
		m.recordDuration,
		m.issues,
		m.parseErrors,
		m.writeBackErrors,
		m.batchesCompleted,
		m.batchDuration,
		m.lastBatch,
		m.tableReloads,
		m.errorsByClass,
	)

	return m, nil
}

// Registry returns the private registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Record Metrics

// RecordAnalyzed implements engine.Observer.
func (m *Metrics) RecordAnalyzed(r *engine.Result) {
	if m.recordsProcessed == nil {
		return
	}
	m.recordsProcessed.WithLabelValues(string(r.Verdict)).Inc()
	m.recordsCategorized.WithLabelValues(r.Category, string(r.Resolution.Tier)).Inc()
	m.recordDuration.Observe(r.Duration.Seconds())

	for _, issue := range r.Report.All() {
		m.issues.WithLabelValues(string(issue.Kind)).Inc()
	}

	if r.Err != nil {
		m.errorsByClass.WithLabelValues(string(r.Err.Class)).Inc()
		if r.Err.Class == engine.ErrorClassParse {
			m.parseErrors.Inc()
		}
	}
}

// WriteBackFailed implements engine.Observer.
func (m *Metrics) WriteBackFailed(string, error) {
	if m.writeBackErrors == nil {
		return
	}
	m.writeBackErrors.Inc()
	m.errorsByClass.WithLabelValues(string(engine.ErrorClassIO)).Inc()
}

// Batch Metrics

// BatchCompleted implements engine.Observer.
func (m *Metrics) BatchCompleted(s *engine.Summary, duration time.Duration) {
	if m.batchesCompleted == nil {
		return
	}
	m.batchesCompleted.Inc()
	m.batchDuration.Observe(duration.Seconds())
	for _, v := range engine.Verdicts {
		m.lastBatch.WithLabelValues(string(v)).Set(float64(s.ByVerdict[v]))
	}
}

// Table Metrics

// RecordTableReload records a reference table reload attempt.
func (m *Metrics) RecordTableReload(err error) {
	if m.tableReloads == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
		m.errorsByClass.WithLabelValues(string(engine.ErrorClassConfig)).Inc()
	}
	m.tableReloads.WithLabelValues(status).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer serves metrics until ctx is cancelled. It returns
// immediately; listen errors are logged.
func (m *Metrics) StartMetricsServer(ctx context.Context, logger zerolog.Logger) error {
	if !m.config.Enabled || m.config.ListenAddress == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", m.config.ListenAddress).Msg("Metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", m.config.ListenAddress).Str("path", m.config.Path).Msg("Metrics server started")
	return nil
}
