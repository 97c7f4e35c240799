package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters for the transform pipeline.
type Metrics struct {
	blocksProcessed prometheus.Counter
	txTransformed   prometheus.Counter
	eventsEmitted   *prometheus.CounterVec
	transformErrors *prometheus.CounterVec
	violations      prometheus.Counter
	jobFailures     prometheus.Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// Init initializes global metrics (idempotent).
func Init() *Metrics {
	once.Do(func() {
		metrics = &Metrics{
			blocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "tradescope_blocks_processed_total",
				Help: "Total number of blocks transformed",
			}),
			txTransformed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "tradescope_transactions_transformed_total",
				Help: "Total number of transactions transformed",
			}),
			eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "tradescope_events_emitted_total",
				Help: "Total number of domain events emitted, by type",
			}, []string{"type"}),
			transformErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "tradescope_errors_total",
				Help: "Total number of processing errors recorded, by type",
			}, []string{"error_type"}),
			violations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "tradescope_reconciliation_violations_total",
				Help: "Total number of reconciliation violations",
			}),
			jobFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "tradescope_job_failures_total",
				Help: "Total number of failed queue jobs",
			}),
		}
		prometheus.MustRegister(
			metrics.blocksProcessed,
			metrics.txTransformed,
			metrics.eventsEmitted,
			metrics.transformErrors,
			metrics.violations,
			metrics.jobFailures,
		)
	})
	return metrics
}

// BlocksProcessed increments the blocks processed counter.
func (m *Metrics) BlocksProcessed() {
	if m != nil {
		m.blocksProcessed.Inc()
	}
}

// TransactionsTransformed adds to the transformed transactions counter.
func (m *Metrics) TransactionsTransformed(n int) {
	if m != nil {
		m.txTransformed.Add(float64(n))
	}
}

// EventEmitted increments the emitted events counter for one event type.
func (m *Metrics) EventEmitted(eventType string) {
	if m != nil {
		m.eventsEmitted.WithLabelValues(eventType).Inc()
	}
}

// TransformError increments the error counter for one error type.
func (m *Metrics) TransformError(errorType string) {
	if m != nil {
		m.transformErrors.WithLabelValues(errorType).Inc()
	}
}

// Violation increments the reconciliation violations counter.
func (m *Metrics) Violation() {
	if m != nil {
		m.violations.Inc()
	}
}

// JobFailed increments the failed jobs counter.
func (m *Metrics) JobFailed() {
	if m != nil {
		m.jobFailures.Inc()
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve runs a metrics HTTP server on addr. It returns immediately; the
// server stops when the process does.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
