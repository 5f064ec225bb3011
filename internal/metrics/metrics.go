// Package metrics exposes Prometheus metrics for the HTTP server and the
// database connection pool.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kuitang/notes-api/internal/obs"
)

const namespace = "notes"

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates a metrics instance with Go runtime and process collectors
// already registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
	}
}

// Registry returns the registry backing this instance.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBStats exports connection pool statistics, read on every scrape.
func (m *Metrics) RegisterDBStats(db *sql.DB) error {
	return m.registry.Register(newPoolCollector(db))
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: slogErrorLogger{},
	})
}

// Middleware records request count, latency and in-flight requests. It must
// wrap the ServeMux directly so the matched route pattern is visible after
// dispatch.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		wrapped, recorder := obs.NewResponseRecorder(w)
		next.ServeHTTP(wrapped, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(route, r.Method, strconv.Itoa(recorder.StatusCode())).Inc()
	})
}

type slogErrorLogger struct{}

func (slogErrorLogger) Println(v ...any) {
	obs.Pkg("metrics").Error("metrics_handler_error", "detail", v)
}

// poolCollector reports sql.DBStats as notes_db_connection_pool{stat}.
type poolCollector struct {
	db   *sql.DB
	desc *prometheus.Desc
}

func newPoolCollector(db *sql.DB) *poolCollector {
	return &poolCollector{
		db: db,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db", "connection_pool"),
			"Database connection pool statistics",
			[]string{"stat"}, nil,
		),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.db.Stats()
	for _, s := range []struct {
		stat  string
		value float64
	}{
		{"max_open", float64(stats.MaxOpenConnections)},
		{"open", float64(stats.OpenConnections)},
		{"in_use", float64(stats.InUse)},
		{"idle", float64(stats.Idle)},
		{"wait_count", float64(stats.WaitCount)},
		{"wait_duration_ms", float64(stats.WaitDuration.Milliseconds())},
	} {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, s.value, s.stat)
	}
}
