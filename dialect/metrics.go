package dialect

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsDriver wraps a Driver with Prometheus metrics.
//
// Metrics exposed (all namespaced with "cypher_"):
//
//   - statements_total (counter): executed statements.
//     Labels: kind (read/write), status (success/error).
//   - statement_duration_seconds (histogram): round trip latency.
//     Labels: kind.
//   - rows_total (counter): rows returned. Labels: kind.
type MetricsDriver struct {
	Driver
	statements *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rows       *prometheus.CounterVec
}

// Metrics wraps the driver with a MetricsDriver registering its collectors
// with the given registerer, or prometheus.DefaultRegisterer if nil.
//
//	registry := prometheus.NewRegistry()
//	drv := dialect.Metrics(bolt, registry)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
func Metrics(drv Driver, registry prometheus.Registerer) *MetricsDriver {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)
	return &MetricsDriver{
		Driver: drv,
		statements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cypher",
			Name:      "statements_total",
			Help:      "Number of executed Cypher statements",
		}, []string{"kind", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cypher",
			Name:      "statement_duration_seconds",
			Help:      "Round trip duration of Cypher statements",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms to ~16s
		}, []string{"kind"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cypher",
			Name:      "rows_total",
			Help:      "Number of rows returned by Cypher statements",
		}, []string{"kind"}),
	}
}

// Execute executes the statement and records its metrics.
func (d *MetricsDriver) Execute(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	kind := statementKind(ctx)
	start := time.Now()
	rows, err := d.Driver.Execute(ctx, query, params)
	d.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	d.statements.WithLabelValues(kind, status).Inc()
	d.rows.WithLabelValues(kind).Add(float64(len(rows)))
	return rows, err
}

func statementKind(ctx context.Context) string {
	if s, ok := FromContext(ctx); ok && s.ReadOnly {
		return "read"
	}
	return "write"
}

var _ Driver = (*MetricsDriver)(nil)
