package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "affiliate"

// Metrics holds the service collectors. All methods are safe on a nil receiver.
type Metrics struct {
	registry         *prometheus.Registry
	forwards         *prometheus.CounterVec
	ledgerRows       *prometheus.CounterVec
	reconcileSeconds *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		forwards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_total",
			Help:      "Attribution events forwarded to the notification sink.",
		}, []string{"result"}),
		ledgerRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_rows_total",
			Help:      "Ledger rows read, by normalization outcome.",
		}, []string{"outcome"}),
		reconcileSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_seconds",
			Help:      "Duration of a reconciliation run.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"ledger"}),
	}
	m.registry.MustRegister(m.forwards, m.ledgerRows, m.reconcileSeconds)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveForward(result string) {
	if m == nil {
		return
	}
	m.forwards.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLedgerRows(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ledgerRows.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) ObserveReconcile(d time.Duration, ledgerOK bool) {
	if m == nil {
		return
	}
	label := "ok"
	if !ledgerOK {
		label = "degraded"
	}
	m.reconcileSeconds.WithLabelValues(label).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
