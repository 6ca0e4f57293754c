package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process collectors. Each instance registers on its own
// registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	RequestCount       *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ProviderRequests   *prometheus.CounterVec
	TransactionsSynced *prometheus.CounterVec
	CircuitState       *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_requests_total",
				Help: "Calls to the financial data provider by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		TransactionsSynced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_synced_total",
				Help: "Transactions processed by sync, by upsert outcome.",
			},
			[]string{"outcome"},
		),
		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_open",
				Help: "1 while the named circuit breaker is open.",
			},
			[]string{"name"},
		),
	}

	m.Registry.MustRegister(
		m.RequestCount,
		m.RequestDuration,
		m.ProviderRequests,
		m.TransactionsSynced,
		m.CircuitState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRequest(method, path, status string, elapsed time.Duration) {
	m.RequestCount.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path, status).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveProvider(operation, outcome string) {
	m.ProviderRequests.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveSynced(outcome string, n int) {
	if n > 0 {
		m.TransactionsSynced.WithLabelValues(outcome).Add(float64(n))
	}
}

func (m *Metrics) SetCircuitOpen(name string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.CircuitState.WithLabelValues(name).Set(v)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
