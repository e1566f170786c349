package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — Prometheus метрики выполнения workflow и HTTP API.
type Metrics struct {
	// RunsTotal — завершённые запуски workflow по статусу (succeeded/failed).
	RunsTotal *prometheus.CounterVec

	// NodeExecutions — выполнения нод по типу и статусу.
	NodeExecutions *prometheus.CounterVec

	// NodeDuration — длительность выполнения ноды по типу.
	NodeDuration *prometheus.HistogramVec

	// UnresolvedInputs — входы-ссылки, которые не удалось разрешить.
	UnresolvedInputs prometheus.Counter

	// HTTPRequests — HTTP запросы по методу и коду ответа.
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics создаёт метрики и регистрирует их в reg.
// Если reg == nil, метрики не регистрируются (удобно для тестов).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeflow_runs_total",
			Help: "Total number of finished workflow runs.",
		}, []string{"status"}),

		NodeExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeflow_node_executions_total",
			Help: "Total number of node executions.",
		}, []string{"kind", "status"}),

		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nodeflow_node_duration_seconds",
			Help:    "Node execution duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind"}),

		UnresolvedInputs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodeflow_unresolved_inputs_total",
			Help: "Total number of link inputs whose source produced no output.",
		}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeflow_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "code"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RunsTotal,
			m.NodeExecutions,
			m.NodeDuration,
			m.UnresolvedInputs,
			m.HTTPRequests,
		)
	}

	return m
}
