package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/telemetry"
)

// NodeEvent — описание ноды, о которой сообщает Observer.
type NodeEvent struct {
	NodeID string
	Kind   string
	Index  int // позиция в порядке выполнения
	Total  int // количество нод в порядке
}

// Observer получает события выполнения запуска.
//
// Методы вызываются синхронно из цикла выполнения и не должны блокироваться.
type Observer interface {
	// RunStarted — запуск начат, nodes — количество нод в workflow.
	RunStarted(ctx context.Context, nodes int)

	// NodeStarted — нода начинает выполнение.
	NodeStarted(ctx context.Context, ev NodeEvent)

	// InputResolved — вход-ссылка подставлен выходом источника.
	InputResolved(ctx context.Context, ev NodeEvent, input string, link domain.Link)

	// InputUnresolved — источник ссылки не произвёл выход.
	InputUnresolved(ctx context.Context, ev NodeEvent, w domain.UnresolvedInput)

	// NodeCompleted — нода выполнена, out — её основной выход.
	NodeCompleted(ctx context.Context, ev NodeEvent, out domain.Value, elapsed time.Duration)

	// NodeFailed — нода завершилась ошибкой.
	NodeFailed(ctx context.Context, ev NodeEvent, err error, elapsed time.Duration)

	// RunFinished — запуск завершён; ровно одно из res/err не nil.
	RunFinished(ctx context.Context, res *Result, err error, elapsed time.Duration)
}

// NopObserver — Observer, игнорирующий все события.
// Удобно встраивать, чтобы реализовать только нужные методы.
type NopObserver struct{}

func (NopObserver) RunStarted(context.Context, int) {}

func (NopObserver) NodeStarted(context.Context, NodeEvent) {}

func (NopObserver) InputResolved(context.Context, NodeEvent, string, domain.Link) {}

func (NopObserver) InputUnresolved(context.Context, NodeEvent, domain.UnresolvedInput) {}

func (NopObserver) NodeCompleted(context.Context, NodeEvent, domain.Value, time.Duration) {}

func (NopObserver) NodeFailed(context.Context, NodeEvent, error, time.Duration) {}

func (NopObserver) RunFinished(context.Context, *Result, error, time.Duration) {}

// Observers рассылает события нескольким наблюдателям по порядку.
type Observers []Observer

func (o Observers) RunStarted(ctx context.Context, nodes int) {
	for _, obs := range o {
		obs.RunStarted(ctx, nodes)
	}
}

func (o Observers) NodeStarted(ctx context.Context, ev NodeEvent) {
	for _, obs := range o {
		obs.NodeStarted(ctx, ev)
	}
}

func (o Observers) InputResolved(ctx context.Context, ev NodeEvent, input string, link domain.Link) {
	for _, obs := range o {
		obs.InputResolved(ctx, ev, input, link)
	}
}

func (o Observers) InputUnresolved(ctx context.Context, ev NodeEvent, w domain.UnresolvedInput) {
	for _, obs := range o {
		obs.InputUnresolved(ctx, ev, w)
	}
}

func (o Observers) NodeCompleted(ctx context.Context, ev NodeEvent, out domain.Value, elapsed time.Duration) {
	for _, obs := range o {
		obs.NodeCompleted(ctx, ev, out, elapsed)
	}
}

func (o Observers) NodeFailed(ctx context.Context, ev NodeEvent, err error, elapsed time.Duration) {
	for _, obs := range o {
		obs.NodeFailed(ctx, ev, err, elapsed)
	}
}

func (o Observers) RunFinished(ctx context.Context, res *Result, err error, elapsed time.Duration) {
	for _, obs := range o {
		obs.RunFinished(ctx, res, err, elapsed)
	}
}

// LogObserver пишет события в логгер из контекста (telemetry.FromContext).
type LogObserver struct{}

func (LogObserver) RunStarted(ctx context.Context, nodes int) {
	telemetry.FromContext(ctx).Info("run started", "nodes", nodes)
}

func (LogObserver) NodeStarted(ctx context.Context, ev NodeEvent) {
	nodeLogger(ctx, ev).Debug("node started", "index", ev.Index, "total", ev.Total)
}

func (LogObserver) InputResolved(ctx context.Context, ev NodeEvent, input string, link domain.Link) {
	nodeLogger(ctx, ev).Debug("input resolved", "input", input, "source_id", link.SourceID, "slot", link.Slot)
}

func (LogObserver) InputUnresolved(ctx context.Context, ev NodeEvent, w domain.UnresolvedInput) {
	nodeLogger(ctx, ev).Warn("input unresolved", "input", w.Input, "source_id", w.SourceID, "slot", w.Slot)
}

func (LogObserver) NodeCompleted(ctx context.Context, ev NodeEvent, out domain.Value, elapsed time.Duration) {
	nodeLogger(ctx, ev).Info("node completed", "output_type", out.Type, "duration_ms", elapsed.Milliseconds())
}

func (LogObserver) NodeFailed(ctx context.Context, ev NodeEvent, err error, elapsed time.Duration) {
	nodeLogger(ctx, ev).Error("node failed", "error", err, "duration_ms", elapsed.Milliseconds())
}

func (LogObserver) RunFinished(ctx context.Context, res *Result, err error, elapsed time.Duration) {
	logger := telemetry.FromContext(ctx)
	if err != nil {
		logger.Error("run failed", "error", err, "error_kind", KindOf(err), "duration_ms", elapsed.Milliseconds())
		return
	}
	logger.Info("run completed",
		"nodes", len(res.Order),
		"warnings", len(res.Warnings),
		"duration_ms", elapsed.Milliseconds(),
	)
}

func nodeLogger(ctx context.Context, ev NodeEvent) *slog.Logger {
	return telemetry.WithNodeID(telemetry.FromContext(ctx), ev.NodeID, ev.Kind)
}

// MetricsObserver обновляет Prometheus метрики.
type MetricsObserver struct {
	NopObserver
	metrics *telemetry.Metrics
}

// NewMetricsObserver создаёт MetricsObserver.
func NewMetricsObserver(m *telemetry.Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) InputUnresolved(context.Context, NodeEvent, domain.UnresolvedInput) {
	o.metrics.UnresolvedInputs.Inc()
}

func (o *MetricsObserver) NodeCompleted(_ context.Context, ev NodeEvent, _ domain.Value, elapsed time.Duration) {
	o.metrics.NodeExecutions.WithLabelValues(ev.Kind, "succeeded").Inc()
	o.metrics.NodeDuration.WithLabelValues(ev.Kind).Observe(elapsed.Seconds())
}

func (o *MetricsObserver) NodeFailed(_ context.Context, ev NodeEvent, _ error, elapsed time.Duration) {
	o.metrics.NodeExecutions.WithLabelValues(ev.Kind, "failed").Inc()
	o.metrics.NodeDuration.WithLabelValues(ev.Kind).Observe(elapsed.Seconds())
}

func (o *MetricsObserver) RunFinished(_ context.Context, _ *Result, err error, _ time.Duration) {
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	o.metrics.RunsTotal.WithLabelValues(status).Inc()
}
