package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "taskgate"

// Metrics holds all TaskGate metric instruments.
type Metrics struct {
	RouteRequests  metric.Int64Counter
	RouteMisses    metric.Int64Counter
	RouteScore     metric.Float64Histogram
	ToolCalls      metric.Int64Counter
	ApprovalsOpen  metric.Int64UpDownCounter
	DispatchMillis metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.Meter(meterName))
}

// NewMetricsFrom creates all metric instruments on meter.
func NewMetricsFrom(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.RouteRequests, err = meter.Int64Counter("taskgate.route.requests",
		metric.WithDescription("Number of prompts routed"))
	if err != nil {
		return nil, err
	}

	m.RouteMisses, err = meter.Int64Counter("taskgate.route.misses",
		metric.WithDescription("Number of prompts that matched no task"))
	if err != nil {
		return nil, err
	}

	m.RouteScore, err = meter.Float64Histogram("taskgate.route.score",
		metric.WithDescription("Confidence score of routed prompts"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("taskgate.toolcalls",
		metric.WithDescription("Number of tool calls by tool and decision"))
	if err != nil {
		return nil, err
	}

	m.ApprovalsOpen, err = meter.Int64UpDownCounter("taskgate.approvals.pending",
		metric.WithDescription("Number of approvals awaiting a decision"))
	if err != nil {
		return nil, err
	}

	m.DispatchMillis, err = meter.Float64Histogram("taskgate.dispatch.duration_ms",
		metric.WithDescription("Tool call dispatch latency in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRoute records one routing decision. A nil receiver is a no-op.
func (m *Metrics) RecordRoute(ctx context.Context, task string, score *float64) {
	if m == nil {
		return
	}
	m.RouteRequests.Add(ctx, 1)
	if task == "" {
		m.RouteMisses.Add(ctx, 1)
		return
	}
	if score != nil {
		m.RouteScore.Record(ctx, *score, metric.WithAttributes(attribute.String("task", task)))
	}
}

// RecordToolCall records one dispatch decision. A nil receiver is a no-op.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, decision string, millis float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("decision", decision),
	)
	m.ToolCalls.Add(ctx, 1, attrs)
	m.DispatchMillis.Record(ctx, millis, attrs)
}

// ApprovalRequested and ApprovalGranted track the pending-approval gauge.
func (m *Metrics) ApprovalRequested(ctx context.Context) {
	if m != nil {
		m.ApprovalsOpen.Add(ctx, 1)
	}
}

func (m *Metrics) ApprovalGranted(ctx context.Context) {
	if m != nil {
		m.ApprovalsOpen.Add(ctx, -1)
	}
}
