package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "taskgate"

// StartRouteSpan starts a span for classifying a prompt.
func StartRouteSpan(ctx context.Context, matcher string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "route",
		trace.WithAttributes(attribute.String("route.matcher", matcher)),
	)
}

// StartToolCallSpan starts a span for dispatching one tool call.
func StartToolCallSpan(ctx context.Context, userID, tool, action string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "toolcall",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("toolcall.tool", tool),
			attribute.String("toolcall.action", action),
		),
	)
}

// StartAgentSpan starts a span for an agent task execution.
func StartAgentSpan(ctx context.Context, userID, task string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "agent",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("agent.task", task),
		),
	)
}
