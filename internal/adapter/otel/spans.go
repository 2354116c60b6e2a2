package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "swarmpilot"

// StartDecisionSpan starts a span covering one oracle consultation and the
// execution of its decision.
func StartDecisionSpan(ctx context.Context, sessionID, trigger string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "decision",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("decision.trigger", trigger),
		),
	)
}

// StartOracleSpan starts a span for the oracle call itself.
func StartOracleSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "oracle.ask",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
		),
	)
}
