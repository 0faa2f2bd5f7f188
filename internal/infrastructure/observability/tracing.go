package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "dialogue-bot"

// GetTracer returns the tracer for the bot.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartTurnSpan starts a span for one inbound turn.
func StartTurnSpan(ctx context.Context, userID string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "bot.turn",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
}

// StartPushSpan starts a span for one scheduled push batch.
func StartPushSpan(ctx context.Context, job string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "push."+job,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("push.job", job)),
	)
}

// RecordError marks span as failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
