package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used for receiving spans
const TracerName = "erp-receiving"

// Span attribute keys
var (
	AttrOrderID       = attribute.Key("receiving.order_id")
	AttrEmployeeID    = attribute.Key("receiving.employee_id")
	AttrLines         = attribute.Key("receiving.lines")
	AttrUnordered     = attribute.Key("receiving.unordered_items")
	AttrWarnings      = attribute.Key("receiving.warnings")
	AttrAutoClosed    = attribute.Key("receiving.auto_closed")
	AttrReleasedUnits = attribute.Key("receiving.released_units")
)

// Operation is a traced receiving operation. Callers defer End and report the
// result once through Finish.
type Operation struct {
	span trace.Span
}

// StartOperation starts the span "receiving.<name>".
func StartOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Operation) {
	ctx, span := otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "receiving."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return ctx, &Operation{span: span}
}

// Annotate adds attributes to the operation's span.
func (o *Operation) Annotate(attrs ...attribute.KeyValue) {
	o.span.SetAttributes(attrs...)
}

// Finish records the outcome. A failed outcome marks the span as an error;
// a rejection is a user-correctable result and only adds an event.
func (o *Operation) Finish(outcome string, err error) {
	o.span.SetAttributes(AttrOutcome.String(outcome))
	switch {
	case outcome == OutcomeFailed && err != nil:
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	case err != nil:
		o.span.AddEvent("rejected", trace.WithAttributes(attribute.String("reason", err.Error())))
	default:
		o.span.SetStatus(codes.Ok, "")
	}
}

// End ends the span.
func (o *Operation) End() {
	o.span.End()
}
