package middleware

import (
	"context"
	"fmt"

	vangoedge "github.com/vango-go/vango-edge"
	"github.com/vango-go/vango-edge/pkg/serverfn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for the adapter.
const defaultTracerName = "vango-edge"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "vango-edge").
	TracerName string

	// Filter determines which invocations to trace.
	// Return true to trace the invocation, false to skip.
	// If nil, all invocations are traced.
	Filter func(fn serverfn.Fn) bool

	// AttributeExtractor extracts custom attributes for each traced
	// invocation.
	AttributeExtractor func(ctx context.Context, fn serverfn.Fn) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithFilter sets a filter function for invocations.
func WithFilter(filter func(fn serverfn.Fn) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ctx context.Context, fn serverfn.Fn) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that traces every server-function
// invocation.
//
// The middleware:
//   - Creates a span per invocation named after the function path
//   - Records the function path and encoding as attributes
//   - Records errors and sets span status
//   - Records the result payload size on success
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it in
// your main() before serving:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	)
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) vangoedge.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	// Resolve tracer from global provider
	config.tracer = otel.Tracer(config.TracerName)

	return func(next vangoedge.InvokeFunc) vangoedge.InvokeFunc {
		return func(ctx context.Context, fn serverfn.Fn, data []byte) (serverfn.Payload, error) {
			if config.Filter != nil && !config.Filter(fn) {
				return next(ctx, fn, data)
			}

			attrs := []attribute.KeyValue{
				attribute.String("serverfn.path", fn.Path()),
				attribute.String("serverfn.encoding", fn.Encoding().String()),
				attribute.Int("serverfn.args_bytes", len(data)),
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(ctx, fn)...)
			}

			spanCtx, span := config.tracer.Start(
				ctx,
				fmt.Sprintf("serverfn %s", fn.Path()),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			payload, err := next(spanCtx, fn, data)

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
				span.SetAttributes(attribute.Int("serverfn.result_bytes", len(payload.Body())))
			}

			return payload, err
		}
	}
}
