// Package otelround traces backend requests and tool executions with OpenTelemetry.
package otelround

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/toolround"
)

// TracerName is the instrumentation scope of the spans.
const TracerName = "github.com/skosovsky/toolround/ext/otelround"

// Span names.
const (
	SpanGenerate = "toolround.backend.generate"
	SpanExecute  = "toolround.tool.execute"
)

// Attribute keys.
const (
	AttrExchangeID = attribute.Key("toolround.exchange_id")
	AttrModel      = attribute.Key("toolround.model")
	AttrTurns      = attribute.Key("toolround.turns")
	AttrTools      = attribute.Key("toolround.tools")
	AttrStopReason = attribute.Key("toolround.stop_reason")
	AttrToolCalls  = attribute.Key("toolround.tool_calls")
	AttrToolName   = attribute.Key("toolround.tool.name")
)

// Option configures the decorators.
type Option func(*config)

type config struct {
	provider trace.TracerProvider
}

// WithTracerProvider uses tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.provider = tp }
}

func newTracer(opts []Option) trace.Tracer {
	c := config{provider: otel.GetTracerProvider()}
	for _, opt := range opts {
		opt(&c)
	}
	return c.provider.Tracer(TracerName)
}

// Backend wraps a toolround.Backend with one span per Generate.
type Backend struct {
	next   toolround.Backend
	tracer trace.Tracer
}

// WrapBackend returns next decorated with tracing.
func WrapBackend(next toolround.Backend, opts ...Option) *Backend {
	return &Backend{next: next, tracer: newTracer(opts)}
}

// Generate calls the wrapped backend inside a span.
func (b *Backend) Generate(ctx context.Context, req *toolround.BackendRequest) (resp *toolround.BackendResponse, err error) {
	attrs := exchangeAttrs(ctx)
	if req != nil {
		attrs = append(attrs,
			AttrModel.String(req.Model),
			AttrTurns.Int(len(req.Turns)),
			AttrTools.Int(len(req.Tools)),
		)
	}
	ctx, span := b.tracer.Start(ctx, SpanGenerate, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
	defer func() { endSpan(span, err) }()

	resp, err = b.next.Generate(ctx, req)
	if resp != nil {
		span.SetAttributes(
			AttrStopReason.String(string(resp.StopReason)),
			AttrToolCalls.Int(len(resp.ToolCalls())),
		)
	}
	return resp, err
}

// Executor wraps a toolround.ToolExecutor with one span per Execute.
type Executor struct {
	next   toolround.ToolExecutor
	tracer trace.Tracer
}

// WrapExecutor returns next decorated with tracing.
func WrapExecutor(next toolround.ToolExecutor, opts ...Option) *Executor {
	return &Executor{next: next, tracer: newTracer(opts)}
}

// Execute runs the tool inside a span.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (out any, err error) {
	attrs := append(exchangeAttrs(ctx), AttrToolName.String(name))
	ctx, span := e.tracer.Start(ctx, SpanExecute, trace.WithAttributes(attrs...))
	defer func() { endSpan(span, err) }()
	return e.next.Execute(ctx, name, args)
}

func exchangeAttrs(ctx context.Context) []attribute.KeyValue {
	if id, ok := toolround.ExchangeIDFromContext(ctx); ok {
		return []attribute.KeyValue{AttrExchangeID.String(id)}
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

var (
	_ toolround.Backend      = (*Backend)(nil)
	_ toolround.ToolExecutor = (*Executor)(nil)
)
