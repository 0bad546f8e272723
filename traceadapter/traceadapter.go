// Package traceadapter instruments an adapter for distributed tracing of
// requests to the secrets service. The OpenTelemetry API is supported.
//
// This is not an adapter implementation of its own, but rather a wrapper
// around an existing adapter. Every request made through it produces a trace
// span.
//
// # Usage
//
// Call [New] with a base adapter and hand the result to
// [vaultik.NewWithAdapter]. Token and namespace state stays on the base
// adapter, so a client built this way shares its identity with clients built
// on the base directly.
//
// In order to report traces, an OTel [trace.TracerProvider] must first be set
// up. The details of this are outside the scope of this module, but see the
// vaultcli example in this repository's examples directory for one approach.
//
// A [trace.TracerProvider] can optionally be passed to [New] using
// [WithTracerProvider].
//
// # Propagation
//
// Trace context is injected into the headers of every outgoing request using
// the global [propagation.TextMapPropagator]. This can be overridden by
// passing a [propagation.TextMapPropagator] to [WithPropagators].
package traceadapter

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vaultik/vaultik"
)

const tracerName = "github.com/vaultik/vaultik/traceadapter"

type traceAdapter struct {
	vaultik.Adapter

	tracer      trace.Tracer
	propagators propagation.TextMapPropagator
}

var _ vaultik.Adapter = (*traceAdapter)(nil)

// New returns an adapter that instruments base, adding a trace span for each
// request. Options can be provided to configure the behaviour of the
// instrumented adapter.
func New(base vaultik.Adapter, opts ...Option) vaultik.Adapter {
	cfg := config{}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.tp == nil {
		cfg.tp = otel.GetTracerProvider()
	}

	if cfg.propagators == nil {
		cfg.propagators = otel.GetTextMapPropagator()
	}

	return &traceAdapter{
		Adapter:     base,
		tracer:      cfg.tp.Tracer(tracerName),
		propagators: cfg.propagators,
	}
}

func (a *traceAdapter) Request(ctx context.Context, method, path string, opts ...vaultik.Option) (*vaultik.Response, error) {
	ctx, span := a.tracer.Start(ctx, "vault."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(Method(method), Path(path)))
	defer span.End()

	// carry the trace across to the server
	carrier := propagation.HeaderCarrier{}
	a.propagators.Inject(ctx, carrier)

	opts = append(opts, vaultik.WithHeaders(http.Header(carrier)))

	resp, err := a.Adapter.Request(ctx, method, path, opts...)
	if resp != nil {
		span.SetAttributes(StatusCode(resp.StatusCode))
	}

	return resp, recordError(span, err)
}

func (a *traceAdapter) LoginToken(resp *vaultik.Response) (string, error) {
	_, span := a.tracer.Start(context.Background(), "vault.LoginToken")
	defer span.End()

	token, err := a.Adapter.LoginToken(resp)

	return token, recordError(span, err)
}

// recordError records the given error on the span, and returns it. It does not
// set the span's status to error.
func recordError(span trace.Span, err error) error {
	span.RecordError(err)

	return err
}
