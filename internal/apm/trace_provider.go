package apm

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/pool-sniper/internal/logger"
)

type Provider string

const (
	ConsoleProvider  Provider = "stdout"
	ZipkinProvider   Provider = "zipkin"
	OTLPGRPCProvider Provider = "otlp"
	OTLPHTTPProvider Provider = "otlphttp"
	EmptyProvider    Provider = "none"
)

type TraceProvider interface {
	Stop() error
}

type emptyTraceProvider struct{}

func (emptyTraceProvider) Stop() error { return nil }

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type TracerOptions struct {
	provider    Provider
	endpoint    string
	serviceName string
	stdout      io.Writer
}

type TracerOption func(*TracerOptions)

// WithProvider selects the exporter. endpoint is ignored for stdout.
func WithProvider(provider Provider, endpoint string) TracerOption {
	return func(o *TracerOptions) {
		o.provider = provider
		o.endpoint = endpoint
	}
}

// WithServiceName sets the resource service name.
func WithServiceName(name string) TracerOption {
	return func(o *TracerOptions) {
		o.serviceName = name
	}
}

// WithConsoleOutput redirects the stdout exporter, e.g. away from the TUI.
func WithConsoleOutput(w io.Writer) TracerOption {
	return func(o *TracerOptions) {
		o.stdout = w
	}
}

func newExporter(o *TracerOptions) (sdktrace.SpanExporter, error) {
	switch o.provider {
	case ConsoleProvider:
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if o.stdout != nil {
			opts = append(opts, stdouttrace.WithWriter(o.stdout))
		}
		return stdouttrace.New(opts...)
	case ZipkinProvider:
		return zipkin.New(o.endpoint)
	case OTLPGRPCProvider:
		return otlptracegrpc.New(context.Background(), otlptracegrpc.WithEndpointURL(o.endpoint))
	case OTLPHTTPProvider:
		return otlptracehttp.New(context.Background(), otlptracehttp.WithEndpointURL(o.endpoint))
	}
	return nil, fmt.Errorf("unknown trace provider %q", o.provider)
}

// NewTraceProvider installs the global tracer provider. Unknown or empty
// providers fall back to a no-op provider with a warning.
func NewTraceProvider(log logger.LoggerInterface, options ...TracerOption) (TraceProvider, error) {
	opts := &TracerOptions{
		provider:    EmptyProvider,
		serviceName: os.Getenv("OTEL_SERVICE_NAME"),
	}
	for _, opt := range options {
		opt(opts)
	}

	if opts.provider == EmptyProvider || opts.provider == "" {
		return emptyTraceProvider{}, nil
	}

	exp, err := newExporter(opts)
	if err != nil {
		log.Warn(context.Background(), "trace exporter unavailable, tracing disabled",
			"provider", opts.provider, "error", err)
		return emptyTraceProvider{}, err
	}

	rsrc, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(opts.serviceName),
			attribute.String("otel.provider", string(opts.provider)),
		))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	// Set global trace provider
	otel.SetTracerProvider(tp)

	// Set trace propagator
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(context.Background(), "tracing enabled", "provider", opts.provider)
	return &traceProvider{tp}, nil
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}
