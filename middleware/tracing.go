package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/duynhne/user-web/config"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const exporterInitTimeout = 10 * time.Second

var (
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	serviceName    = unknownService
)

// infraPaths are probe and scrape endpoints; they get neither spans nor
// request metrics.
var infraPaths = []string{
	"/health", "/healthz", "/ready", "/readyz", "/readiness", "/livez", "/liveness",
	"/metrics", "/favicon.ico",
}

func isInfraPath(path string) bool {
	for _, p := range infraPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// InitTracing installs a global tracer provider that batches spans to the
// OTLP HTTP collector from cfg.Tracing.
//
//	tp, err := middleware.InitTracing(cfg)
//	defer middleware.Shutdown(ctx)
func InitTracing(cfg *config.Config) (*sdktrace.TracerProvider, error) {
	if !cfg.Tracing.Enabled {
		return nil, errors.New("tracing is disabled (TRACING_ENABLED=false)")
	}
	if cfg.Tracing.Endpoint == "" {
		return nil, errors.New("OTEL_COLLECTOR_ENDPOINT is required when tracing is enabled")
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1.0 {
		return nil, fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got: %.2f", cfg.Tracing.SampleRate)
	}

	ctx, cancel := context.WithTimeout(context.Background(), exporterInitTimeout)
	defer cancel()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Tracing.Endpoint),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := CreateResource(ctx, cfg.Tracing.ServiceName, cfg.Service.Version)
	if err != nil {
		zap.L().Warn("Resource detection incomplete", zap.Error(err))
	}
	serviceName = GetServiceName(res)

	// Sampling follows the caller's decision when a traceparent arrives
	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithExportTimeout(30*time.Second),
			sdktrace.WithMaxExportBatchSize(cfg.Tracing.MaxExportBatchSize),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Tracing.SampleRate))),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracer = tracerProvider.Tracer(serviceName)

	return tracerProvider, nil
}

// TracingMiddleware starts a server span per page request. Must be
// registered after InitTracing so the detected service name is used.
func TracingMiddleware() gin.HandlerFunc {
	otelMiddleware := otelgin.Middleware(serviceName,
		otelgin.WithTracerProvider(otel.GetTracerProvider()),
	)

	return func(c *gin.Context) {
		if isInfraPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		otelMiddleware(c)
	}
}

// TracingTransport wraps an outbound transport so calls to the users API
// become client spans and carry the W3C traceparent header.
func TracingTransport(next http.RoundTripper) http.RoundTripper {
	return otelhttp.NewTransport(next,
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		otelhttp.WithPropagators(otel.GetTextMapPropagator()),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "users-api " + r.Method
		}),
	)
}

// GetTracer returns the service tracer, falling back to the global provider
// when tracing was never initialized.
func GetTracer() trace.Tracer {
	if tracer == nil {
		return otel.Tracer(serviceName)
	}
	return tracer
}

// StartSpan starts a span under ctx. The caller ends it.
//
//	ctx, span := middleware.StartSpan(ctx, "user.get")
//	defer span.End()
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	//nolint:spancheck // span is returned to caller who is responsible for calling span.End()
	return GetTracer().Start(ctx, name, opts...)
}

// Shutdown flushes pending spans and stops the tracer provider. It is a
// no-op when tracing was not initialized.
func Shutdown(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}
	if err := tracerProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("flush traces: %w", err)
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	return nil
}

// AddSpanAttributes sets attributes on the span in ctx if it is recording
//
//	middleware.AddSpanAttributes(ctx, attribute.Int("user.id", user.ID))
func AddSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// AddSpanEvent adds an event to the span in ctx if it is recording
//
//	middleware.AddSpanEvent(ctx, "detail.stale_response", attribute.Int("user.id", id))
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// RecordError records err on the span in ctx and marks it failed
func RecordError(ctx context.Context, err error) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
