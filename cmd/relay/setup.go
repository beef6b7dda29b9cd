package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fwojciec/relay/config"
	"github.com/fwojciec/relay/runagent"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

// newLogger returns a JSON file logger. Stderr belongs to the TUI, so an
// empty log file disables logging.
func newLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	if cfg.Log.File == "" {
		return zerolog.Nop(), func() {}, nil
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	logger := zerolog.New(f).Level(cfg.LogLevel()).With().Timestamp().Logger()
	return logger, func() { _ = f.Close() }, nil
}

// newTransport builds the run-agent client from cfg.
func newTransport(cfg *config.Config) *runagent.Client {
	opts := []runagent.Option{
		runagent.WithEndpoint(cfg.Endpoint),
		runagent.WithHTTPClient(newHTTPClient(cfg.Timeout)),
		runagent.WithHeader("User-Agent", "relay/"+version),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, runagent.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)))
	}
	return runagent.New(opts...)
}

// newHTTPClient bounds the wait for response headers only. A streamed reply
// may take as long as the server keeps sending.
func newHTTPClient(timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: tr}
}

// newTracerProvider exports spans over OTLP/HTTP to endpoint. An empty
// endpoint yields a no-op provider.
func newTracerProvider(ctx context.Context, endpoint string) (trace.TracerProvider, func(context.Context) error, error) {
	if endpoint == "" {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, nil, fmt.Errorf("tracing exporter: %w", err)
	}
	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName("relay"),
		semconv.ServiceVersion(version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	return tp, tp.Shutdown, nil
}
