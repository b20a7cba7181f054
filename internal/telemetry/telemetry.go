package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/lifemetrics/internal/config"
)

const (
	// ServiceVersion is reported on every exported span.
	ServiceVersion = "1.0.0"

	httpTracerName = "github.com/irfndi/lifemetrics/http"
	tracesPath     = "/v1/traces"
)

// Provider owns the tracer provider installed by Init.
type Provider struct {
	tp     *sdktrace.TracerProvider
	logger *logrus.Logger
}

// Shutdown flushes pending spans and stops the exporter. It is safe on a
// disabled provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	p.logger.Info("Telemetry shut down")
	return nil
}

// Init installs the global tracer provider. When telemetry is disabled the
// otel no-op provider stays in place. An empty OTLP endpoint exports to stdout.
func Init(ctx context.Context, cfg config.TelemetryConfig, environment string, logger *logrus.Logger) (*Provider, error) {
	if !cfg.Enabled {
		logger.Info("Telemetry disabled")
		return &Provider{logger: logger}, nil
	}

	exporter, err := newExporter(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	provider := initWithExporter(cfg, environment, exporter, logger)
	logger.WithFields(logrus.Fields{
		"service":      cfg.ServiceName,
		"endpoint":     cfg.OTLPEndpoint,
		"sample_ratio": cfg.SampleRatio,
	}).Info("Telemetry initialized")
	return provider, nil
}

func newExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exporter, nil
	}

	hostport, urlPath, insecure, _, err := normalizeOTLPEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(hostport),
		otlptracehttp.WithURLPath(urlPath),
	}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}

func initWithExporter(cfg config.TelemetryConfig, environment string, exporter sdktrace.SpanExporter, logger *logrus.Logger) *Provider {
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", ServiceVersion),
		attribute.String("deployment.environment", environment),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp, logger: logger}
}

// normalizeOTLPEndpoint splits a collector URL into the pieces otlptracehttp
// expects. The traces path is appended unless already present.
func normalizeOTLPEndpoint(endpoint string) (hostport, urlPath string, insecure bool, resolved string, err error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", "", false, "", fmt.Errorf("invalid OTLPEndpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", false, "", fmt.Errorf("invalid OTLPEndpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return "", "", false, "", errors.New("invalid OTLPEndpoint: missing host")
	}

	urlPath = strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(urlPath, tracesPath) {
		urlPath += tracesPath
	}

	insecure = u.Scheme == "http"
	resolved = fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, urlPath)
	return u.Host, urlPath, insecure, resolved, nil
}

// GetTracer returns a named tracer from the global provider.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// GetHTTPTracer returns the tracer used by the HTTP middleware.
func GetHTTPTracer() trace.Tracer {
	return otel.Tracer(httpTracerName)
}
