package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/akeren/clariolane-waitlist/internal/log"
	"github.com/akeren/clariolane-waitlist/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

const defaultOTLPTracesPath = "/v1/traces"

// TracingSettings is read from the standard OTEL_* variables.
type TracingSettings struct {
	ServiceName string
	Endpoint    string
	Environment string
	// SampleRatio applies to root spans; child spans follow their parent.
	SampleRatio float64
}

type otlpTarget struct {
	hostPort string
	path     string
	insecure bool
}

func tracingSettingsFromEnv() TracingSettings {
	return TracingSettings{
		ServiceName: utils.OTelServiceName(),
		Endpoint:    utils.GetEnvTrimmedOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		Environment: GetAppEnv(),
		SampleRatio: parseSampleRatio(utils.GetEnvTrimmed("OTEL_TRACES_SAMPLER_ARG")),
	}
}

// SetupTracing installs the global tracer provider used by the waitlist spans and otelgin. It
// returns a nil shutdown func when tracing is disabled.
func SetupTracing(logger *log.Logger) (func(context.Context) error, error) {
	if !utils.IsTracingEnabled() {
		return nil, nil
	}

	settings := tracingSettingsFromEnv()

	target, err := parseOTLPEndpoint(settings.Endpoint)
	if err != nil {
		return nil, err
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(target.hostPort),
		otlptracehttp.WithURLPath(target.path),
	}
	if target.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("setup tracing exporter: %w", err)
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", settings.ServiceName)}
	if settings.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", settings.Environment))
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("setup tracing resource: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(newSampler(settings.SampleRatio)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger.Info("OpenTelemetry tracing enabled",
		"service", settings.ServiceName,
		"endpoint", settings.Endpoint,
		"sample_ratio", settings.SampleRatio,
	)

	return tp.Shutdown, nil
}

func newSampler(ratio float64) trace.Sampler {
	if ratio >= 1 {
		return trace.ParentBased(trace.AlwaysSample())
	}
	return trace.ParentBased(trace.TraceIDRatioBased(ratio))
}

// parseSampleRatio accepts a value in [0,1]; anything else samples everything.
func parseSampleRatio(raw string) float64 {
	if raw == "" {
		return 1
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return 1
	}
	return ratio
}

// parseOTLPEndpoint accepts http(s)://host:port[/path] or a bare host:port.
func parseOTLPEndpoint(raw string) (otlpTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return otlpTarget{}, fmt.Errorf("empty OTLP endpoint")
	}

	if !strings.Contains(raw, "://") {
		// otlptracehttp.WithEndpoint takes host:port only.
		if strings.ContainsAny(raw, "/?#") {
			return otlpTarget{}, fmt.Errorf("invalid OTLP endpoint %q: use http://host:port[/path] when a path is needed", raw)
		}
		return otlpTarget{hostPort: raw, path: defaultOTLPTracesPath, insecure: true}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return otlpTarget{}, fmt.Errorf("invalid OTLP endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return otlpTarget{}, fmt.Errorf("invalid OTLP endpoint %q: missing host", raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return otlpTarget{}, fmt.Errorf("unsupported OTLP endpoint scheme %q in %q", u.Scheme, raw)
	}

	path := u.EscapedPath()
	if path == "" || path == "/" {
		path = defaultOTLPTracesPath
	}

	return otlpTarget{hostPort: u.Host, path: path, insecure: scheme == "http"}, nil
}
