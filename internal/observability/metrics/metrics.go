package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
}

// Metrics exposes domain-level instruments.
type Metrics struct {
	casesCreated        metric.Int64Counter
	casesListed         metric.Int64Counter
	stalledCases        metric.Int64Counter
	attachmentsUploaded metric.Int64Counter
	orgsProvisioned     metric.Int64Counter
	rateLimitDenied     metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New creates the domain instruments on the given provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "repair-manager"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
	}{
		{&m.casesCreated, "repair_cases_created_total"},
		{&m.casesListed, "repair_cases_listed_total"},
		{&m.stalledCases, "repair_cases_stalled_total"},
		{&m.attachmentsUploaded, "repair_attachments_uploaded_total"},
		{&m.orgsProvisioned, "repair_orgs_provisioned_total"},
		{&m.rateLimitDenied, "repair_rate_limit_denied_total"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}
	return m, nil
}

// RecordCaseCreated counts a newly created case by its initial status.
func (m *Metrics) RecordCaseCreated(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.casesCreated.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("status", status))...))
}

// RecordCaseList records one list or export call and how many stalled cases it surfaced.
func (m *Metrics) RecordCaseList(ctx context.Context, endpoint string, stalled int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("endpoint", endpoint))...)
	m.casesListed.Add(ctx, 1, attrs)
	if stalled > 0 {
		m.stalledCases.Add(ctx, int64(stalled), attrs)
	}
}

func (m *Metrics) RecordAttachmentUploaded(ctx context.Context, mimeType string) {
	if m == nil {
		return
	}
	m.attachmentsUploaded.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("mime_type", mimeType))...))
}

func (m *Metrics) RecordOrgProvisioned(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.orgsProvisioned.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("source", source))...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("endpoint", endpoint))...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// org_id is deliberately absent: tenant count is unbounded.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"method":      {},
	"route":       {},
	"status_code": {},
	"status":      {},
	"mime_type":   {},
	"source":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
