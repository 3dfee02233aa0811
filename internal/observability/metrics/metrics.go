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
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	payments         metric.Int64Counter
	chargeMutations  metric.Int64Counter
	snapshots        metric.Int64Counter
	dispatches       metric.Int64Counter
	dispatchFailures metric.Int64Counter
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

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "buildingbills"
	}
	meter := provider.Meter(name)

	payments, err := meter.Int64Counter("buildingbills_payments_recorded_total")
	if err != nil {
		return nil, err
	}
	chargeMutations, err := meter.Int64Counter("buildingbills_charge_mutations_total")
	if err != nil {
		return nil, err
	}
	snapshots, err := meter.Int64Counter("buildingbills_snapshots_created_total")
	if err != nil {
		return nil, err
	}
	dispatches, err := meter.Int64Counter("buildingbills_notification_dispatches_total")
	if err != nil {
		return nil, err
	}
	dispatchFailures, err := meter.Int64Counter("buildingbills_notification_failures_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		payments:         payments,
		chargeMutations:  chargeMutations,
		snapshots:        snapshots,
		dispatches:       dispatches,
		dispatchFailures: dispatchFailures,
	}, nil
}

// RecordPayment counts a recorded payment by mode.
func (m *Metrics) RecordPayment(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("mode", strings.TrimSpace(mode)))
	m.payments.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordChargeMutation counts charge writes by kind and operation.
func (m *Metrics) RecordChargeMutation(ctx context.Context, kind, op string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("operation", strings.TrimSpace(op)),
	)
	m.chargeMutations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSnapshots counts snapshot rows written when a cycle locks.
func (m *Metrics) RecordSnapshots(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.snapshots.Add(ctx, int64(count))
}

// RecordDispatch counts a notification run and its failed deliveries.
func (m *Metrics) RecordDispatch(ctx context.Context, provider string, failed int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("provider", strings.TrimSpace(provider)))
	m.dispatches.Add(ctx, 1, metric.WithAttributes(attrs...))
	if failed > 0 {
		m.dispatchFailures.Add(ctx, int64(failed), metric.WithAttributes(attrs...))
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
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

var allowedLabelKeys = map[attribute.Key]struct{}{
	"mode":      {},
	"kind":      {},
	"operation": {},
	"provider":  {},
	"status":    {},
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
