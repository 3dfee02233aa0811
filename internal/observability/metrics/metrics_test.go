package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("mode", "upi"),
		attribute.String("unit_code", "A-101"),
		attribute.String("provider", "resend"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "mode" && attrs[1].Key != "mode" {
		t.Fatalf("expected mode to be retained")
	}
	if attrs[0].Key != "provider" && attrs[1].Key != "provider" {
		t.Fatalf("expected provider to be retained")
	}
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	m.RecordPayment(ctx, "cash")
	m.RecordChargeMutation(ctx, "common", "upsert")
	m.RecordSnapshots(ctx, 2)
	m.RecordDispatch(ctx, "noop", 1)
}
