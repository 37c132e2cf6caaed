package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("event_type", "payment_intent.succeeded"),
		attribute.String("buyer_id", "456"),
		attribute.String("item_type", "print"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "event_type" && attrs[1].Key != "event_type" {
		t.Fatalf("expected event_type to be retained")
	}
	if attrs[0].Key != "item_type" && attrs[1].Key != "item_type" {
		t.Fatalf("expected item_type to be retained")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordWebhookEvent(ctx, "stripe", "payment_intent.succeeded", "settled")
	m.RecordSale(ctx, "print", "usd", 2999)
	m.RecordSettlementError(ctx, "payment_intent.succeeded", "db")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordSale(context.Background(), "original", "usd", 5000)
	m.RecordIntentCreated(context.Background(), "course", "usd")
}
