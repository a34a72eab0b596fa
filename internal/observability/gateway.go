package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "weatherproxy/gateway"

// GatewayMetrics counts answered gateway requests by endpoint and outcome.
type GatewayMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func NewGatewayMetrics(mp metric.MeterProvider) (*GatewayMetrics, error) {
	meter := mp.Meter(meterName)

	requests, err := meter.Int64Counter(
		"gateway.requests",
		metric.WithDescription("Gateway requests by endpoint, outcome and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"gateway.request.duration",
		metric.WithDescription("End to end gateway request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &GatewayMetrics{requests: requests, duration: duration}, nil
}

// RecordRequest records one answered request. A nil receiver is a no-op.
func (m *GatewayMetrics) RecordRequest(ctx context.Context, endpoint, outcome string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", outcome),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", outcome),
	))
}
