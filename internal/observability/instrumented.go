package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"weatherproxy/internal/models"
	"weatherproxy/internal/upstream"
	"weatherproxy/internal/usage"
)

// instruments is the span, latency histogram and error counter shared by the
// decorators below.
type instruments struct {
	prefix   string
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

func newInstruments(prefix string, mp metric.MeterProvider, tp trace.TracerProvider) (*instruments, error) {
	meter := mp.Meter("weatherproxy/" + prefix)

	duration, err := meter.Float64Histogram(
		prefix+".operation.duration",
		metric.WithDescription("Duration of "+prefix+" operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		prefix+".operation.errors",
		metric.WithDescription("Number of failed "+prefix+" operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &instruments{
		prefix:   prefix,
		tracer:   tp.Tracer("weatherproxy/" + prefix),
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (in *instruments) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := in.tracer.Start(ctx, in.prefix+"."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String(in.prefix+".operation", operation),
		}, attrs...)...),
	)
	return ctx, span, time.Now()
}

func (in *instruments) end(ctx context.Context, span trace.Span, operation string, start time.Time, err error, extra ...attribute.KeyValue) {
	attrs := append([]attribute.KeyValue{attribute.String("operation", operation)}, extra...)
	in.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		in.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InstrumentedFetcher traces and times every provider call. URLs are
// redacted before they are attached to spans.
type InstrumentedFetcher struct {
	inner upstream.Fetcher
	in    *instruments
}

func NewInstrumentedFetcher(inner upstream.Fetcher, mp metric.MeterProvider, tp trace.TracerProvider) (*InstrumentedFetcher, error) {
	in, err := newInstruments("upstream", mp, tp)
	if err != nil {
		return nil, err
	}
	return &InstrumentedFetcher{inner: inner, in: in}, nil
}

func (f *InstrumentedFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	ctx, span, start := f.in.start(ctx, "Fetch", attribute.String("url.full", upstream.Redact(rawURL)))
	body, err := f.inner.Fetch(ctx, rawURL)
	f.in.end(ctx, span, "Fetch", start, err, attribute.String("error.type", fetchErrorType(err)))
	return body, err
}

func fetchErrorType(err error) string {
	var statusErr *upstream.StatusError
	var transportErr *upstream.TransportError
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &statusErr):
		return "status"
	case errors.As(err, &transportErr):
		return "transport"
	default:
		return "other"
	}
}

// InstrumentedRecorder wraps a usage.Recorder with tracing and metrics.
type InstrumentedRecorder struct {
	inner usage.Recorder
	in    *instruments
}

func NewInstrumentedRecorder(inner usage.Recorder, mp metric.MeterProvider, tp trace.TracerProvider) (*InstrumentedRecorder, error) {
	in, err := newInstruments("usage", mp, tp)
	if err != nil {
		return nil, err
	}
	return &InstrumentedRecorder{inner: inner, in: in}, nil
}

func (r *InstrumentedRecorder) Record(ctx context.Context, ev models.UsageEvent) error {
	ctx, span, start := r.in.start(ctx, "Record",
		attribute.String("endpoint", ev.Endpoint),
		attribute.String("outcome", ev.Outcome),
	)
	err := r.inner.Record(ctx, ev)
	r.in.end(ctx, span, "Record", start, err)
	return err
}

func (r *InstrumentedRecorder) Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error) {
	ctx, span, start := r.in.start(ctx, "Summary", attribute.String("since", since.UTC().Format(time.RFC3339)))
	out, err := r.inner.Summary(ctx, since)
	r.in.end(ctx, span, "Summary", start, err)
	return out, err
}

func (r *InstrumentedRecorder) Ping(ctx context.Context) error {
	ctx, span, start := r.in.start(ctx, "Ping")
	err := r.inner.Ping(ctx)
	r.in.end(ctx, span, "Ping", start, err)
	return err
}

func (r *InstrumentedRecorder) Close() error {
	return r.inner.Close()
}
