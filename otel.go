package mailbox

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ninepin/mailbox"

// opMetrics is the duration, count and error instruments of one operation.
type opMetrics struct {
	latency metric.Float64Histogram
	count   metric.Int64Counter
	errors  metric.Int64Counter
}

func newOpMetrics(meter metric.Meter, op, noun string) (opMetrics, error) {
	var m opMetrics
	var err error
	if m.latency, err = meter.Float64Histogram("mailbox."+op+".duration",
		metric.WithDescription("Duration of "+op+" operations"),
		metric.WithUnit("s"),
	); err != nil {
		return m, err
	}
	if m.count, err = meter.Int64Counter("mailbox."+op+".count",
		metric.WithDescription("Number of "+noun),
	); err != nil {
		return m, err
	}
	m.errors, err = meter.Int64Counter("mailbox."+op+".errors",
		metric.WithDescription("Number of failed "+op+" operations"),
	)
	return m, err
}

func (m opMetrics) record(ctx context.Context, d time.Duration, err error, attrs ...attribute.KeyValue) {
	set := metric.WithAttributes(attrs...)
	m.latency.Record(ctx, d.Seconds(), set)
	m.count.Add(ctx, 1, set)
	if err != nil {
		m.errors.Add(ctx, 1, set)
	}
}

// otelInstrumentation is the service's tracer and instruments. The zero
// value records nothing.
type otelInstrumentation struct {
	tracer trace.Tracer // nil when tracing is off

	metricsEnabled bool
	deliver        opMetrics
	remove         opMetrics
	load           opMetrics
	save           opMetrics
}

func newOtelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{metricsEnabled: opts.metricsEnabled}

	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}
	if !opts.metricsEnabled {
		return o, nil
	}

	mp := opts.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	var err error
	if o.deliver, err = newOpMetrics(meter, "deliver", "items delivered"); err != nil {
		return nil, err
	}
	if o.remove, err = newOpMetrics(meter, "remove", "items claimed or deleted"); err != nil {
		return nil, err
	}
	if o.load, err = newOpMetrics(meter, "load", "mailbox loads"); err != nil {
		return nil, err
	}
	if o.save, err = newOpMetrics(meter, "save", "mailbox saves"); err != nil {
		return nil, err
	}
	return o, nil
}

// startSpan starts an internal span when tracing is on. The returned func
// ends it, recording err.
func (o *otelInstrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if o.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

func (o *otelInstrumentation) recordDeliver(ctx context.Context, d time.Duration, kind string, err error) {
	if o.metricsEnabled {
		o.deliver.record(ctx, d, err, attribute.String("kind", kind))
	}
}

func (o *otelInstrumentation) recordRemove(ctx context.Context, d time.Duration, reason string, err error) {
	if o.metricsEnabled {
		o.remove.record(ctx, d, err, attribute.String("reason", reason))
	}
}

func (o *otelInstrumentation) recordLoad(ctx context.Context, d time.Duration, users int, err error) {
	if o.metricsEnabled {
		o.load.record(ctx, d, err, attribute.Int("users", users))
	}
}

// recordSave records one user's save. trigger is write-through, explicit,
// autosave or shutdown.
func (o *otelInstrumentation) recordSave(ctx context.Context, d time.Duration, trigger string, err error) {
	if o.metricsEnabled {
		o.save.record(ctx, d, err, attribute.String("trigger", trigger))
	}
}
