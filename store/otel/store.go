// Package otel provides OpenTelemetry instrumentation for mailbox stores.
package otel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/ninepin/mailbox/store/otel"
)

// Store wraps a store.Store with OpenTelemetry instrumentation.
type Store struct {
	backend store.Store
	opts    *options
	tracer  trace.Tracer

	duration metric.Float64Histogram
	count    metric.Int64Counter
	errors   metric.Int64Counter
	mails    metric.Int64Counter
}

var _ store.Store = (*Store)(nil)

// New creates an instrumented store wrapping backend.
func New(backend store.Store, opts ...Option) (*Store, error) {
	o := &options{
		tracingEnabled: true,
		metricsEnabled: true,
		backendName:    "unknown",
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}

	s := &Store{backend: backend, opts: o}
	if o.tracingEnabled {
		s.tracer = o.tracerProvider.Tracer(instrumentationName)
	}
	if o.metricsEnabled {
		if err := s.initMetrics(o.meterProvider); err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
	}
	return s, nil
}

func (s *Store) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error
	s.duration, err = meter.Float64Histogram(
		"mailbox.store.duration",
		metric.WithDescription("Duration of mailbox store operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	s.count, err = meter.Int64Counter(
		"mailbox.store.count",
		metric.WithDescription("Number of mailbox store operations"),
	)
	if err != nil {
		return err
	}

	s.errors, err = meter.Int64Counter(
		"mailbox.store.errors",
		metric.WithDescription("Number of failed mailbox store operations"),
	)
	if err != nil {
		return err
	}

	s.mails, err = meter.Int64Counter(
		"mailbox.store.mails",
		metric.WithDescription("Number of mails read or written"),
	)
	return err
}

// observe runs fn inside a span and records its metrics. fn returns the
// number of mails it moved.
func (s *Store) observe(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(ctx context.Context) (int, error)) error {
	attrs = append(attrs,
		attribute.String("mailbox.store.op", op),
		attribute.String("mailbox.store.backend", s.opts.backendName),
	)
	attrs = append(attrs, s.opts.attrs...)

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "mailbox.store."+op,
			trace.WithAttributes(attrs...),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()
	}

	start := time.Now()
	n, err := fn(ctx)
	elapsed := time.Since(start).Seconds()

	if s.opts.metricsEnabled {
		metricAttrs := metric.WithAttributes(attrs...)
		s.duration.Record(ctx, elapsed, metricAttrs)
		s.count.Add(ctx, 1, metricAttrs)
		s.mails.Add(ctx, int64(n), metricAttrs)
		if err != nil {
			s.errors.Add(ctx, 1, metricAttrs)
		}
	}

	if span != nil {
		span.SetAttributes(attribute.Int("mailbox.store.mails", n))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
	return err
}

func (s *Store) Connect(ctx context.Context) error {
	return s.observe(ctx, "connect", nil, func(ctx context.Context) (int, error) {
		return 0, s.backend.Connect(ctx)
	})
}

func (s *Store) Close(ctx context.Context) error {
	return s.observe(ctx, "close", nil, func(ctx context.Context) (int, error) {
		return 0, s.backend.Close(ctx)
	})
}

func (s *Store) Load(ctx context.Context, user uuid.UUID) ([]store.Mail, error) {
	var mails []store.Mail
	err := s.observe(ctx, "load", []attribute.KeyValue{attribute.String("mailbox.user", user.String())},
		func(ctx context.Context) (int, error) {
			var err error
			mails, err = s.backend.Load(ctx, user)
			return len(mails), err
		})
	return mails, err
}

func (s *Store) LoadAll(ctx context.Context) (map[uuid.UUID][]store.Mail, error) {
	var all map[uuid.UUID][]store.Mail
	err := s.observe(ctx, "load_all", nil, func(ctx context.Context) (int, error) {
		var err error
		all, err = s.backend.LoadAll(ctx)
		return countMails(all), err
	})
	return all, err
}

func (s *Store) Save(ctx context.Context, user uuid.UUID, mails []store.Mail) error {
	return s.observe(ctx, "save", []attribute.KeyValue{attribute.String("mailbox.user", user.String())},
		func(ctx context.Context) (int, error) {
			return len(mails), s.backend.Save(ctx, user, mails)
		})
}

func (s *Store) SaveAll(ctx context.Context, all map[uuid.UUID][]store.Mail) error {
	return s.observe(ctx, "save_all", []attribute.KeyValue{attribute.Int("mailbox.users", len(all))},
		func(ctx context.Context) (int, error) {
			return countMails(all), s.backend.SaveAll(ctx, all)
		})
}

func countMails(all map[uuid.UUID][]store.Mail) int {
	n := 0
	for _, mails := range all {
		n += len(mails)
	}
	return n
}
