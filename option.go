package mailbox

import (
	"log/slog"
	"time"

	"github.com/ninepin/mailbox/store"
	"github.com/rbaliyan/event/v3/transport"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Defaults used by NewService.
const (
	DefaultAutosaveInterval = 5 * time.Minute  // periodic full save
	DefaultShutdownTimeout  = 30 * time.Second // default graceful shutdown timeout
	MinShutdownTimeout      = 1 * time.Second  // minimum shutdown timeout

	// Payload limits
	DefaultMaxPayloadSize = 1024 * 1024 // 1 MB serialized item
	DefaultMaxKindLength  = 255         // matches the relational item_kind column

	DefaultMaxConcurrentOps = 64 // max in-flight mutating operations per service
	DefaultSaveConcurrency  = 8  // parallel backend saves during SaveAll and DeliverAll
)

type options struct {
	store  store.Store
	logger *slog.Logger

	plugins  []Plugin
	notifier Notifier

	// Periodic save; zero disables the worker.
	autosaveInterval time.Duration

	// Payload limits
	maxPayloadSize int
	maxKindLength  int

	maxConcurrentOps int
	saveConcurrency  int

	shutdownTimeout time.Duration

	// Clock, replaceable in tests.
	now func() time.Time

	tracingEnabled bool
	metricsEnabled bool
	serviceName    string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	eventTransport        transport.Transport // nil: redis transport if redisClient is set, else noop
	redisClient           redis.UniversalClient
	onEventPublishFailure EventPublishFailureFunc // never nil after newOptions
}

// EventPublishFailureFunc receives events that could not be published, by
// short name ("MailDelivered", "MailRemoved"). The mutation itself succeeded.
type EventPublishFailureFunc func(eventName string, err error)

// safeEventPublishFailure runs the failure callback, surviving a panic in it.
func (o *options) safeEventPublishFailure(eventName string, err error) {
	if o.onEventPublishFailure == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic in event publish failure handler",
				"event", eventName,
				"error", err,
				"panic", r,
			)
		}
	}()
	o.onEventPublishFailure(eventName, err)
}

func newOptions(opts ...Option) *options {
	o := &options{
		logger:           slog.Default(),
		autosaveInterval: DefaultAutosaveInterval,
		maxPayloadSize:   DefaultMaxPayloadSize,
		maxKindLength:    DefaultMaxKindLength,
		maxConcurrentOps: DefaultMaxConcurrentOps,
		saveConcurrency:  DefaultSaveConcurrency,
		shutdownTimeout:  DefaultShutdownTimeout,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.onEventPublishFailure == nil {
		o.onEventPublishFailure = func(eventName string, err error) {
			o.logger.Error("failed to publish event", "event", eventName, "error", err)
		}
	}

	return o
}

// Option configures a mailbox service.
type Option func(*options)

// WithStore sets the backend mailboxes are loaded from and saved to.
// NewService fails without one.
func WithStore(s store.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p Plugin) Option {
	return func(o *options) {
		if p != nil {
			o.plugins = append(o.plugins, p)
		}
	}
}

// WithPlugins registers plugins in order. Nil entries are skipped.
func WithPlugins(plugins ...Plugin) Option {
	return func(o *options) {
		for _, p := range plugins {
			if p != nil {
				o.plugins = append(o.plugins, p)
			}
		}
	}
}

// WithNotifier sets the notifier told about every delivery. The notifier
// decides whether the recipient is reachable.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithAutosaveInterval sets how often every resident mailbox is saved.
// Zero or a negative value disables periodic saving.
func WithAutosaveInterval(d time.Duration) Option {
	return func(o *options) {
		o.autosaveInterval = d
	}
}

// WithClock replaces the clock used to stamp deliveries.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTracing turns spans on Deliver, RemoveAt, Claim, LoadAll and saves on
// or off.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithMetrics turns the mailbox.* counters and histograms on or off.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithOTel sets tracing and metrics together.
func WithOTel(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
		o.metricsEnabled = enabled
	}
}

// WithServiceName sets the service name used for the event bus and telemetry.
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithTracerProvider replaces the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithMeterProvider replaces the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// WithMaxPayloadSize sets the maximum serialized item size in bytes.
func WithMaxPayloadSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPayloadSize = n
		}
	}
}

// WithMaxConcurrentOps limits in-flight mutating operations. Close waits for
// them before the final save.
func WithMaxConcurrentOps(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrentOps = n
		}
	}
}

// WithSaveConcurrency sets how many backend saves SaveAll and DeliverAll run
// in parallel.
func WithSaveConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.saveConcurrency = n
		}
	}
}

// WithShutdownTimeout sets how long Close waits for in-flight operations.
// Values below MinShutdownTimeout are raised to it.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d < MinShutdownTimeout {
			d = MinShutdownTimeout
		}
		o.shutdownTimeout = d
	}
}

// WithEventTransport sets the transport MailDelivered and MailRemoved are
// published on. It takes precedence over WithRedisClient. Without either,
// events are dropped.
func WithEventTransport(t transport.Transport) Option {
	return func(o *options) {
		if t != nil {
			o.eventTransport = t
		}
	}
}

// WithRedisClient publishes events to Redis Streams on client, so other
// processes (a proxy, a web panel) can follow deliveries.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) {
		if client != nil {
			o.redisClient = client
		}
	}
}

// WithEventPublishFailureHandler replaces the default handling of events
// that could not be published, which is an error log line.
func WithEventPublishFailureHandler(fn EventPublishFailureFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.onEventPublishFailure = fn
		}
	}
}
