package mongo

import (
	"log/slog"
	"time"
)

// Defaults applied by New.
const (
	DefaultDatabase   = "mailbox"
	DefaultCollection = "mailboxes"
	DefaultTimeout    = 10 * time.Second
	DefaultBatchSize  = 500
)

type options struct {
	database   string
	collection string
	timeout    time.Duration
	batchSize  int
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		database:   DefaultDatabase,
		collection: DefaultCollection,
		timeout:    DefaultTimeout,
		batchSize:  DefaultBatchSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithDatabase selects the database holding the mailbox collection.
func WithDatabase(name string) Option {
	return func(o *options) {
		if name != "" {
			o.database = name
		}
	}
}

// WithCollection names the collection, one document per user.
func WithCollection(name string) Option {
	return func(o *options) {
		if name != "" {
			o.collection = name
		}
	}
}

// WithTimeout bounds each call to the server. SaveAll applies it per batch.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithBatchSize caps how many mailboxes one SaveAll bulk write carries.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithLogger sets the logger for skipped documents.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
