package sqlstore

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	DefaultTablePrefix = "mailbox_"
	DefaultTimeout     = 10 * time.Second
)

// options holds relational store configuration.
type options struct {
	tablePrefix string
	timeout     time.Duration
	dialect     Dialect
	logger      *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		tablePrefix: DefaultTablePrefix,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a relational store.
type Option func(*options)

// WithTablePrefix sets the prefix of the mails table. The table is named
// <prefix>mails. An empty prefix is allowed.
func WithTablePrefix(prefix string) Option {
	return func(o *options) {
		o.tablePrefix = prefix
	}
}

// WithTimeout sets the per-operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithDialect overrides the dialect derived from the driver name.
func WithDialect(d Dialect) Option {
	return func(o *options) {
		o.dialect = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
