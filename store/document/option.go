package document

import "log/slog"

// DefaultLoadConcurrency bounds parallel document reads in LoadAll.
const DefaultLoadConcurrency = 8

type options struct {
	loadConcurrency int
	logger          *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		loadConcurrency: DefaultLoadConcurrency,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a document store.
type Option func(*options)

// WithLoadConcurrency sets how many documents LoadAll reads in parallel.
func WithLoadConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.loadConcurrency = n
		}
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
