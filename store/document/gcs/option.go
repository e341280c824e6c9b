package gcs

import (
	"fmt"
	"log/slog"

	"cloud.google.com/go/auth/credentials"
	"google.golang.org/api/option"
)

var scopes = []string{"https://www.googleapis.com/auth/devstorage.read_write"}

// authSource yields the client option that authenticates requests. A nil
// source uses Application Default Credentials.
type authSource func() (option.ClientOption, error)

type options struct {
	bucket   string
	prefix   string
	endpoint string // emulator
	auth     authSource
	logger   *slog.Logger
}

// Option configures the GCS bucket.
type Option func(*options)

// WithBucket names the bucket. Required.
func WithBucket(bucket string) Option {
	return func(o *options) { o.bucket = bucket }
}

// WithPrefix sets the object prefix. Default "mailboxes".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEndpoint points the client at an emulator.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithCredentialsJSON authenticates with a service account key held in
// memory.
func WithCredentialsJSON(json []byte) Option {
	return func(o *options) {
		o.auth = detect("json", &credentials.DetectOptions{Scopes: scopes, CredentialsJSON: json})
	}
}

// WithCredentialsFile authenticates with a service account key file.
func WithCredentialsFile(path string) Option {
	return func(o *options) {
		o.auth = detect("file", &credentials.DetectOptions{Scopes: scopes, CredentialsFile: path})
	}
}

// WithAPIKey authenticates with an API key.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.auth = func() (option.ClientOption, error) { return option.WithAPIKey(key), nil }
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func detect(from string, opts *credentials.DetectOptions) authSource {
	return func() (option.ClientOption, error) {
		creds, err := credentials.DetectDefault(opts)
		if err != nil {
			return nil, fmt.Errorf("detect credentials from %s: %w", from, err)
		}
		return option.WithAuthCredentials(creds), nil
	}
}
