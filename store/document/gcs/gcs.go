// Package gcs provides a document.Bucket stored as Google Cloud Storage
// objects.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/ninepin/mailbox/store"
	"github.com/ninepin/mailbox/store/document"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const ext = ".json"

// Bucket stores each document as <prefix>/<key>.json.
type Bucket struct {
	client *storage.Client
	bucket string
	prefix string
	logger *slog.Logger
}

var _ document.Bucket = (*Bucket)(nil)

// New creates a GCS bucket adapter.
func New(ctx context.Context, opts ...Option) (*Bucket, error) {
	o := &options{
		prefix: "mailboxes",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.bucket == "" {
		return nil, fmt.Errorf("gcs: bucket is required")
	}

	clientOpts, err := clientOptions(o)
	if err != nil {
		return nil, fmt.Errorf("build client options: %w", err)
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &Bucket{
		client: client,
		bucket: o.bucket,
		prefix: strings.Trim(o.prefix, "/"),
		logger: o.logger,
	}, nil
}

func clientOptions(o *options) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if o.auth != nil {
		auth, err := o.auth()
		if err != nil {
			return nil, err
		}
		opts = append(opts, auth)
	}
	if o.endpoint != "" {
		opts = append(opts, option.WithEndpoint(o.endpoint))
	}
	return opts, nil
}

func (b *Bucket) objectName(key string) string {
	return path.Join(b.prefix, key+ext)
}

func (b *Bucket) keyOf(name string) (string, bool) {
	if b.prefix != "" {
		name = strings.TrimPrefix(name, b.prefix+"/")
	}
	if strings.Contains(name, "/") || !strings.HasSuffix(name, ext) {
		return "", false
	}
	return strings.TrimSuffix(name, ext), true
}

// Connect checks that the bucket exists and is accessible.
func (b *Bucket) Connect(ctx context.Context) error {
	if _, err := b.client.Bucket(b.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("gcs bucket %s: %w", b.bucket, err)
	}
	return nil
}

// Close closes the GCS client.
func (b *Bucket) Close(_ context.Context) error {
	return b.client.Close()
}

// Keys lists every document under the prefix.
func (b *Bucket) Keys(ctx context.Context) ([]string, error) {
	q := &storage.Query{}
	if b.prefix != "" {
		q.Prefix = b.prefix + "/"
	}

	var keys []string
	it := b.client.Bucket(b.bucket).Objects(ctx, q)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		if key, ok := b.keyOf(attrs.Name); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Get downloads the document stored under key.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := b.client.Bucket(b.bucket).Object(b.objectName(key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("create gcs reader: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Put uploads the document under key.
func (b *Bucket) Put(ctx context.Context, key string, data []byte) error {
	name := b.objectName(key)
	w := b.client.Bucket(b.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gcs writer: %w", err)
	}

	b.logger.Debug("uploaded mailbox document to gcs", "bucket", b.bucket, "key", name)
	return nil
}
