// Package s3 provides a document.Bucket stored as S3 objects.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ninepin/mailbox/store"
	"github.com/ninepin/mailbox/store/document"
)

const ext = ".json"

// Bucket stores each document as <prefix>/<key>.json.
type Bucket struct {
	client *s3.Client
	tm     *transfermanager.Client
	bucket string
	prefix string
	logger *slog.Logger
}

var _ document.Bucket = (*Bucket)(nil)

// New creates an S3 bucket adapter. The context is used for AWS credential
// loading and configuration.
func New(ctx context.Context, opts ...Option) (*Bucket, error) {
	o := &options{
		region: "us-east-1",
		prefix: "mailboxes",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}

	awsCfg, err := loadAWSConfig(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("build aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(opts *s3.Options) {
		if o.endpoint != "" {
			opts.BaseEndpoint = aws.String(o.endpoint)
			opts.UsePathStyle = o.pathStyle
		}
	})

	return &Bucket{
		client: client,
		tm:     transfermanager.New(client),
		bucket: o.bucket,
		prefix: strings.Trim(o.prefix, "/"),
		logger: o.logger,
	}, nil
}

// loadAWSConfig resolves the SDK configuration for o.
func loadAWSConfig(ctx context.Context, o *options) (aws.Config, error) {
	load := []func(*config.LoadOptions) error{config.WithRegion(o.region)}
	if o.creds != nil {
		provider, err := o.creds(ctx, o.region)
		if err != nil {
			return aws.Config{}, fmt.Errorf("resolve credentials: %w", err)
		}
		load = append(load, config.WithCredentialsProvider(provider))
	}
	return config.LoadDefaultConfig(ctx, load...)
}

func (b *Bucket) objectKey(key string) string {
	return path.Join(b.prefix, key+ext)
}

func (b *Bucket) keyOf(objectKey string) (string, bool) {
	name := strings.TrimPrefix(objectKey, b.prefix+"/")
	if b.prefix == "" {
		name = objectKey
	}
	if strings.Contains(name, "/") || !strings.HasSuffix(name, ext) {
		return "", false
	}
	return strings.TrimSuffix(name, ext), true
}

// Connect checks that the bucket exists and is accessible.
func (b *Bucket) Connect(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", b.bucket, err)
	}
	return nil
}

func (b *Bucket) Close(_ context.Context) error { return nil }

// Keys lists every document under the prefix.
func (b *Bucket) Keys(ctx context.Context) ([]string, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(b.bucket)}
	if b.prefix != "" {
		input.Prefix = aws.String(b.prefix + "/")
	}

	var keys []string
	pages := s3.NewListObjectsV2Paginator(b.client, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if key, ok := b.keyOf(aws.ToString(obj.Key)); ok {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

// Get downloads the document stored under key.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get object from s3: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Put uploads the document under key.
func (b *Bucket) Put(ctx context.Context, key string, data []byte) error {
	objectKey := b.objectKey(key)
	_, err := b.tm.UploadObject(ctx, &transfermanager.UploadObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload to s3: %w", err)
	}
	b.logger.Debug("uploaded mailbox document to s3", "bucket", b.bucket, "key", objectKey)
	return nil
}
