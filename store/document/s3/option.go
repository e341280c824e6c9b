package s3

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// DefaultRoleSessionName names the STS session when WithAssumeRole is given
// none.
const DefaultRoleSessionName = "mailbox-document-store"

// credentialSource produces the provider for a region. A nil source keeps the
// SDK's default chain (env, shared config, IRSA, instance role).
type credentialSource func(ctx context.Context, region string) (aws.CredentialsProvider, error)

type options struct {
	bucket    string
	prefix    string
	region    string
	endpoint  string // MinIO, LocalStack
	pathStyle bool
	creds     credentialSource
	logger    *slog.Logger
}

// Option configures the S3 bucket.
type Option func(*options)

// WithBucket names the bucket. Required.
func WithBucket(bucket string) Option {
	return func(o *options) { o.bucket = bucket }
}

// WithPrefix sets the key prefix mailbox documents live under. Default
// "mailboxes".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithRegion sets the AWS region. Default "us-east-1".
func WithRegion(region string) Option {
	return func(o *options) {
		if region != "" {
			o.region = region
		}
	}
}

// WithEndpoint points the client at an S3-compatible service.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithPathStyle switches to path-style addressing, which most self-hosted
// S3 services need.
func WithPathStyle(enabled bool) Option {
	return func(o *options) { o.pathStyle = enabled }
}

// WithStaticCredentials uses a fixed key pair. Ignored when either key is
// empty.
func WithStaticCredentials(accessKey, secretKey, sessionToken string) Option {
	return func(o *options) {
		if accessKey == "" || secretKey == "" {
			return
		}
		o.creds = func(context.Context, string) (aws.CredentialsProvider, error) {
			return credentials.NewStaticCredentialsProvider(accessKey, secretKey, sessionToken), nil
		}
	}
}

// WithAssumeRole obtains credentials by assuming roleARN through STS, using
// the default chain to call STS. An empty sessionName uses
// DefaultRoleSessionName.
func WithAssumeRole(roleARN, sessionName, externalID string) Option {
	if sessionName == "" {
		sessionName = DefaultRoleSessionName
	}
	return func(o *options) {
		if roleARN == "" {
			return
		}
		o.creds = func(ctx context.Context, region string) (aws.CredentialsProvider, error) {
			base, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
			if err != nil {
				return nil, err
			}
			provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(base), roleARN, func(ro *stscreds.AssumeRoleOptions) {
				ro.RoleSessionName = sessionName
				if externalID != "" {
					ro.ExternalID = aws.String(externalID)
				}
			})
			return aws.NewCredentialsCache(provider), nil
		}
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
