// Package backend builds the store.Store named by the daemon configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ninepin/mailbox/internal/config"
	"github.com/ninepin/mailbox/store"
	"github.com/ninepin/mailbox/store/document"
	"github.com/ninepin/mailbox/store/document/bolt"
	"github.com/ninepin/mailbox/store/document/dir"
	"github.com/ninepin/mailbox/store/document/gcs"
	redisbucket "github.com/ninepin/mailbox/store/document/redis"
	"github.com/ninepin/mailbox/store/document/s3"
	"github.com/ninepin/mailbox/store/memory"
	"github.com/ninepin/mailbox/store/mongo"
	otelstore "github.com/ninepin/mailbox/store/otel"
	"github.com/ninepin/mailbox/store/sqlstore"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// Open constructs the configured backend. The store is not connected; the
// caller owns Connect and Close.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", cfg.Backend)

	s, err := open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", cfg.Backend, err)
	}
	if !cfg.Telemetry {
		return s, nil
	}
	opts := []otelstore.Option{otelstore.WithBackendName(cfg.Backend)}
	if cfg.Backend == config.BackendSQL {
		opts = append(opts, otelstore.WithAttributes(attribute.String("db.system", cfg.SQL.Driver)))
	}
	wrapped, err := otelstore.New(s, opts...)
	if err != nil {
		return nil, fmt.Errorf("backend %s: telemetry: %w", cfg.Backend, err)
	}
	return wrapped, nil
}

func open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendSQL:
		return openSQL(cfg.SQL, logger)
	case config.BackendMongo:
		client, err := mongo.Dial(cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		return mongo.New(client,
			mongo.WithDatabase(cfg.Mongo.Database),
			mongo.WithCollection(cfg.Mongo.Collection),
			mongo.WithTimeout(cfg.Mongo.Timeout),
			mongo.WithBatchSize(cfg.Mongo.BatchSize),
			mongo.WithLogger(logger),
		), nil
	case config.BackendMemory:
		return memory.New(), nil
	}

	bucket, err := openBucket(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return document.New(bucket, document.WithLogger(logger)), nil
}

func openSQL(cfg config.SQLConfig, logger *slog.Logger) (store.Store, error) {
	pool := sqlstore.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
	if cfg.Driver == "sqlite" {
		// one writer avoids SQLITE_BUSY under concurrent saves
		pool.MaxOpenConns = 1
	}
	db, err := sqlstore.Open(cfg.Driver, cfg.DataSourceName(), pool)
	if err != nil {
		return nil, err
	}
	opts := []sqlstore.Option{
		sqlstore.WithTablePrefix(cfg.TablePrefix),
		sqlstore.WithLogger(logger),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, sqlstore.WithTimeout(cfg.Timeout))
	}
	return sqlstore.New(db, opts...), nil
}

func openBucket(ctx context.Context, cfg *config.Config, logger *slog.Logger) (document.Bucket, error) {
	switch cfg.Backend {
	case config.BackendDir:
		return dir.New(cfg.DirPath), nil
	case config.BackendBolt:
		return bolt.New(cfg.BoltPath), nil
	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisbucket.New(client, redisbucket.WithPrefix(cfg.Redis.Prefix), redisbucket.WithOwnedClient()), nil
	case config.BackendS3:
		return s3.New(ctx, s3Options(cfg.S3, logger)...)
	case config.BackendGCS:
		return gcs.New(ctx, gcsOptions(cfg.GCS, logger)...)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func s3Options(cfg config.S3Config, logger *slog.Logger) []s3.Option {
	opts := []s3.Option{
		s3.WithBucket(cfg.Bucket),
		s3.WithPrefix(cfg.Prefix),
		s3.WithLogger(logger),
	}
	if cfg.Region != "" {
		opts = append(opts, s3.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, s3.WithEndpoint(cfg.Endpoint), s3.WithPathStyle(cfg.PathStyle))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, s3.WithStaticCredentials(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken))
	}
	if cfg.RoleARN != "" {
		opts = append(opts, s3.WithAssumeRole(cfg.RoleARN, "mailboxd", cfg.ExternalID))
	}
	return opts
}

func gcsOptions(cfg config.GCSConfig, logger *slog.Logger) []gcs.Option {
	opts := []gcs.Option{
		gcs.WithBucket(cfg.Bucket),
		gcs.WithPrefix(cfg.Prefix),
		gcs.WithLogger(logger),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, gcs.WithEndpoint(cfg.Endpoint))
	}
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, gcs.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		opts = append(opts, gcs.WithAPIKey(cfg.APIKey))
	}
	return opts
}

// EventClient returns a Redis client for the event transport, or nil when
// events stay in-process.
func EventClient(cfg *config.Config) *goredis.Client {
	if cfg.EventsURL == "" {
		return nil
	}
	return goredis.NewClient(&goredis.Options{Addr: cfg.EventsURL})
}
