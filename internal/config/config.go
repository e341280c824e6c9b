// Package config loads mailboxd configuration from flags, environment
// variables and an optional config file.
//
// Precedence, highest first: command-line flags, MAILBOX_* environment
// variables, the config file, built-in defaults. Keys are dotted
// (sql.driver, log.level); the environment form replaces dots with
// underscores, so sql.max_open_conns is MAILBOX_SQL_MAX_OPEN_CONNS.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/ninepin/mailbox/internal/logging"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "mailbox"

// Backend names accepted by the backend key.
const (
	BackendSQL    = "sql"
	BackendDir    = "dir"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

var backends = []string{BackendSQL, BackendDir, BackendBolt, BackendRedis, BackendS3, BackendGCS, BackendMongo, BackendMemory}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// SQLConfig selects the relational backend. DSN wins over the discrete
// connection fields when both are set.
type SQLConfig struct {
	Driver          string
	DSN             string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	TablePrefix     string
	Timeout         time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig addresses a Redis server.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// S3Config configures the S3 bucket.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	PathStyle    bool
	AccessKey    string
	SecretKey    string
	SessionToken string
	RoleARN      string
	ExternalID   string
}

// GCSConfig configures the GCS bucket.
type GCSConfig struct {
	Bucket          string
	Prefix          string
	Endpoint        string
	CredentialsFile string
	APIKey          string
}

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
	BatchSize  int
}

// MailboxConfig tunes the mailbox service.
type MailboxConfig struct {
	AutosaveInterval time.Duration
	ShutdownTimeout  time.Duration
	MaxConcurrentOps int
	SaveConcurrency  int
	ConnectAttempts  int
}

// Config is the full daemon configuration.
type Config struct {
	Backend   string
	SQL       SQLConfig
	DirPath   string
	BoltPath  string
	Redis     RedisConfig
	S3        S3Config
	GCS       GCSConfig
	Mongo     MongoConfig
	Mailbox   MailboxConfig
	EventsURL string // Redis address for the event transport; empty keeps events in-process
	Telemetry bool
	Log       logging.Config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendSQL)

	v.SetDefault("sql.driver", "sqlite")
	v.SetDefault("sql.dsn", "")
	v.SetDefault("sql.host", "localhost")
	v.SetDefault("sql.port", 0)
	v.SetDefault("sql.user", "")
	v.SetDefault("sql.password", "")
	v.SetDefault("sql.database", "mailbox.db")
	v.SetDefault("sql.table_prefix", "")
	v.SetDefault("sql.timeout", "10s")
	v.SetDefault("sql.max_open_conns", 10)
	v.SetDefault("sql.max_idle_conns", 2)
	v.SetDefault("sql.conn_max_lifetime", "30m")
	v.SetDefault("sql.conn_max_idle_time", "10m")

	v.SetDefault("dir.path", "mailboxes")
	v.SetDefault("bolt.path", "mailbox.bolt")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "mailbox:")

	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "mailboxes")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.path_style", false)
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.session_token", "")
	v.SetDefault("s3.role_arn", "")
	v.SetDefault("s3.external_id", "")

	v.SetDefault("gcs.bucket", "")
	v.SetDefault("gcs.prefix", "mailboxes")
	v.SetDefault("gcs.endpoint", "")
	v.SetDefault("gcs.credentials_file", "")
	v.SetDefault("gcs.api_key", "")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "mailbox")
	v.SetDefault("mongo.collection", "mailboxes")
	v.SetDefault("mongo.timeout", "10s")
	v.SetDefault("mongo.batch_size", 500)

	v.SetDefault("mailbox.autosave_interval", "5m")
	v.SetDefault("mailbox.shutdown_timeout", "30s")
	v.SetDefault("mailbox.max_concurrent_ops", 64)
	v.SetDefault("mailbox.save_concurrency", 8)
	v.SetDefault("mailbox.connect_attempts", 5)

	v.SetDefault("events.redis_addr", "")
	v.SetDefault("telemetry.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
}

// RegisterFlags adds the flags mailboxd exposes on the command line. Flag
// names use dashes; Load maps them onto the dotted keys.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (yaml, toml or json)")
	fs.String("backend", BackendSQL, "storage backend: "+strings.Join(backends, ", "))
	fs.String("sql-driver", "sqlite", "database/sql driver: mysql, postgres or sqlite")
	fs.String("sql-dsn", "", "database DSN; overrides the discrete connection settings")
	fs.String("sql-table-prefix", "", "prefix for the mails table")
	fs.String("dir", "mailboxes", "directory for the dir backend")
	fs.String("bolt", "mailbox.bolt", "database file for the bolt backend")
	fs.String("redis-addr", "localhost:6379", "Redis address for the redis backend")
	fs.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	fs.Duration("autosave", 5*time.Minute, "autosave interval; 0 disables")
	fs.String("events-redis", "", "Redis address for cross-process mailbox events")
	fs.Bool("telemetry", false, "enable OpenTelemetry tracing and metrics")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "json", "log format: json or text")
	fs.String("log-file", "", "rotated log file in addition to stdout")
}

var flagKeys = map[string]string{
	"backend":          "backend",
	"sql-driver":       "sql.driver",
	"sql-dsn":          "sql.dsn",
	"sql-table-prefix": "sql.table_prefix",
	"dir":              "dir.path",
	"bolt":             "bolt.path",
	"redis-addr":       "redis.addr",
	"mongo-uri":        "mongo.uri",
	"autosave":         "mailbox.autosave_interval",
	"events-redis":     "events.redis_addr",
	"telemetry":        "telemetry.enabled",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"log-file":         "log.file",
}

// Load resolves the configuration. fs may be nil, in which case only the
// environment and defaults apply.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
	}
	if path := v.GetString("config"); path != "" && v.ConfigFileUsed() == "" {
		v.SetConfigFile(path)
	}
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	return build(v)
}

// LoadFile resolves the configuration from path and the defaults only. The
// environment is ignored, so a second backend can be described next to the
// one the environment selects.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Backend: strings.ToLower(v.GetString("backend")),
		SQL: SQLConfig{
			Driver:          strings.ToLower(v.GetString("sql.driver")),
			DSN:             v.GetString("sql.dsn"),
			Host:            v.GetString("sql.host"),
			Port:            v.GetInt("sql.port"),
			User:            v.GetString("sql.user"),
			Password:        v.GetString("sql.password"),
			Database:        v.GetString("sql.database"),
			TablePrefix:     v.GetString("sql.table_prefix"),
			Timeout:         v.GetDuration("sql.timeout"),
			MaxOpenConns:    v.GetInt("sql.max_open_conns"),
			MaxIdleConns:    v.GetInt("sql.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("sql.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("sql.conn_max_idle_time"),
		},
		DirPath:  v.GetString("dir.path"),
		BoltPath: v.GetString("bolt.path"),
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
		},
		S3: S3Config{
			Bucket:       v.GetString("s3.bucket"),
			Prefix:       v.GetString("s3.prefix"),
			Region:       v.GetString("s3.region"),
			Endpoint:     v.GetString("s3.endpoint"),
			PathStyle:    v.GetBool("s3.path_style"),
			AccessKey:    v.GetString("s3.access_key"),
			SecretKey:    v.GetString("s3.secret_key"),
			SessionToken: v.GetString("s3.session_token"),
			RoleARN:      v.GetString("s3.role_arn"),
			ExternalID:   v.GetString("s3.external_id"),
		},
		GCS: GCSConfig{
			Bucket:          v.GetString("gcs.bucket"),
			Prefix:          v.GetString("gcs.prefix"),
			Endpoint:        v.GetString("gcs.endpoint"),
			CredentialsFile: v.GetString("gcs.credentials_file"),
			APIKey:          v.GetString("gcs.api_key"),
		},
		Mongo: MongoConfig{
			URI:        v.GetString("mongo.uri"),
			Database:   v.GetString("mongo.database"),
			Collection: v.GetString("mongo.collection"),
			Timeout:    v.GetDuration("mongo.timeout"),
			BatchSize:  v.GetInt("mongo.batch_size"),
		},
		Mailbox: MailboxConfig{
			AutosaveInterval: v.GetDuration("mailbox.autosave_interval"),
			ShutdownTimeout:  v.GetDuration("mailbox.shutdown_timeout"),
			MaxConcurrentOps: v.GetInt("mailbox.max_concurrent_ops"),
			SaveConcurrency:  v.GetInt("mailbox.save_concurrency"),
			ConnectAttempts:  v.GetInt("mailbox.connect_attempts"),
		},
		EventsURL: v.GetString("events.redis_addr"),
		Telemetry: v.GetBool("telemetry.enabled"),
		Log: logging.Config{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSize:    v.GetInt("log.max_size"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAge:     v.GetInt("log.max_age"),
			Compress:   v.GetBool("log.compress"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the selected backend needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQL:
		switch c.SQL.Driver {
		case "mysql", "postgres", "sqlite":
		default:
			return fmt.Errorf("%w: unsupported sql.driver %q", ErrInvalid, c.SQL.Driver)
		}
		if c.SQL.DSN == "" && c.SQL.Database == "" {
			return fmt.Errorf("%w: sql.database or sql.dsn is required", ErrInvalid)
		}
	case BackendDir:
		if c.DirPath == "" {
			return fmt.Errorf("%w: dir.path is required", ErrInvalid)
		}
	case BackendBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("%w: bolt.path is required", ErrInvalid)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required", ErrInvalid)
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("%w: s3.bucket is required", ErrInvalid)
		}
	case BackendGCS:
		if c.GCS.Bucket == "" {
			return fmt.Errorf("%w: gcs.bucket is required", ErrInvalid)
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("%w: mongo.uri is required", ErrInvalid)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown backend %q (want one of %s)", ErrInvalid, c.Backend, strings.Join(backends, ", "))
	}
	if c.Mailbox.AutosaveInterval < 0 {
		return fmt.Errorf("%w: mailbox.autosave_interval must not be negative", ErrInvalid)
	}
	return nil
}

// DataSourceName returns the DSN for the relational backend, assembling one
// from the discrete fields when sql.dsn is unset.
func (c SQLConfig) DataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(portOr(c.Port, 3306)))
		mc.DBName = c.Database
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN()
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			Host:     net.JoinHostPort(c.Host, strconv.Itoa(portOr(c.Port, 5432))),
			Path:     "/" + c.Database,
			RawQuery: "sslmode=disable",
		}
		switch {
		case c.User != "" && c.Password != "":
			u.User = url.UserPassword(c.User, c.Password)
		case c.User != "":
			u.User = url.User(c.User)
		}
		return u.String()
	default:
		return c.Database
	}
}

func portOr(port, def int) int {
	if port > 0 {
		return port
	}
	return def
}
