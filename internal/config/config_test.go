package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendSQL || cfg.SQL.Driver != "sqlite" {
		t.Errorf("backend = %s/%s, want sql/sqlite", cfg.Backend, cfg.SQL.Driver)
	}
	if cfg.Mailbox.AutosaveInterval != 5*time.Minute {
		t.Errorf("autosave = %v, want 5m", cfg.Mailbox.AutosaveInterval)
	}
	if cfg.SQL.MaxOpenConns != 10 || cfg.SQL.ConnMaxLifetime != 30*time.Minute {
		t.Errorf("unexpected pool defaults %+v", cfg.SQL)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" || cfg.Log.MaxBackups != 3 {
		t.Errorf("unexpected log defaults %+v", cfg.Log)
	}
}

func TestEnvironment(t *testing.T) {
	t.Setenv("MAILBOX_BACKEND", "redis")
	t.Setenv("MAILBOX_REDIS_ADDR", "cache:6380")
	t.Setenv("MAILBOX_REDIS_DB", "2")
	t.Setenv("MAILBOX_MAILBOX_AUTOSAVE_INTERVAL", "30s")
	t.Setenv("MAILBOX_LOG_LEVEL", "debug")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := RedisConfig{Addr: "cache:6380", DB: 2, Prefix: "mailbox:"}
	if diff := cmp.Diff(want, cfg.Redis); diff != "" {
		t.Errorf("redis config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Mailbox.AutosaveInterval != 30*time.Second {
		t.Errorf("autosave = %v, want 30s", cfg.Mailbox.AutosaveInterval)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("MAILBOX_BACKEND", "redis")
	fs := newFlags(t, "--backend=dir", "--dir", "/var/lib/mailbox", "--autosave=0s")

	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendDir || cfg.DirPath != "/var/lib/mailbox" {
		t.Errorf("got backend %s at %s", cfg.Backend, cfg.DirPath)
	}
	if cfg.Mailbox.AutosaveInterval != 0 {
		t.Errorf("autosave = %v, want disabled", cfg.Mailbox.AutosaveInterval)
	}
}

func TestUnsetFlagsKeepEnvironment(t *testing.T) {
	t.Setenv("MAILBOX_LOG_FORMAT", "text")
	cfg, err := Load(newFlags(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("log format = %q, want text", cfg.Log.Format)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailboxd.yaml")
	body := `backend: sql
sql:
  driver: mysql
  host: db.internal
  user: game
  password: secret
  database: mail
  table_prefix: srv1_
mailbox:
  save_concurrency: 4
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(newFlags(t, "--config", path))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SQL.Driver != "mysql" || cfg.SQL.TablePrefix != "srv1_" {
		t.Errorf("unexpected sql config %+v", cfg.SQL)
	}
	if cfg.Mailbox.SaveConcurrency != 4 {
		t.Errorf("save concurrency = %d, want 4", cfg.Mailbox.SaveConcurrency)
	}
	if got, want := cfg.SQL.DataSourceName(), "game:secret@tcp(db.internal:3306)/mail?charset=utf8mb4"; got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestMissingConfigFile(t *testing.T) {
	fs := newFlags(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(fs); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"MAILBOX_BACKEND": "cassandra"}},
		{"unknown driver", map[string]string{"MAILBOX_SQL_DRIVER": "oracle"}},
		{"s3 without bucket", map[string]string{"MAILBOX_BACKEND": "s3"}},
		{"gcs without bucket", map[string]string{"MAILBOX_BACKEND": "gcs"}},
		{"negative autosave", map[string]string{"MAILBOX_MAILBOX_AUTOSAVE_INTERVAL": "-1s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestDataSourceName(t *testing.T) {
	tests := []struct {
		name string
		cfg  SQLConfig
		want string
	}{
		{"explicit dsn wins", SQLConfig{Driver: "mysql", DSN: "u:p@tcp(h:1)/d", Database: "x"}, "u:p@tcp(h:1)/d"},
		{"mysql custom port", SQLConfig{Driver: "mysql", Host: "h", Port: 3307, User: "u", Database: "d"}, "u@tcp(h:3307)/d?charset=utf8mb4"},
		{"postgres", SQLConfig{Driver: "postgres", Host: "pg", User: "u", Password: "p", Database: "d"}, "postgres://u:p@pg:5432/d?sslmode=disable"},
		{"postgres no password", SQLConfig{Driver: "postgres", Host: "pg", User: "u", Database: "d"}, "postgres://u@pg:5432/d?sslmode=disable"},
		{"sqlite path", SQLConfig{Driver: "sqlite", Database: "/tmp/mail.db"}, "/tmp/mail.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DataSourceName(); got != tt.want {
				t.Errorf("DataSourceName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadFileIgnoresEnvironment(t *testing.T) {
	t.Setenv("MAILBOX_BACKEND", "redis")
	path := filepath.Join(t.TempDir(), "target.json")
	if err := os.WriteFile(path, []byte(`{"backend":"bolt","bolt":{"path":"/data/mail.bolt"}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Backend != BackendBolt || cfg.BoltPath != "/data/mail.bolt" {
		t.Errorf("got backend %s at %s, want bolt at /data/mail.bolt", cfg.Backend, cfg.BoltPath)
	}
}
