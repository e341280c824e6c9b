// Package sqlstore provides a relational implementation of store.Store for
// MySQL, PostgreSQL and SQLite.
//
// Every mail is one row of <prefix>mails keyed by user identity. Saving a
// mailbox deletes the user's rows and inserts the current list inside one
// transaction, so a failed save leaves the previous rows untouched.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ninepin/mailbox/store"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

var validPrefix = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// PoolConfig sizes the connection pool opened by Open.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns the pool sizing used when nothing is configured.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// Open opens a pooled database handle. The pool is not verified until
// Store.Connect pings it.
func Open(driverName, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driverName, err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}
	return db, nil
}

// Store implements store.Store on a relational database.
type Store struct {
	db        *sqlx.DB
	opts      *options
	dialect   Dialect
	table     string
	connected int32
	logger    *slog.Logger

	qLoad    string
	qLoadAll string
	qDelete  string
	qInsert  string
}

// New creates a relational store on db. The store owns db and closes it in
// Close. Call Connect() to verify the pool and create the schema.
func New(db *sqlx.DB, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		db:     db,
		opts:   o,
		table:  o.tablePrefix + "mails",
		logger: o.logger,
	}
}

// NewFromDB creates a relational store from a standard sql.DB connection.
func NewFromDB(db *sql.DB, driverName string, opts ...Option) *Store {
	return New(sqlx.NewDb(db, driverName), opts...)
}

// Table returns the name of the mails table.
func (s *Store) Table() string {
	return s.table
}

// Connect pings the database and creates the mails table and index.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}

	if err := s.connect(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return err
	}

	s.logger.Info("connected to relational mailbox store", "dialect", s.dialect, "table", s.table)
	return nil
}

func (s *Store) connect(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("sqlstore: db is required")
	}
	if !validPrefix.MatchString(s.opts.tablePrefix) {
		return fmt.Errorf("sqlstore: invalid table prefix %q", s.opts.tablePrefix)
	}

	s.dialect = s.opts.dialect
	if s.dialect == "" {
		d, err := DialectOf(s.db.DriverName())
		if err != nil {
			return err
		}
		s.dialect = d
	}
	s.prepareQueries()

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlstore ping: %w", err)
	}
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) prepareQueries() {
	t := s.dialect.quote(s.table)
	rebind := func(q string) string { return sqlx.Rebind(s.dialect.bindType(), q) }

	s.qLoad = rebind(fmt.Sprintf(`
		SELECT item_kind, content_type, payload, timestamp, is_read
		FROM %s
		WHERE user_identity = ?
		ORDER BY timestamp DESC, id ASC`, t))
	s.qLoadAll = fmt.Sprintf(`
		SELECT user_identity, item_kind, content_type, payload, timestamp, is_read
		FROM %s
		ORDER BY user_identity, timestamp DESC, id ASC`, t)
	s.qDelete = rebind(fmt.Sprintf(`DELETE FROM %s WHERE user_identity = ?`, t))
	s.qInsert = rebind(fmt.Sprintf(`
		INSERT INTO %s (user_identity, item_kind, content_type, payload, timestamp, is_read)
		VALUES (?, ?, ?, ?, ?, ?)`, t))
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema(s.table, "idx_"+s.table+"_user") {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close marks the store as disconnected and closes the pool.
func (s *Store) Close(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 1, 0) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlstore close: %w", err)
	}
	return nil
}

// checkConnected returns error if not connected.
func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

type mailRow struct {
	User        string `db:"user_identity"`
	Kind        string `db:"item_kind"`
	ContentType string `db:"content_type"`
	Payload     []byte `db:"payload"`
	Timestamp   int64  `db:"timestamp"`
	Read        bool   `db:"is_read"`
}

func (r mailRow) mail() store.Mail {
	return store.Mail{
		Payload: store.Payload{
			Kind:        r.Kind,
			ContentType: r.ContentType,
			Data:        r.Payload,
		},
		Timestamp: r.Timestamp,
		Read:      r.Read,
	}
}

// Load returns the user's mails newest first. Unreadable rows are skipped.
func (s *Store) Load(ctx context.Context, user uuid.UUID) ([]store.Mail, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	rows, err := s.db.QueryxContext(ctx, s.qLoad, user.String())
	if err != nil {
		return nil, fmt.Errorf("load mails: %w", err)
	}
	defer rows.Close()

	mails := make([]store.Mail, 0)
	for rows.Next() {
		var r mailRow
		if err := rows.StructScan(&r); err != nil {
			s.logger.Warn("skipping unreadable mail row", "user", user, "error", err)
			continue
		}
		mails = append(mails, r.mail())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mail rows: %w", err)
	}
	return mails, nil
}

// LoadAll reads every row in one pass. Rows that cannot be scanned or whose
// user identity is not a valid UUID are skipped with a warning.
func (s *Store) LoadAll(ctx context.Context) (map[uuid.UUID][]store.Mail, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	rows, err := s.db.QueryxContext(ctx, s.qLoadAll)
	if err != nil {
		return nil, fmt.Errorf("load all mails: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]store.Mail)
	skipped := make(map[string]bool)
	for rows.Next() {
		var r mailRow
		if err := rows.StructScan(&r); err != nil {
			s.logger.Warn("skipping unreadable mail row", "user", r.User, "error", err)
			continue
		}
		user, err := uuid.Parse(r.User)
		if err != nil {
			if !skipped[r.User] {
				skipped[r.User] = true
				s.logger.Warn("skipping mails with invalid user identity", "user", r.User, "error", err)
			}
			continue
		}
		out[user] = append(out[user], r.mail())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mail rows: %w", err)
	}
	return out, nil
}

// Save replaces the user's rows with mails inside one transaction.
func (s *Store) Save(ctx context.Context, user uuid.UUID, mails []store.Mail) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := store.ValidUser(user); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", store.ErrTransactionFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	id := user.String()
	if _, err := tx.ExecContext(ctx, s.qDelete, id); err != nil {
		return fmt.Errorf("%w: delete: %w", store.ErrTransactionFailed, err)
	}

	if len(mails) > 0 {
		stmt, err := tx.PreparexContext(ctx, s.qInsert)
		if err != nil {
			return fmt.Errorf("%w: prepare insert: %w", store.ErrTransactionFailed, err)
		}
		defer stmt.Close()

		for _, m := range mails {
			data := m.Payload.Data
			if data == nil {
				data = []byte{}
			}
			if _, err := stmt.ExecContext(ctx, id, m.Payload.Kind, m.Payload.ContentType, data, m.Timestamp, m.Read); err != nil {
				return fmt.Errorf("%w: insert: %w", store.ErrTransactionFailed, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", store.ErrTransactionFailed, err)
	}

	s.logger.Debug("saved mailbox", "user", id, "count", len(mails))
	return nil
}

// SaveAll saves each mailbox in its own transaction.
func (s *Store) SaveAll(ctx context.Context, all map[uuid.UUID][]store.Mail) error {
	return store.SaveEach(ctx, s, all)
}
