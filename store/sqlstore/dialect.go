package sqlstore

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Dialect selects the SQL flavour used for DDL and placeholders.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DialectOf maps a database/sql driver name to a Dialect.
func DialectOf(driverName string) (Dialect, error) {
	switch driverName {
	case "mysql", "nrmysql":
		return MySQL, nil
	case "postgres", "pgx", "cloudsqlpostgres":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("sqlstore: unsupported driver %q", driverName)
	}
}

func (d Dialect) bindType() int {
	if d == Postgres {
		return sqlx.DOLLAR
	}
	return sqlx.QUESTION
}

func (d Dialect) quote(ident string) string {
	switch d {
	case MySQL:
		return "`" + ident + "`"
	case Postgres:
		return pq.QuoteIdentifier(ident)
	default:
		return `"` + ident + `"`
	}
}

// schema returns the statements that create the mails table and its index.
func (d Dialect) schema(table, index string) []string {
	qt, qi := d.quote(table), d.quote(index)
	switch d {
	case MySQL:
		return []string{fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				user_identity VARCHAR(36) NOT NULL,
				item_kind VARCHAR(255) NOT NULL DEFAULT '',
				content_type VARCHAR(255) NOT NULL DEFAULT '',
				payload LONGBLOB NOT NULL,
				timestamp BIGINT NOT NULL,
				is_read BOOLEAN NOT NULL DEFAULT FALSE,
				INDEX %s (user_identity)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, qt, qi)}
	case Postgres:
		return []string{
			fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				user_identity VARCHAR(36) NOT NULL,
				item_kind VARCHAR(255) NOT NULL DEFAULT '',
				content_type VARCHAR(255) NOT NULL DEFAULT '',
				payload BYTEA NOT NULL,
				timestamp BIGINT NOT NULL,
				is_read BOOLEAN NOT NULL DEFAULT FALSE
			)`, qt),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s(user_identity)`, qi, qt),
		}
	default:
		return []string{
			fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_identity TEXT NOT NULL,
				item_kind TEXT NOT NULL DEFAULT '',
				content_type TEXT NOT NULL DEFAULT '',
				payload BLOB NOT NULL,
				timestamp INTEGER NOT NULL,
				is_read BOOLEAN NOT NULL DEFAULT FALSE
			)`, qt),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s(user_identity)`, qi, qt),
		}
	}
}
