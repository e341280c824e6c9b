package sqlstore

// Drivers for every supported dialect. lib/pq registers "postgres" through
// the dialect import.
import (
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)
