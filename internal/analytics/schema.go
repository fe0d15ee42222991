// Package analytics implements the fire-and-forget analytics sink. Events
// are enqueued without blocking the request path and flushed in batches to a
// SQLite database by a background goroutine. Sink failures are logged and
// swallowed; they never affect request outcomes.
package analytics

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// CreateDDL defines the analytics events schema.
const CreateDDL = `
CREATE TABLE IF NOT EXISTS chat_events (
	id             TEXT PRIMARY KEY,
	ts_ns          INTEGER NOT NULL,
	correlation_id TEXT NOT NULL DEFAULT '',
	user_id        TEXT NOT NULL DEFAULT '',
	tier           TEXT NOT NULL DEFAULT '',
	pool           TEXT NOT NULL DEFAULT '',
	action         TEXT NOT NULL DEFAULT '',
	reason         TEXT NOT NULL DEFAULT '',
	rate_limited   INTEGER NOT NULL DEFAULT 0,
	silent         INTEGER NOT NULL DEFAULT 0,
	blocked        INTEGER NOT NULL DEFAULT 0,
	duration_ns    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_chat_events_ts_ns   ON chat_events(ts_ns);
CREATE INDEX IF NOT EXISTS idx_chat_events_user_id ON chat_events(user_id);
CREATE INDEX IF NOT EXISTS idx_chat_events_tier    ON chat_events(tier);
`

// openDB opens (or creates) the events database with the standard pragmas:
// WAL journal mode, synchronous=NORMAL, busy_timeout=5000. Single writer.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("analytics: open db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("analytics: exec %q on %s: %w", p, path, err)
		}
	}
	return db, nil
}
