package analytics

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/ira-chat/ira/internal/model"
)

// Event is one chat outcome recorded by the router front door.
type Event struct {
	ID            string
	TsNs          int64
	CorrelationID string
	UserID        string
	Tier          model.Tier
	Pool          string
	Action        string
	Reason        string
	RateLimited   bool
	Silent        bool
	Blocked       bool
	DurationNs    int64
}

// Repo persists chat events to a single SQLite database.
type Repo struct {
	db   *sql.DB
	path string
}

// OpenRepo opens (or creates) the events database at path and ensures the
// schema exists.
func OpenRepo(path string) (*Repo, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(CreateDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("analytics: create schema: %w", err)
	}
	return &Repo{db: db, path: path}, nil
}

// Close closes the database.
func (r *Repo) Close() error {
	return r.db.Close()
}

// InsertBatch writes a batch of events in one transaction. Individual row
// failures are skipped; returns the number of rows inserted.
func (r *Repo) InsertBatch(events []Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("analytics: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO chat_events (
		id, ts_ns, correlation_id, user_id, tier, pool, action, reason,
		rate_limited, silent, blocked, duration_ns
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("analytics: prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range events {
		e := &events[i]
		_, err := stmt.Exec(
			e.ID, e.TsNs, e.CorrelationID, e.UserID, string(e.Tier), e.Pool,
			e.Action, e.Reason,
			boolToInt(e.RateLimited), boolToInt(e.Silent), boolToInt(e.Blocked),
			e.DurationNs,
		)
		if err != nil {
			log.Printf("[analytics] skip event id=%q insert failed: %v", e.ID, err)
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("analytics: commit: %w", err)
	}
	return inserted, nil
}

// Prune deletes events older than the cutoff timestamp. Returns rows removed.
func (r *Repo) Prune(cutoffNs int64) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM chat_events WHERE ts_ns < ?`, cutoffNs)
	if err != nil {
		return 0, fmt.Errorf("analytics: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CountSince returns the number of events with ts_ns >= since. Used by tests
// and ad-hoc diagnostics.
func (r *Repo) CountSince(sinceNs int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM chat_events WHERE ts_ns >= ?`, sinceNs).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("analytics: count: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
