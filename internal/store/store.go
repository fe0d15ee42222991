// Package store implements the document store: SQLite repos for users,
// sessions, and messages, with an in-process user cache in front of the
// hot-path user lookup.
package store

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	"github.com/maypok86/otter"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/ira-chat/ira/internal/model"
)

const userCacheSize = 10_000

// Store wraps the documents database. All writes are serialized by an
// internal mutex; SQLite runs in WAL mode with a single connection.
type Store struct {
	db *sql.DB
	mu sync.Mutex

	users otter.Cache[string, model.User]
}

// Open opens (or creates) the documents database at path, applies pending
// migrations, and builds the user cache.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := migrateDB(db); err != nil {
		db.Close()
		return nil, err
	}

	cache, err := otter.MustBuilder[string, model.User](userCacheSize).
		Cost(func(_ string, _ model.User) uint32 { return 1 }).
		Build()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: build user cache: %w", err)
	}

	log.Printf("[store] open %s", path)
	return &Store{db: db, users: cache}, nil
}

// Close releases the database connection and the user cache.
func (s *Store) Close() error {
	s.users.Close()
	return s.db.Close()
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: exec %q on %s: %w", p, path, err)
		}
	}
	return db, nil
}
