package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ira-chat/ira/internal/model"
)

// UpsertUser inserts or updates a user by ID and refreshes the cache entry.
func (s *Store) UpsertUser(u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO users (id, handle, tier, tone, created_at_ns)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			handle = excluded.handle,
			tier   = excluded.tier,
			tone   = excluded.tone
	`, u.ID, u.Handle, string(u.Tier), u.Tone, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	s.users.Set(u.ID, u)
	return nil
}

// GetUser looks a user up by ID, serving from the cache when possible.
// The second return is false when no such user exists.
func (s *Store) GetUser(id string) (model.User, bool, error) {
	if u, ok := s.users.Get(id); ok {
		return u, true, nil
	}

	row := s.db.QueryRow(`SELECT id, handle, tier, tone, created_at_ns FROM users WHERE id = ?`, id)
	var u model.User
	var tier string
	err := row.Scan(&u.ID, &u.Handle, &tier, &u.Tone, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, fmt.Errorf("scan user %s: %w", id, err)
	}
	u.Tier = model.Tier(tier)

	s.users.Set(u.ID, u)
	return u, true, nil
}

// CountUsers returns the number of stored users.
func (s *Store) CountUsers() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
