package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ira-chat/ira/internal/model"
)

// ActiveSessionForDay returns the user's active session for the given UTC
// day. The second return is false when no active session exists.
func (s *Store) ActiveSessionForDay(userID, day string) (model.Session, bool, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, day, tier, status, started_at_ns, last_activity_at_ns
		FROM sessions
		WHERE user_id = ? AND day = ? AND status = ?
	`, userID, day, model.SessionActive)
	return scanSession(row)
}

// GetSession looks a session up by ID.
func (s *Store) GetSession(id string) (model.Session, bool, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, day, tier, status, started_at_ns, last_activity_at_ns
		FROM sessions
		WHERE id = ?
	`, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (model.Session, bool, error) {
	var sess model.Session
	var tier string
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Day, &tier, &sess.Status,
		&sess.StartedAt, &sess.LastActivityAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, false, nil
	}
	if err != nil {
		return model.Session{}, false, fmt.Errorf("scan session: %w", err)
	}
	sess.Tier = model.Tier(tier)
	return sess, true, nil
}

// StartSession inserts a new active session. A (user, day) pair can have at
// most one session; the unique index rejects duplicates.
func (s *Store) StartSession(sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO sessions (id, user_id, day, tier, status, started_at_ns, last_activity_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.UserID, sess.Day, string(sess.Tier), sess.Status,
		sess.StartedAt, sess.LastActivityAt)
	if err != nil {
		return fmt.Errorf("start session %s: %w", sess.ID, err)
	}
	return nil
}

// TouchSession bumps a session's last-activity timestamp.
func (s *Store) TouchSession(id string, atNs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE sessions SET last_activity_at_ns = ? WHERE id = ?`, atNs, id)
	if err != nil {
		return fmt.Errorf("touch session %s: %w", id, err)
	}
	return nil
}

// CloseSessionsBefore marks active sessions from days strictly before day as
// closed. Returns the number of sessions closed.
func (s *Store) CloseSessionsBefore(day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE sessions SET status = ? WHERE status = ? AND day < ?
	`, model.SessionClosed, model.SessionActive, day)
	if err != nil {
		return 0, fmt.Errorf("close stale sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
