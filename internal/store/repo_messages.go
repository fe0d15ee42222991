package store

import (
	"fmt"

	"github.com/ira-chat/ira/internal/model"
)

// InsertMessage appends one message to a session.
func (s *Store) InsertMessage(m model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO messages (id, session_id, user_id, tier, role, content, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.SessionID, m.UserID, string(m.Tier), m.Role, m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message %s: %w", m.ID, err)
	}
	return nil
}

// RecentMessages returns the session's last n messages in chronological
// order.
func (s *Store) RecentMessages(sessionID string, n int) ([]model.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, user_id, tier, role, content, created_at_ns
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at_ns DESC
		LIMIT ?
	`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	var result []model.Message
	for rows.Next() {
		var m model.Message
		var tier string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &tier, &m.Role,
			&m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Tier = model.Tier(tier)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; flip to chronological.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// CountMessages returns the number of messages in a session.
func (s *Store) CountMessages(sessionID string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
