package store

import (
	"context"
	"fmt"
	"time"

	"chatbox/internal/domain"
)

// AppendMessage persists one message. The chat must exist; the foreign
// key rejects orphans.
func (s *Store) AppendMessage(ctx context.Context, chatID int64, role domain.Role, content string) (*domain.Message, error) {
	const query = `
		INSERT INTO messages (chat_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id, chat_id, role, content, created_at`

	var m domain.Message
	err := s.db.QueryRowContext(ctx, query, chatID, role, content, time.Now().UTC()).
		Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	return &m, nil
}

// ListMessages returns the full message sequence of a chat in creation
// order. An unknown chat yields ErrNotFound rather than an empty list.
func (s *Store) ListMessages(ctx context.Context, chatID int64) ([]domain.Message, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM chats WHERE id = ?)`, chatID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking chat: %w", err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	const query = `
		SELECT id, chat_id, role, content, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
