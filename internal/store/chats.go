package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chatbox/internal/domain"
)

const chatColumns = `id, title, interaction_id, COALESCE(last_model, ''), archived, created_at, updated_at`

func scanChat(row interface{ Scan(...any) error }) (*domain.Chat, error) {
	var c domain.Chat
	err := row.Scan(&c.ID, &c.Title, &c.InteractionID, &c.LastModel, &c.Archived, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chat: %w", err)
	}
	return &c, nil
}

// ListChats returns chats with the given archived flag, most recently
// updated first.
func (s *Store) ListChats(ctx context.Context, archived bool) ([]domain.Chat, error) {
	const query = `
		SELECT ` + chatColumns + `
		FROM chats
		WHERE archived = ?
		ORDER BY updated_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, archived)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	chats := make([]domain.Chat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *c)
	}
	return chats, rows.Err()
}

func (s *Store) CreateChat(ctx context.Context, title, modelName string) (*domain.Chat, error) {
	const query = `
		INSERT INTO chats (title, interaction_id, last_model, created_at, updated_at)
		VALUES (?, '', ?, ?, ?)
		RETURNING ` + chatColumns

	now := time.Now().UTC()
	return scanChat(s.db.QueryRowContext(ctx, query, title, modelName, now, now))
}

func (s *Store) GetChat(ctx context.Context, id int64) (*domain.Chat, error) {
	const query = `
		SELECT ` + chatColumns + `
		FROM chats
		WHERE id = ?`

	return scanChat(s.db.QueryRowContext(ctx, query, id))
}

// RenameChat sets a new title and bumps updated_at.
func (s *Store) RenameChat(ctx context.Context, id int64, title string) (*domain.Chat, error) {
	const query = `
		UPDATE chats
		SET title = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + chatColumns

	return scanChat(s.db.QueryRowContext(ctx, query, title, time.Now().UTC(), id))
}

// SetArchived toggles the archived flag. Idempotent.
func (s *Store) SetArchived(ctx context.Context, id int64, archived bool) (*domain.Chat, error) {
	const query = `
		UPDATE chats
		SET archived = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + chatColumns

	return scanChat(s.db.QueryRowContext(ctx, query, archived, time.Now().UTC(), id))
}

// DeleteChat removes the chat and all its messages in one transaction.
func (s *Store) DeleteChat(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, id); err != nil {
		return fmt.Errorf("deleting chat messages: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit()
}

// UpdateAfterTurn records the outcome of a successful model turn: the
// superseding continuation handle, the model used, the possibly derived
// title, and a fresh updated_at. A single UPDATE so the handle swap is
// atomic.
func (s *Store) UpdateAfterTurn(ctx context.Context, id int64, interactionID, lastModel, title string) (*domain.Chat, error) {
	const query = `
		UPDATE chats
		SET interaction_id = ?, last_model = ?, title = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + chatColumns

	return scanChat(s.db.QueryRowContext(ctx, query, interactionID, lastModel, title, time.Now().UTC(), id))
}
