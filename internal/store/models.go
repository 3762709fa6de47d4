package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chatbox/internal/domain"

	"github.com/mattn/go-sqlite3"
)

// ListModels returns all models in insertion order.
func (s *Store) ListModels(ctx context.Context) ([]domain.Model, error) {
	const query = `
		SELECT id, name, created_at
		FROM models
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer rows.Close()

	models := make([]domain.Model, 0)
	for rows.Next() {
		var m domain.Model
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning model: %w", err)
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

func (s *Store) CreateModel(ctx context.Context, name string) (*domain.Model, error) {
	const query = `
		INSERT INTO models (name, created_at)
		VALUES (?, ?)
		RETURNING id, name, created_at`

	var m domain.Model
	err := s.db.QueryRowContext(ctx, query, name, time.Now().UTC()).
		Scan(&m.ID, &m.Name, &m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Validationf("model %q already exists", name)
		}
		return nil, fmt.Errorf("inserting model: %w", err)
	}
	return &m, nil
}

func (s *Store) RenameModel(ctx context.Context, id int64, name string) (*domain.Model, error) {
	const query = `
		UPDATE models
		SET name = ?
		WHERE id = ?
		RETURNING id, name, created_at`

	var m domain.Model
	err := s.db.QueryRowContext(ctx, query, name, id).
		Scan(&m.ID, &m.Name, &m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Validationf("model %q already exists", name)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("renaming model: %w", err)
	}
	return &m, nil
}

func (s *Store) DeleteModel(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting model: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting model: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
