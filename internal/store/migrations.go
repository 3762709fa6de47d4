package store

import (
	"database/sql"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
)

// defaultModels are inserted on first run so the UI has something to
// send with before the user manages their own list.
var defaultModels = []string{
	"gemini-3-flash-preview",
	"gemini-3-pro-preview",
	"deep-research-pro-preview-12-2025",
}

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "001_initial",
			Up: []string{
				`CREATE TABLE models (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					created_at TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE chats (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					title TEXT NOT NULL,
					interaction_id TEXT NOT NULL DEFAULT '',
					last_model TEXT,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE messages (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					chat_id INTEGER NOT NULL,
					role TEXT NOT NULL,
					content TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL,
					FOREIGN KEY(chat_id) REFERENCES chats(id)
				)`,
				`CREATE INDEX idx_messages_chat_id ON messages(chat_id)`,
			},
			Down: []string{
				`DROP TABLE messages`,
				`DROP TABLE chats`,
				`DROP TABLE models`,
			},
		},
		{
			Id: "002_chat_archive",
			Up: []string{
				`ALTER TABLE chats ADD COLUMN archived BOOLEAN NOT NULL DEFAULT 0`,
				`CREATE INDEX idx_chats_archived ON chats(archived)`,
			},
			Down: []string{
				`DROP INDEX idx_chats_archived`,
			},
		},
	},
}

func seedModels(db *sql.DB) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM models`).Scan(&count); err != nil {
		return fmt.Errorf("counting models: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, name := range defaultModels {
		if _, err := db.Exec(
			`INSERT INTO models (name, created_at) VALUES (?, CURRENT_TIMESTAMP)`, name,
		); err != nil {
			return fmt.Errorf("inserting default model %q: %w", name, err)
		}
	}
	return nil
}
