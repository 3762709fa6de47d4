package domain

import (
	"strings"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// DefaultTitle is the placeholder title given to a chat before its first
// message. While a chat still carries it, the title is auto-derived from
// the first user message.
const DefaultTitle = "New Chat"

const titleDeriveLen = 60

// Model is a user-managed label selecting which provider model new turns
// use. It is referenced by name from chats, not by id, so deleting or
// renaming a model never alters historical chats.
type Model struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Chat is a persisted conversation thread. InteractionID is the opaque
// continuation handle returned by the provider; it is empty until the
// first successful turn and overwritten on each successful turn after
// that. At most one live handle exists per chat.
type Chat struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	InteractionID string    `json:"interaction_id"`
	LastModel     string    `json:"last_model"`
	Archived      bool      `json:"archived"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Message is a single turn in a chat. Messages are append-only and
// immutable once created.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DeriveTitle produces a chat title from the first user message.
func DeriveTitle(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) > titleDeriveLen {
		runes = runes[:titleDeriveLen]
	}
	title := strings.TrimSpace(string(runes))
	if title == "" {
		return DefaultTitle
	}
	return title
}
