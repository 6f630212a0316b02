// Package conversation persists per-user chat history.
package conversation

import (
	"context"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MaxContentLen is the maximum allowed message content length.
const MaxContentLen = 10000

// Conversation groups a user's messages. Each user has exactly one
// conversation, created lazily on first message.
type Conversation struct {
	ID        string    `json:"id"`
	Owner     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single chat message. Messages are append-only: they are
// never mutated or deleted once saved.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"-"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// History is a conversation with its messages in chronological order.
type History struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

// Store persists conversations and messages.
type Store interface {
	// GetOrCreate returns the owner's conversation, creating it if absent.
	GetOrCreate(ctx context.Context, owner string) (*Conversation, error)

	// SaveMessage appends a message to the owner's conversation,
	// creating the conversation if needed, and bumps its updated_at.
	SaveMessage(ctx context.Context, owner string, role Role, content string) (*Message, error)

	// History returns up to limit messages for the owner, oldest first.
	// A missing conversation yields an empty slice, not an error.
	History(ctx context.Context, owner string, limit int) ([]Message, error)

	// FullHistory returns the conversation id alongside the messages.
	FullHistory(ctx context.Context, owner string, limit int) (*History, error)

	// Close releases the underlying storage.
	Close() error
}
