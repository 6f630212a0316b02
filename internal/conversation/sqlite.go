package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite for persistence.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the conversation database at
// dbPath. WAL and a busy timeout cover concurrent writes from the
// sibling stores sharing the file.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// NewSQLiteStoreWithDB wraps an existing database handle.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// GetOrCreate returns the owner's conversation, creating it lazily.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, owner string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(ctx, owner)
}

func (s *SQLiteStore) getOrCreateLocked(ctx context.Context, owner string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner, created_at, updated_at FROM conversations WHERE owner = ?`, owner)

	var conv Conversation
	err := row.Scan(&conv.ID, &conv.Owner, &conv.CreatedAt, &conv.UpdatedAt)
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	now := time.Now().UTC()
	conv = Conversation{
		ID:        uuid.NewString(),
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, owner, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		conv.ID, conv.Owner, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return &conv, nil
}

// SaveMessage appends a message to the owner's conversation.
func (s *SQLiteStore) SaveMessage(ctx context.Context, owner string, role Role, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.getOrCreateLocked(ctx, owner)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msg := Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, string(msg.Role), msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}

	return &msg, nil
}

// History returns up to limit messages for the owner, oldest first.
func (s *SQLiteStore) History(ctx context.Context, owner string, limit int) ([]Message, error) {
	full, err := s.FullHistory(ctx, owner, limit)
	if err != nil {
		return nil, err
	}
	return full.Messages, nil
}

// FullHistory returns the conversation id and messages, oldest first.
func (s *SQLiteStore) FullHistory(ctx context.Context, owner string, limit int) (*History, error) {
	if limit <= 0 {
		limit = 50
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE owner = ?`, owner)

	var convID string
	err := row.Scan(&convID)
	if errors.Is(err, sql.ErrNoRows) {
		return &History{Messages: []Message{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?`,
		convID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		var role string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = Role(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &History{ConversationID: convID, Messages: messages}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
