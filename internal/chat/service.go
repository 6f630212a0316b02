// Package chat glues the transport layer to the agent loop: it owns
// message validation, history loading, and conversation persistence
// around each exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/normanking/taskdeck/internal/agent"
	"github.com/normanking/taskdeck/internal/brain"
	"github.com/normanking/taskdeck/internal/conversation"
	"github.com/normanking/taskdeck/internal/logging"
)

// historyLimit caps the messages loaded for context. The agent loop
// applies its own tighter cap before calling the model.
const historyLimit = 20

// Validation errors for incoming messages.
var (
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = fmt.Errorf("message must be %d characters or less", conversation.MaxContentLen)
)

// Reply is the outcome of one chat exchange.
type Reply struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// Service processes chat exchanges for authenticated users.
type Service struct {
	store conversation.Store
	loop  *agent.Loop
	log   *logging.Logger
}

// NewService creates a chat Service.
func NewService(store conversation.Store, loop *agent.Loop, log *logging.Logger) *Service {
	return &Service{store: store, loop: loop, log: log}
}

// Send runs one exchange: validate, load context, persist the user
// message, run the agent loop, persist the reply. The user message
// and the assistant reply are two ordered appends; tool mutations
// committed mid-loop are never rolled back.
func (s *Service) Send(ctx context.Context, owner, message string) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(message)) > conversation.MaxContentLen {
		return nil, ErrMessageTooLong
	}

	conv, err := s.store.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}

	history, err := s.store.History(ctx, owner, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	if _, err := s.store.SaveMessage(ctx, owner, conversation.RoleUser, message); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	reply := s.loop.Process(ctx, owner, message, toBrainMessages(history))

	if _, err := s.store.SaveMessage(ctx, owner, conversation.RoleAssistant, reply); err != nil {
		return nil, fmt.Errorf("failed to save assistant message: %w", err)
	}

	s.log.Info("chat exchange completed", "owner", owner, "conversation_id", conv.ID)

	return &Reply{Message: reply, ConversationID: conv.ID}, nil
}

// FullHistory returns the owner's conversation messages for the
// conversations endpoint.
func (s *Service) FullHistory(ctx context.Context, owner string, limit int) (*conversation.History, error) {
	return s.store.FullHistory(ctx, owner, limit)
}

func toBrainMessages(msgs []conversation.Message) []brain.Message {
	out := make([]brain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, brain.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
