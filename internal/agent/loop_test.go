package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/normanking/taskdeck/internal/brain"
	"github.com/normanking/taskdeck/internal/intent"
	"github.com/normanking/taskdeck/internal/logging"
	"github.com/normanking/taskdeck/internal/task"
	"github.com/normanking/taskdeck/internal/tools"
)

// mockBrain replays a fixed sequence of responses and records every
// request it receives.
type mockBrain struct {
	responses []*brain.Response
	errs      []error
	requests  []*brain.Request
	calls     int
}

func (m *mockBrain) Complete(ctx context.Context, req *brain.Request) (*brain.Response, error) {
	m.requests = append(m.requests, req)
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return &brain.Response{Content: "unexpected extra call"}, nil
}

func (m *mockBrain) Ping(ctx context.Context) error { return nil }
func (m *mockBrain) Provider() string               { return "mock" }

func newTestLoop(t *testing.T, b brain.Brain, breaker *brain.CircuitBreaker) (*Loop, task.Repository) {
	t.Helper()
	repo, err := task.NewSQLiteRepository(t.TempDir() + "/tasks.db")
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	log := logging.New()
	loop := New(Config{
		Brain:    b,
		Executor: tools.NewExecutor(repo),
		Fallback: intent.NewResponder(repo, log),
		Breaker:  breaker,
		Logger:   log,
	})
	return loop, repo
}

func TestProcessDirectResponse(t *testing.T) {
	mock := &mockBrain{responses: []*brain.Response{
		{Content: "Hello! How can I help you with your tasks?"},
	}}
	loop, _ := newTestLoop(t, mock, nil)

	reply := loop.Process(context.Background(), "user-1", "Hi there", nil)
	if reply != "Hello! How can I help you with your tasks?" {
		t.Errorf("Unexpected reply: %q", reply)
	}
	if mock.calls != 1 {
		t.Errorf("Expected 1 model call, got %d", mock.calls)
	}

	req := mock.requests[0]
	if req.System == "" {
		t.Error("Expected system prompt to be set")
	}
	if len(req.Tools) != 5 {
		t.Errorf("Expected 5 tool declarations, got %d", len(req.Tools))
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" || last.Content != "Hi there" {
		t.Errorf("Expected user message last, got %+v", last)
	}
}

func TestProcessEmptyDirectResponse(t *testing.T) {
	mock := &mockBrain{responses: []*brain.Response{{Content: ""}}}
	loop, _ := newTestLoop(t, mock, nil)

	reply := loop.Process(context.Background(), "user-1", "Hi", nil)
	if reply != "I'm not sure how to help with that." {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestProcessToolRound(t *testing.T) {
	mock := &mockBrain{responses: []*brain.Response{
		{ToolCalls: []brain.ToolCall{{
			ID:        "call_1",
			Name:      "add_task",
			Arguments: map[string]any{"title": "buy groceries"},
		}}},
		{Content: "I've added 'buy groceries' to your list!"},
	}}
	loop, repo := newTestLoop(t, mock, nil)

	reply := loop.Process(context.Background(), "user-1", "Add a task to buy groceries", nil)
	if reply != "I've added 'buy groceries' to your list!" {
		t.Errorf("Unexpected reply: %q", reply)
	}
	if mock.calls != 2 {
		t.Fatalf("Expected 2 model calls, got %d", mock.calls)
	}

	// The tool must have actually run.
	result, err := repo.List(context.Background(), "user-1", true)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Count != 1 || result.Tasks[0].Title != "buy groceries" {
		t.Errorf("Expected persisted task, got %+v", result)
	}

	// The second call must carry the assistant's call commitment and
	// the tool outcome envelope.
	second := mock.requests[1]
	var sawCommitment, sawOutcome bool
	for _, m := range second.Messages {
		if m.Role == "assistant" && len(m.ToolCalls) == 1 && m.ToolCalls[0].ID == "call_1" {
			sawCommitment = true
		}
		if m.Role == "tool" && m.ToolCallID == "call_1" {
			sawOutcome = true
			if !strings.Contains(m.Content, "Task 'buy groceries' created successfully") {
				t.Errorf("Tool outcome missing repository message: %q", m.Content)
			}
		}
	}
	if !sawCommitment || !sawOutcome {
		t.Errorf("Second call missing tool round-trip: commitment=%v outcome=%v", sawCommitment, sawOutcome)
	}
	if len(second.Tools) != 0 {
		t.Errorf("Expected no tool declarations on the recall, got %d", len(second.Tools))
	}
}

func TestProcessToolRoundEmptyFinalText(t *testing.T) {
	mock := &mockBrain{responses: []*brain.Response{
		{ToolCalls: []brain.ToolCall{{
			ID:        "call_1",
			Name:      "list_tasks",
			Arguments: map[string]any{},
		}}},
		{Content: ""},
	}}
	loop, _ := newTestLoop(t, mock, nil)

	reply := loop.Process(context.Background(), "user-1", "Show my tasks", nil)
	if reply != "Done!" {
		t.Errorf("Expected default acknowledgement, got %q", reply)
	}
}

func TestProcessModelErrorUsesFallback(t *testing.T) {
	mock := &mockBrain{errs: []error{brain.ErrAuthentication}}
	loop, repo := newTestLoop(t, mock, nil)

	ctx := context.Background()
	reply := loop.Process(ctx, "user-1", "Add a task to buy groceries", nil)

	// The fallback really adds the task and the reply matches the
	// responder's output for the same message.
	if !strings.Contains(reply, "I've added 'buy groceries' to your tasks") {
		t.Errorf("Unexpected fallback reply: %q", reply)
	}
	if strings.Contains(reply, "authentication") {
		t.Errorf("Raw adapter error leaked into reply: %q", reply)
	}

	result, err := repo.List(ctx, "user-1", true)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Count != 1 {
		t.Errorf("Expected fallback to persist the task, got %d", result.Count)
	}
}

func TestProcessSecondCallErrorUsesFallback(t *testing.T) {
	mock := &mockBrain{
		responses: []*brain.Response{
			{ToolCalls: []brain.ToolCall{{
				ID:        "call_1",
				Name:      "list_tasks",
				Arguments: map[string]any{},
			}}},
		},
		errs: []error{nil, errors.New("quota exceeded")},
	}
	loop, _ := newTestLoop(t, mock, nil)

	reply := loop.Process(context.Background(), "user-1", "Show my tasks", nil)
	if mock.calls != 2 {
		t.Fatalf("Expected 2 model calls, got %d", mock.calls)
	}
	// Fallback on the original message: list intent, no tasks yet.
	if !strings.Contains(reply, "You don't have any tasks yet") {
		t.Errorf("Unexpected fallback reply: %q", reply)
	}
}

func TestProcessNoRetry(t *testing.T) {
	mock := &mockBrain{errs: []error{brain.ErrUnavailable}}
	loop, _ := newTestLoop(t, mock, nil)

	loop.Process(context.Background(), "user-1", "Show my tasks", nil)
	if mock.calls != 1 {
		t.Errorf("Expected exactly one model attempt, got %d", mock.calls)
	}
}

func TestProcessHistoryCap(t *testing.T) {
	mock := &mockBrain{responses: []*brain.Response{{Content: "ok"}}}
	loop, _ := newTestLoop(t, mock, nil)

	history := make([]brain.Message, 0, 15)
	for i := 0; i < 15; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, brain.Message{Role: role, Content: "older message"})
	}

	loop.Process(context.Background(), "user-1", "Hi", history)

	req := mock.requests[0]
	// 10 history messages plus the new user message.
	if len(req.Messages) != 11 {
		t.Errorf("Expected history capped to 10 plus new message, got %d", len(req.Messages))
	}
}

func TestProcessCircuitOpenSkipsModel(t *testing.T) {
	mock := &mockBrain{}
	breaker := brain.NewCircuitBreaker("mock", brain.CircuitBreakerConfig{FailureThreshold: 1})
	breaker.RecordFailure()

	loop, _ := newTestLoop(t, mock, breaker)

	reply := loop.Process(context.Background(), "user-1", "Show my tasks", nil)
	if mock.calls != 0 {
		t.Errorf("Expected no model calls with open circuit, got %d", mock.calls)
	}
	if !strings.Contains(reply, "You don't have any tasks yet") {
		t.Errorf("Unexpected fallback reply: %q", reply)
	}
}

func TestProcessFailuresOpenCircuit(t *testing.T) {
	mock := &mockBrain{errs: []error{
		brain.ErrUnavailable, brain.ErrUnavailable, brain.ErrUnavailable,
	}}
	breaker := brain.NewCircuitBreaker("mock", brain.CircuitBreakerConfig{FailureThreshold: 3})
	loop, _ := newTestLoop(t, mock, breaker)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		loop.Process(ctx, "user-1", "Hi", nil)
	}

	if breaker.State() != brain.CircuitOpen {
		t.Errorf("Expected open circuit after repeated failures, got %v", breaker.State())
	}

	loop.Process(ctx, "user-1", "Hi", nil)
	if mock.calls != 3 {
		t.Errorf("Expected model untouched once circuit opened, got %d calls", mock.calls)
	}
}
