// Package agent contains the per-request orchestration loop: load
// context, ask the model, run requested tools, ask again with the
// outcomes, and fall back to the rule engine when the model path
// fails.
package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/normanking/taskdeck/internal/brain"
	"github.com/normanking/taskdeck/internal/intent"
	"github.com/normanking/taskdeck/internal/logging"
	"github.com/normanking/taskdeck/internal/metrics"
	"github.com/normanking/taskdeck/internal/tools"
)

const systemPrompt = `You are a friendly AI assistant that helps users manage their todo tasks.

You have access to these tools:
- add_task: Create a new task
- list_tasks: Show all tasks
- complete_task: Mark a task as done
- delete_task: Remove a task
- update_task: Change a task's title

When users want to manage tasks, use the appropriate tool. Always be friendly and confirm actions.

Examples of user requests:
- "Add a task to buy groceries" → use add_task
- "Show my tasks" or "What do I need to do?" → use list_tasks
- "I finished buying groceries" or "Mark buy groceries as done" → use complete_task
- "Delete the groceries task" or "Remove buy groceries" → use delete_task
- "Change groceries to buy organic groceries" → use update_task

Always respond in a friendly, conversational manner. Confirm what you did after each action.`

const (
	// modelHistoryLimit caps the prior messages handed to the model.
	// Independent from the store-side context load cap.
	modelHistoryLimit = 10

	defaultToolReply   = "Done!"
	defaultDirectReply = "I'm not sure how to help with that."
)

// Config wires the loop's collaborators.
type Config struct {
	Brain    brain.Brain
	Executor *tools.Executor
	Fallback *intent.Responder
	Breaker  *brain.CircuitBreaker
	Logger   *logging.Logger
}

// Loop runs the agent state machine for one chat request at a time.
// Instances are safe for concurrent use; all per-request state lives
// on the stack.
type Loop struct {
	brain    brain.Brain
	executor *tools.Executor
	fallback *intent.Responder
	breaker  *brain.CircuitBreaker
	log      *logging.Logger
}

// New creates a Loop.
func New(cfg Config) *Loop {
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	return &Loop{
		brain:    cfg.Brain,
		executor: cfg.Executor,
		fallback: cfg.Fallback,
		breaker:  cfg.Breaker,
		log:      log,
	}
}

// Process answers one user message. It makes at most two sequential
// model calls (decision, then text generation after tools) and never
// retries; any model-service error abandons the model path and
// delegates the original message to the fallback engine. The returned
// text is always usable - Process has no error path to the caller.
func (l *Loop) Process(ctx context.Context, owner, message string, history []brain.Message) string {
	if l.breaker != nil && !l.breaker.Allow() {
		l.log.Warn("model circuit open, using fallback", "owner", owner)
		metrics.FallbackResponses.WithLabelValues("circuit_open").Inc()
		return l.fallback.Respond(ctx, owner, message)
	}

	msgs := make([]brain.Message, 0, modelHistoryLimit+1)
	msgs = append(msgs, tail(history, modelHistoryLimit)...)
	msgs = append(msgs, brain.Message{Role: "user", Content: message})

	resp, err := l.complete(ctx, &brain.Request{
		System:   systemPrompt,
		Messages: msgs,
		Tools:    tools.Specs(),
	})
	if err != nil {
		l.log.Error("model call failed, using fallback", "error", err, "owner", owner)
		metrics.FallbackResponses.WithLabelValues("model_error").Inc()
		return l.fallback.Respond(ctx, owner, message)
	}

	if len(resp.ToolCalls) == 0 {
		// Direct text, no tools. Distinct from the error path above:
		// here the model answered, it just may have said nothing.
		if resp.Content == "" {
			l.log.Info("model returned empty direct response", "owner", owner)
			return defaultDirectReply
		}
		return resp.Content
	}

	msgs = append(msgs, brain.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})

	for _, tc := range resp.ToolCalls {
		call := tools.ParseCall(tc.Name, tc.Arguments)
		result, err := l.executor.Execute(ctx, owner, call)
		if err != nil {
			l.log.Error("tool execution failed, using fallback", "tool", tc.Name, "error", err)
			metrics.ToolExecutions.WithLabelValues(tc.Name, "error").Inc()
			metrics.FallbackResponses.WithLabelValues("tool_error").Inc()
			return l.fallback.Respond(ctx, owner, message)
		}

		outcome := "failure"
		if result.Success {
			outcome = "success"
		}
		metrics.ToolExecutions.WithLabelValues(tc.Name, outcome).Inc()
		l.log.Info("tool executed", "tool", tc.Name, "success", result.Success, "owner", owner)

		payload, err := json.Marshal(result)
		if err != nil {
			payload = []byte(`{"success": false, "message": "internal serialization error"}`)
		}
		msgs = append(msgs, brain.Message{
			Role:       "tool",
			Content:    string(payload),
			ToolCallID: tc.ID,
			ToolName:   tc.Name,
		})
	}

	final, err := l.complete(ctx, &brain.Request{
		System:   systemPrompt,
		Messages: msgs,
	})
	if err != nil {
		l.log.Error("model recall failed, using fallback", "error", err, "owner", owner)
		metrics.FallbackResponses.WithLabelValues("model_error").Inc()
		return l.fallback.Respond(ctx, owner, message)
	}

	if final.Content == "" {
		return defaultToolReply
	}
	return final.Content
}

// complete wraps one model call with breaker bookkeeping and metrics.
func (l *Loop) complete(ctx context.Context, req *brain.Request) (*brain.Response, error) {
	start := time.Now()
	resp, err := l.brain.Complete(ctx, req)
	metrics.ModelLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		if l.breaker != nil {
			l.breaker.RecordFailure()
		}
		metrics.ModelCalls.WithLabelValues(l.brain.Provider(), "error").Inc()
		return nil, err
	}

	if l.breaker != nil {
		l.breaker.RecordSuccess()
	}
	metrics.ModelCalls.WithLabelValues(l.brain.Provider(), "ok").Inc()
	return resp, nil
}

func tail(msgs []brain.Message, n int) []brain.Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
