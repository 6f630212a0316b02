// Package task implements the per-user task repository.
package task

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLen is the maximum allowed task title length in characters.
const MaxTitleLen = 500

// Task is a single todo item owned by one user.
type Task struct {
	ID        string    `json:"id"`
	Owner     string    `json:"-"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Result is the uniform outcome envelope for task operations.
// Validation and not-found failures are reported here with
// Success=false rather than as Go errors, so callers always have a
// message to relay to the user.
type Result struct {
	Success       bool   `json:"success"`
	Task          *Task  `json:"task,omitempty"`
	Tasks         []Task `json:"tasks,omitempty"`
	Count         int    `json:"count,omitempty"`
	DeletedTaskID string `json:"deleted_task_id,omitempty"`
	Message       string `json:"message"`
}

// Repository provides per-user task CRUD. Every operation is scoped by
// owner; a task belonging to another user is indistinguishable from a
// missing one. Errors are reserved for infrastructure faults.
type Repository interface {
	// Add creates a task. Not idempotent: each call creates a new task.
	Add(ctx context.Context, owner, title string) (Result, error)

	// List returns the owner's tasks ordered newest first.
	List(ctx context.Context, owner string, includeCompleted bool) (Result, error)

	// Complete marks a task done and bumps its updated_at.
	Complete(ctx context.Context, owner, taskID string) (Result, error)

	// Delete removes a task permanently.
	Delete(ctx context.Context, owner, taskID string) (Result, error)

	// Update replaces a task's title with the same validation as Add.
	Update(ctx context.Context, owner, taskID, title string) (Result, error)

	// Close releases the underlying storage.
	Close() error
}

// validateTitle trims a title and checks the length bounds. The
// returned Result is meaningful only when ok is false.
func validateTitle(title string) (trimmed string, res Result, ok bool) {
	trimmed = strings.TrimSpace(title)
	if trimmed == "" {
		return "", Result{Success: false, Message: "Task title cannot be empty"}, false
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLen {
		return "", Result{Success: false, Message: "Task title must be 500 characters or less"}, false
	}
	return trimmed, Result{}, true
}

// notFound is the shared failure envelope for absent or foreign-owned
// tasks. The two cases are deliberately indistinguishable.
func notFound() Result {
	return Result{Success: false, Message: "Task not found"}
}

// countMessage renders the list summary with exact pluralization.
func countMessage(count int) string {
	switch count {
	case 0:
		return "No tasks found"
	case 1:
		return "Found 1 task"
	default:
		return fmt.Sprintf("Found %d tasks", count)
	}
}
