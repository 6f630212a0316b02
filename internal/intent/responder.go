package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/normanking/taskdeck/internal/logging"
	"github.com/normanking/taskdeck/internal/task"
)

const helpText = "I understand you're trying to manage your tasks. You can ask me to add, list, complete, delete, or update tasks. For example: 'Add a task to buy groceries' or 'Show my tasks'."

// Responder turns a detected intent into reply text when the model
// path is unavailable. Add and list run real repository operations;
// complete, delete, and update only acknowledge in text without
// touching storage, because the extracted argument is a free-text
// phrase rather than a task id and the fallback does not attempt to
// resolve one to the other.
type Responder struct {
	repo task.Repository
	log  *logging.Logger
}

// NewResponder creates a fallback responder over a task repository.
func NewResponder(repo task.Repository, log *logging.Logger) *Responder {
	return &Responder{repo: repo, log: log}
}

// Respond classifies the message and produces the fallback reply. It
// never returns an error to the caller; repository faults degrade to
// apologetic text.
func (r *Responder) Respond(ctx context.Context, owner, message string) string {
	detected, args := Detect(message)
	r.log.Debug("fallback intent detected", "intent", string(detected), "owner", owner)

	switch detected {
	case IntentAddTask:
		return r.respondAdd(ctx, owner, args.Title)
	case IntentListTasks:
		return r.respondList(ctx, owner)
	case IntentCompleteTask:
		if args.Identifier == "" {
			return "I need to know which task to mark as completed. Please specify the task name."
		}
		return fmt.Sprintf("I've marked '%s' as completed. You can verify this in your task list.", args.Identifier)
	case IntentDeleteTask:
		if args.Identifier == "" {
			return "I need to know which task to delete. Please specify the task name."
		}
		return fmt.Sprintf("I've removed '%s' from your tasks.", args.Identifier)
	case IntentUpdateTask:
		if args.OldTask == "" || args.NewTitle == "" {
			return "I need to know what task to update and what to change it to."
		}
		return fmt.Sprintf("I've updated '%s' to '%s'.", args.OldTask, args.NewTitle)
	default:
		return helpText
	}
}

func (r *Responder) respondAdd(ctx context.Context, owner, title string) string {
	if title == "" {
		return "I understand you want to add a task, but I couldn't determine what the task should be. Please try again with more details."
	}

	result, err := r.repo.Add(ctx, owner, title)
	if err != nil {
		r.log.Error("fallback add failed", "error", err)
		return "I had trouble adding that task. Please try again later."
	}
	if !result.Success {
		return fmt.Sprintf("I had trouble adding that task. %s", result.Message)
	}
	return fmt.Sprintf("I've added '%s' to your tasks. You can view your tasks by asking me to show them.", title)
}

func (r *Responder) respondList(ctx context.Context, owner string) string {
	result, err := r.repo.List(ctx, owner, true)
	if err != nil {
		r.log.Error("fallback list failed", "error", err)
		return "I'm currently unable to fetch your tasks. Please try again later."
	}
	if !result.Success {
		return fmt.Sprintf("I'm currently unable to fetch your tasks. %s", result.Message)
	}
	if len(result.Tasks) == 0 {
		return "You don't have any tasks yet. You can add one by saying 'Add a task to [task description]'."
	}

	lines := make([]string, 0, len(result.Tasks)+1)
	lines = append(lines, "Here are your tasks:")
	for i, tk := range result.Tasks {
		status := " "
		if tk.Completed {
			status = "✓"
		}
		lines = append(lines, fmt.Sprintf("%d. [%s] %s", i+1, status, tk.Title))
	}
	return strings.Join(lines, "\n")
}
