package intent

import (
	"context"
	"strings"
	"testing"

	"github.com/normanking/taskdeck/internal/logging"
	"github.com/normanking/taskdeck/internal/task"
)

func TestDetectAddTask(t *testing.T) {
	cases := []struct {
		message string
		title   string
	}{
		{"Add a task to buy groceries", "buy groceries"},
		{"create a task to walk the dog", "walk the dog"},
		{"New task to call mom", "call mom"},
		{"I need to clean the house", "clean the house"},
		{"todo water the plants", "water the plants"},
	}

	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			detected, args := Detect(tc.message)
			if detected != IntentAddTask {
				t.Fatalf("Expected add_task, got %s", detected)
			}
			if args.Title != tc.title {
				t.Errorf("Expected title %q, got %q", tc.title, args.Title)
			}
		})
	}
}

func TestDetectListTasks(t *testing.T) {
	cases := []string{
		"Show my tasks",
		"list tasks",
		"What's on my list",
		"view my tasks",
	}

	for _, message := range cases {
		t.Run(message, func(t *testing.T) {
			detected, args := Detect(message)
			if detected != IntentListTasks {
				t.Fatalf("Expected list_tasks, got %s", detected)
			}
			if args != (Args{}) {
				t.Errorf("Expected empty args, got %+v", args)
			}
		})
	}
}

func TestDetectCompleteTask(t *testing.T) {
	detected, args := Detect("I finished buying groceries")
	if detected != IntentCompleteTask {
		t.Fatalf("Expected complete_task, got %s", detected)
	}
	if args.Identifier != "buying groceries" {
		t.Errorf("Expected identifier 'buying groceries', got %q", args.Identifier)
	}

	detected, args = Detect("mark laundry as done")
	if detected != IntentCompleteTask {
		t.Fatalf("Expected complete_task, got %s", detected)
	}
	if args.Identifier != "laundry" {
		t.Errorf("Expected identifier 'laundry', got %q", args.Identifier)
	}
}

func TestDetectDeleteTask(t *testing.T) {
	detected, args := Detect("Delete the groceries task")
	if detected != IntentDeleteTask {
		t.Fatalf("Expected delete_task, got %s", detected)
	}
	if args.Identifier != "the groceries task" {
		t.Errorf("Expected identifier 'the groceries task', got %q", args.Identifier)
	}
}

func TestDetectUpdateTask(t *testing.T) {
	detected, args := Detect("Change groceries to buy organic groceries")
	if detected != IntentUpdateTask {
		t.Fatalf("Expected update_task, got %s", detected)
	}
	if args.OldTask != "groceries" {
		t.Errorf("Expected old task 'groceries', got %q", args.OldTask)
	}
	if args.NewTitle != "buy organic groceries" {
		t.Errorf("Expected new title 'buy organic groceries', got %q", args.NewTitle)
	}
}

func TestDetectUnknown(t *testing.T) {
	detected, _ := Detect("What's the weather like?")
	if detected != IntentUnknown {
		t.Errorf("Expected unknown, got %s", detected)
	}
}

func TestDetectPrecedenceAddBeforeDelete(t *testing.T) {
	// "remove" appears but the add rule matches first in category
	// precedence order.
	detected, args := Detect("add a task to remove old files")
	if detected != IntentAddTask {
		t.Fatalf("Expected add_task to win precedence, got %s", detected)
	}
	if args.Title != "remove old files" {
		t.Errorf("Expected title 'remove old files', got %q", args.Title)
	}
}

func newTestResponder(t *testing.T) (*Responder, task.Repository) {
	t.Helper()
	repo, err := task.NewSQLiteRepository(t.TempDir() + "/tasks.db")
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewResponder(repo, logging.New()), repo
}

func TestResponderAddPersists(t *testing.T) {
	r, repo := newTestResponder(t)
	ctx := context.Background()

	reply := r.Respond(ctx, "user-1", "Add a task to buy groceries")
	if !strings.Contains(reply, "I've added 'buy groceries' to your tasks") {
		t.Errorf("Unexpected reply: %q", reply)
	}

	result, err := repo.List(ctx, "user-1", true)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Count != 1 || result.Tasks[0].Title != "buy groceries" {
		t.Errorf("Expected the task to be persisted, got %+v", result)
	}
}

func TestResponderListRendersChecklist(t *testing.T) {
	r, repo := newTestResponder(t)
	ctx := context.Background()

	added, err := repo.Add(ctx, "user-1", "walk the dog")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := repo.Add(ctx, "user-1", "buy milk"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := repo.Complete(ctx, "user-1", added.Task.ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	reply := r.Respond(ctx, "user-1", "Show my tasks")
	if !strings.HasPrefix(reply, "Here are your tasks:") {
		t.Fatalf("Unexpected reply: %q", reply)
	}
	if !strings.Contains(reply, "[ ] buy milk") {
		t.Errorf("Expected open task marker, got %q", reply)
	}
	if !strings.Contains(reply, "[✓] walk the dog") {
		t.Errorf("Expected completed task marker, got %q", reply)
	}
}

func TestResponderListEmpty(t *testing.T) {
	r, _ := newTestResponder(t)

	reply := r.Respond(context.Background(), "user-1", "Show my tasks")
	if !strings.Contains(reply, "You don't have any tasks yet") {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestResponderSimulatedMutationsDoNotTouchStorage(t *testing.T) {
	r, repo := newTestResponder(t)
	ctx := context.Background()

	added, err := repo.Add(ctx, "user-1", "buy groceries")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	reply := r.Respond(ctx, "user-1", "I finished buying groceries")
	if !strings.Contains(reply, "as completed") {
		t.Errorf("Unexpected complete reply: %q", reply)
	}

	reply = r.Respond(ctx, "user-1", "delete buy groceries")
	if !strings.Contains(reply, "I've removed") {
		t.Errorf("Unexpected delete reply: %q", reply)
	}

	// Storage is untouched: the task is still there and still open.
	result, err := repo.List(ctx, "user-1", true)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("Expected task to survive simulated mutations, got %d tasks", result.Count)
	}
	if result.Tasks[0].Completed {
		t.Error("Expected task to remain open")
	}
	if result.Tasks[0].ID != added.Task.ID {
		t.Error("Expected same task to remain")
	}
}

func TestResponderUnknownGivesHelp(t *testing.T) {
	r, _ := newTestResponder(t)

	reply := r.Respond(context.Background(), "user-1", "What's the weather like?")
	if !strings.Contains(reply, "add, list, complete, delete, or update") {
		t.Errorf("Expected help text, got %q", reply)
	}
}
