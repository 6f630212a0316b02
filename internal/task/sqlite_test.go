package task

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAdd(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	res, err := repo.Add(ctx, "user-1", "buy groceries")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got message %q", res.Message)
	}
	if res.Task == nil {
		t.Fatal("expected task snapshot in result")
	}
	if res.Task.ID == "" {
		t.Error("expected non-empty task id")
	}
	if res.Task.Title != "buy groceries" {
		t.Errorf("expected title 'buy groceries', got %q", res.Task.Title)
	}
	if res.Task.Completed {
		t.Error("new task should not be completed")
	}
	if res.Message != "Task 'buy groceries' created successfully" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestAdd_TrimsTitle(t *testing.T) {
	repo := newTestRepo(t)

	res, err := repo.Add(context.Background(), "user-1", "  walk the dog  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Task.Title != "walk the dog" {
		t.Errorf("expected trimmed title, got %q", res.Task.Title)
	}
}

func TestAdd_EmptyTitles(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, title := range []string{"", "   ", "\t\n"} {
		res, err := repo.Add(ctx, "user-1", title)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Success {
			t.Errorf("expected failure for title %q", title)
		}
		if res.Message != "Task title cannot be empty" {
			t.Errorf("unexpected message: %q", res.Message)
		}
	}

	// Nothing persisted
	list, err := repo.List(ctx, "user-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.Count != 0 {
		t.Errorf("expected no tasks persisted, got %d", list.Count)
	}
}

func TestAdd_TitleTooLong(t *testing.T) {
	repo := newTestRepo(t)

	res, err := repo.Add(context.Background(), "user-1", strings.Repeat("x", 501))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected failure for over-long title")
	}
	if res.Message != "Task title must be 500 characters or less" {
		t.Errorf("unexpected message: %q", res.Message)
	}

	// Exactly 500 characters is allowed
	res, err = repo.Add(context.Background(), "user-1", strings.Repeat("y", 500))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Errorf("expected 500-char title to be accepted, got %q", res.Message)
	}
}

func TestList_Pluralization(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	res, _ := repo.List(ctx, "user-1", true)
	if res.Message != "No tasks found" {
		t.Errorf("expected 'No tasks found', got %q", res.Message)
	}

	repo.Add(ctx, "user-1", "one")
	res, _ = repo.List(ctx, "user-1", true)
	if res.Message != "Found 1 task" {
		t.Errorf("expected 'Found 1 task', got %q", res.Message)
	}

	repo.Add(ctx, "user-1", "two")
	res, _ = repo.List(ctx, "user-1", true)
	if res.Message != "Found 2 tasks" {
		t.Errorf("expected 'Found 2 tasks', got %q", res.Message)
	}
}

func TestList_ExcludesCompleted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, _ := repo.Add(ctx, "user-1", "done task")
	repo.Add(ctx, "user-1", "open task")
	repo.Complete(ctx, "user-1", a.Task.ID)

	res, err := repo.List(ctx, "user-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("expected 1 open task, got %d", res.Count)
	}
	if res.Tasks[0].Title != "open task" {
		t.Errorf("expected 'open task', got %q", res.Tasks[0].Title)
	}
}

func TestList_OwnerIsolation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	repo.Add(ctx, "alice", "alice task")
	repo.Add(ctx, "bob", "bob task")

	res, err := repo.List(ctx, "alice", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("expected 1 task for alice, got %d", res.Count)
	}
	for _, tk := range res.Tasks {
		if tk.Owner != "alice" {
			t.Errorf("list leaked task owned by %q", tk.Owner)
		}
	}
}

func TestComplete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	added, _ := repo.Add(ctx, "user-1", "finish report")

	res, err := repo.Complete(ctx, "user-1", added.Task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
	if !res.Task.Completed {
		t.Error("expected task to be completed")
	}
	if res.Message != "Task 'finish report' marked as complete" {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if res.Task.UpdatedAt.Before(res.Task.CreatedAt) {
		t.Error("updated_at should not precede created_at")
	}
}

func TestComplete_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	res, err := repo.Complete(ctx, "user-1", "no-such-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected failure for missing task")
	}
	if res.Message != "Task not found" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestComplete_ForeignOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	added, _ := repo.Add(ctx, "alice", "alice task")

	res, err := repo.Complete(ctx, "bob", added.Task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected failure for foreign-owned task")
	}
	// Owner mismatch must be indistinguishable from absence
	if res.Message != "Task not found" {
		t.Errorf("unexpected message: %q", res.Message)
	}

	// Storage unchanged
	list, _ := repo.List(ctx, "alice", false)
	if list.Count != 1 {
		t.Error("foreign complete must not mutate storage")
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	added, _ := repo.Add(ctx, "user-1", "old task")

	res, err := repo.Delete(ctx, "user-1", added.Task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
	if res.DeletedTaskID != added.Task.ID {
		t.Errorf("expected deleted id %q, got %q", added.Task.ID, res.DeletedTaskID)
	}
	if res.Message != "Task 'old task' deleted successfully" {
		t.Errorf("unexpected message: %q", res.Message)
	}

	list, _ := repo.List(ctx, "user-1", true)
	if list.Count != 0 {
		t.Error("expected task to be gone")
	}
}

func TestDelete_ForeignOwnerLeavesStorage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	added, _ := repo.Add(ctx, "alice", "keep me")

	res, _ := repo.Delete(ctx, "bob", added.Task.ID)
	if res.Success {
		t.Error("expected failure for foreign-owned delete")
	}

	list, _ := repo.List(ctx, "alice", true)
	if list.Count != 1 {
		t.Error("foreign delete must not remove the task")
	}
}

func TestUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	added, _ := repo.Add(ctx, "user-1", "groceries")

	res, err := repo.Update(ctx, "user-1", added.Task.ID, "organic groceries")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
	if res.Task.Title != "organic groceries" {
		t.Errorf("expected new title, got %q", res.Task.Title)
	}
	if res.Message != "Task updated from 'groceries' to 'organic groceries'" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestUpdate_Validation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	added, _ := repo.Add(ctx, "user-1", "original")

	res, _ := repo.Update(ctx, "user-1", added.Task.ID, "   ")
	if res.Success {
		t.Error("expected failure for blank title")
	}

	res, _ = repo.Update(ctx, "user-1", added.Task.ID, strings.Repeat("z", 501))
	if res.Success {
		t.Error("expected failure for over-long title")
	}

	// Title unchanged after failed updates
	list, _ := repo.List(ctx, "user-1", true)
	if list.Tasks[0].Title != "original" {
		t.Errorf("failed update must not mutate title, got %q", list.Tasks[0].Title)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	res, err := repo.Update(context.Background(), "user-1", "missing", "new title")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.Message != "Task not found" {
		t.Errorf("expected not-found envelope, got %+v", res)
	}
}

func TestRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Add(ctx, "user-1", "X"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := repo.List(ctx, "user-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, tk := range res.Tasks {
		if tk.Title == "X" && !tk.Completed {
			found = true
		}
	}
	if !found {
		t.Error("expected list to include incomplete task 'X'")
	}
}

func TestList_NewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	repo.Add(ctx, "user-1", "first")
	repo.Add(ctx, "user-1", "second")
	repo.Add(ctx, "user-1", "third")

	res, _ := repo.List(ctx, "user-1", true)
	if res.Count != 3 {
		t.Fatalf("expected 3 tasks, got %d", res.Count)
	}
	for i := 1; i < len(res.Tasks); i++ {
		if res.Tasks[i].CreatedAt.After(res.Tasks[i-1].CreatedAt) {
			t.Error("expected tasks ordered newest first")
		}
	}
}
