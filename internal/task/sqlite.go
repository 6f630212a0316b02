package task

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

// SQLiteRepository implements Repository using SQLite for persistence.
type SQLiteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRepository opens (or creates) the task database at dbPath.
// The file is shared with the conversation and user stores, so WAL
// and a busy timeout keep concurrent writers from surfacing
// SQLITE_BUSY.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

// NewSQLiteRepositoryWithDB wraps an existing database handle. The
// caller keeps ownership of the handle; Close is still safe to call.
func NewSQLiteRepositoryWithDB(db *sql.DB) (*SQLiteRepository, error) {
	repo := &SQLiteRepository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return repo, nil
}

// migrate creates the tasks table if it doesn't exist.
func (r *SQLiteRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		title TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner);
	CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Add creates a new task for the owner.
func (r *SQLiteRepository) Add(ctx context.Context, owner, title string) (Result, error) {
	trimmed, res, ok := validateTitle(title)
	if !ok {
		return res, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	t := Task{
		ID:        uuid.NewString(),
		Owner:     owner,
		Title:     trimmed,
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, owner, title, completed, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Owner, t.Title, t.Completed, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return Result{}, fmt.Errorf("failed to insert task: %w", err)
	}

	return Result{
		Success: true,
		Task:    &t,
		Message: fmt.Sprintf("Task '%s' created successfully", t.Title),
	}, nil
}

// List returns the owner's tasks ordered by created_at descending.
func (r *SQLiteRepository) List(ctx context.Context, owner string, includeCompleted bool) (Result, error) {
	query := `SELECT id, owner, title, completed, created_at, updated_at FROM tasks WHERE owner = ?`
	args := []any{owner}
	if !includeCompleted {
		query += ` AND completed = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Result{}, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return Result{}, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	return Result{
		Success: true,
		Tasks:   tasks,
		Count:   len(tasks),
		Message: countMessage(len(tasks)),
	}, nil
}

// Complete marks a task as completed.
func (r *SQLiteRepository) Complete(ctx context.Context, owner, taskID string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.getOwned(ctx, owner, taskID)
	if err != nil {
		return Result{}, err
	}
	if t == nil {
		return notFound(), nil
	}

	t.Completed = true
	t.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`UPDATE tasks SET completed = 1, updated_at = ? WHERE id = ? AND owner = ?`,
		t.UpdatedAt, taskID, owner,
	)
	if err != nil {
		return Result{}, fmt.Errorf("failed to update task: %w", err)
	}

	return Result{
		Success: true,
		Task:    t,
		Message: fmt.Sprintf("Task '%s' marked as complete", t.Title),
	}, nil
}

// Delete removes a task permanently.
func (r *SQLiteRepository) Delete(ctx context.Context, owner, taskID string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.getOwned(ctx, owner, taskID)
	if err != nil {
		return Result{}, err
	}
	if t == nil {
		return notFound(), nil
	}

	_, err = r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner = ?`, taskID, owner)
	if err != nil {
		return Result{}, fmt.Errorf("failed to delete task: %w", err)
	}

	return Result{
		Success:       true,
		DeletedTaskID: taskID,
		Message:       fmt.Sprintf("Task '%s' deleted successfully", t.Title),
	}, nil
}

// Update replaces a task's title.
func (r *SQLiteRepository) Update(ctx context.Context, owner, taskID, title string) (Result, error) {
	trimmed, res, ok := validateTitle(title)
	if !ok {
		return res, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.getOwned(ctx, owner, taskID)
	if err != nil {
		return Result{}, err
	}
	if t == nil {
		return notFound(), nil
	}

	oldTitle := t.Title
	t.Title = trimmed
	t.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, updated_at = ? WHERE id = ? AND owner = ?`,
		t.Title, t.UpdatedAt, taskID, owner,
	)
	if err != nil {
		return Result{}, fmt.Errorf("failed to update task: %w", err)
	}

	return Result{
		Success: true,
		Task:    t,
		Message: fmt.Sprintf("Task updated from '%s' to '%s'", oldTitle, t.Title),
	}, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// getOwned fetches a task scoped by owner. Returns nil (no error) when
// the task is absent or owned by someone else.
func (r *SQLiteRepository) getOwned(ctx context.Context, owner, taskID string) (*Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, title, completed, created_at, updated_at FROM tasks WHERE id = ? AND owner = ?`,
		taskID, owner,
	)

	var t Task
	err := row.Scan(&t.ID, &t.Owner, &t.Title, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return &t, nil
}

// scanTask scans a row into a Task struct.
func scanTask(rows *sql.Rows) (*Task, error) {
	var t Task
	err := rows.Scan(&t.ID, &t.Owner, &t.Title, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return &t, nil
}
