// Package tools is the execution layer between the agent loop and the
// task repository. It declares the five callable operations for the
// model, decodes the model's argument maps into typed calls, and
// dispatches them.
package tools

import (
	"context"
	"fmt"

	"github.com/normanking/taskdeck/internal/brain"
	"github.com/normanking/taskdeck/internal/task"
)

// Op identifies one of the five task operations.
type Op int

const (
	OpAddTask Op = iota
	OpListTasks
	OpCompleteTask
	OpDeleteTask
	OpUpdateTask
	OpUnknown
)

// Tool names as declared to the model.
const (
	NameAddTask      = "add_task"
	NameListTasks    = "list_tasks"
	NameCompleteTask = "complete_task"
	NameDeleteTask   = "delete_task"
	NameUpdateTask   = "update_task"
)

// Call is a decoded tool invocation with typed arguments. Exactly one
// argument struct is populated, matching Op.
type Call struct {
	Op       Op
	Name     string // raw tool name, kept for unknown-tool messages
	Add      AddArgs
	List     ListArgs
	Complete CompleteArgs
	Delete   DeleteArgs
	Update   UpdateArgs
}

type AddArgs struct {
	Title string
}

type ListArgs struct {
	IncludeCompleted bool
}

type CompleteArgs struct {
	TaskID string
}

type DeleteArgs struct {
	TaskID string
}

type UpdateArgs struct {
	TaskID string
	Title  string
}

// ParseCall decodes a model tool call into a typed Call. Missing or
// mistyped keys fall back to "" for strings and true for
// include_completed, so a malformed call surfaces as a repository
// validation failure.
func ParseCall(name string, args map[string]any) Call {
	switch name {
	case NameAddTask:
		return Call{Op: OpAddTask, Name: name, Add: AddArgs{
			Title: stringArg(args, "title"),
		}}
	case NameListTasks:
		return Call{Op: OpListTasks, Name: name, List: ListArgs{
			IncludeCompleted: boolArg(args, "include_completed", true),
		}}
	case NameCompleteTask:
		return Call{Op: OpCompleteTask, Name: name, Complete: CompleteArgs{
			TaskID: stringArg(args, "task_id"),
		}}
	case NameDeleteTask:
		return Call{Op: OpDeleteTask, Name: name, Delete: DeleteArgs{
			TaskID: stringArg(args, "task_id"),
		}}
	case NameUpdateTask:
		return Call{Op: OpUpdateTask, Name: name, Update: UpdateArgs{
			TaskID: stringArg(args, "task_id"),
			Title:  stringArg(args, "title"),
		}}
	default:
		return Call{Op: OpUnknown, Name: name}
	}
}

// Executor dispatches decoded calls to the task repository.
type Executor struct {
	repo task.Repository
}

// NewExecutor creates an Executor over a task repository.
func NewExecutor(repo task.Repository) *Executor {
	return &Executor{repo: repo}
}

// Execute runs one call for an owner. Failed operations (validation,
// not found, unknown tool) come back as failed result envelopes; the
// error return is reserved for storage faults.
func (e *Executor) Execute(ctx context.Context, owner string, call Call) (task.Result, error) {
	switch call.Op {
	case OpAddTask:
		return e.repo.Add(ctx, owner, call.Add.Title)
	case OpListTasks:
		return e.repo.List(ctx, owner, call.List.IncludeCompleted)
	case OpCompleteTask:
		return e.repo.Complete(ctx, owner, call.Complete.TaskID)
	case OpDeleteTask:
		return e.repo.Delete(ctx, owner, call.Delete.TaskID)
	case OpUpdateTask:
		return e.repo.Update(ctx, owner, call.Update.TaskID, call.Update.Title)
	default:
		return task.Result{
			Success: false,
			Message: fmt.Sprintf("Unknown tool: %s", call.Name),
		}, nil
	}
}

// Specs returns the declarations for the five operations as handed to
// the model.
func Specs() []brain.ToolSpec {
	return []brain.ToolSpec{
		{
			Name:        NameAddTask,
			Description: "Create a new task for the user",
			Parameters: &brain.ParamSchema{
				Type: "object",
				Properties: map[string]*brain.ParamProp{
					"title": {Type: "string", Description: "The task title/description"},
				},
				Required: []string{"title"},
			},
		},
		{
			Name:        NameListTasks,
			Description: "Get all tasks for the user",
			Parameters: &brain.ParamSchema{
				Type: "object",
				Properties: map[string]*brain.ParamProp{
					"include_completed": {
						Type:        "boolean",
						Description: "Whether to include completed tasks",
						Default:     true,
					},
				},
			},
		},
		{
			Name:        NameCompleteTask,
			Description: "Mark a task as completed",
			Parameters: &brain.ParamSchema{
				Type: "object",
				Properties: map[string]*brain.ParamProp{
					"task_id": {Type: "string", Description: "The ID of the task to complete"},
				},
				Required: []string{"task_id"},
			},
		},
		{
			Name:        NameDeleteTask,
			Description: "Delete a task permanently",
			Parameters: &brain.ParamSchema{
				Type: "object",
				Properties: map[string]*brain.ParamProp{
					"task_id": {Type: "string", Description: "The ID of the task to delete"},
				},
				Required: []string{"task_id"},
			},
		},
		{
			Name:        NameUpdateTask,
			Description: "Update a task's title",
			Parameters: &brain.ParamSchema{
				Type: "object",
				Properties: map[string]*brain.ParamProp{
					"task_id": {Type: "string", Description: "The ID of the task to update"},
					"title":   {Type: "string", Description: "The new title for the task"},
				},
				Required: []string{"task_id", "title"},
			},
		},
	}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}
