package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cairnmcp/cairn/internal/entity"
	"github.com/cairnmcp/cairn/internal/schema"
	"github.com/cairnmcp/cairn/internal/store"
)

// TaskCreateTool handles the task_create MCP tool.
type TaskCreateTool struct {
	store *store.Store
}

// NewTaskCreateTool creates a TaskCreateTool.
func NewTaskCreateTool(s *store.Store) *TaskCreateTool {
	return &TaskCreateTool{store: s}
}

// Definition returns the MCP tool definition for task_create.
func (t *TaskCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("task_create",
		mcp.WithDescription(
			"Create a task under a project. Tasks can nest under a parent task to form subtask trees.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("What needs to be done (1-500 characters)"),
		),
		mcp.WithString("project_id",
			mcp.Description("Project to attach to (default: the current project)"),
		),
		mcp.WithString("parent_id",
			mcp.Description("Parent task ID, for subtasks"),
		),
		mcp.WithString("priority",
			mcp.Description("Priority: critical, high, medium, low (default: medium)"),
		),
		mcp.WithArray("tags",
			mcp.Description("Free-form tags"),
		),
	)
}

// Handle processes the task_create tool call.
func (t *TaskCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}
	projectID := req.GetString("project_id", "")
	parentID := req.GetString("parent_id", "")
	priority := entity.Priority(req.GetString("priority", string(entity.PriorityMedium)))

	task := schema.SanitizeTask(entity.Task{
		ID:        entity.NewTaskID(),
		ParentID:  parentID,
		Title:     title,
		Priority:  priority,
		Tags:      stringListArg(req, "tags"),
		CreatedAt: entity.Now(),
	})

	res, err := t.store.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		if projectID == "" {
			projectID = db.Meta.CurrentProjectID
		}
		project := db.ProjectByID(projectID)
		if project == nil {
			return store.Outcome{}, fmt.Errorf("project %q not found", projectID)
		}
		task.ProjectID = project.ID

		if vr := schema.ValidateTask(task); !vr.Valid {
			return store.Outcome{}, &store.ValidationError{Reason: strings.Join(vr.Errors, "; ")}
		}

		if task.ParentID != "" {
			parent := db.TaskByID(task.ParentID)
			if parent == nil {
				return store.Outcome{}, fmt.Errorf("parent task %q not found", task.ParentID)
			}
			parent.SubtaskIDs = append(parent.SubtaskIDs, task.ID)
		}

		db.Tasks = append(db.Tasks, task)
		project.TaskIDs = append(project.TaskIDs, task.ID)
		recomputeCompletion(db, project.ID)

		return store.Outcome{Result: task, Commit: true, Changed: entity.ChangedTasks | entity.ChangedProjects}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	created := res.(entity.Task)
	return mcp.NewToolResultText(fmt.Sprintf("Task created: %q [%s]\nID: %s", created.Title, created.Priority, created.ID)), nil
}

// ─── TaskUpdateTool ──────────────────────────────────────────────────────────

// TaskUpdateTool handles the task_update MCP tool.
type TaskUpdateTool struct {
	store *store.Store
}

// NewTaskUpdateTool creates a TaskUpdateTool.
func NewTaskUpdateTool(s *store.Store) *TaskUpdateTool {
	return &TaskUpdateTool{store: s}
}

// Definition returns the MCP tool definition for task_update.
func (t *TaskUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("task_update",
		mcp.WithDescription(
			"Update a task: progress, priority, completion, notes, blockers. "+
				"Completing a task stamps its completion time and refreshes the project's completion percentage.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task ID"),
		),
		mcp.WithString("title",
			mcp.Description("New title"),
		),
		mcp.WithBoolean("completed",
			mcp.Description("Mark the task completed (true) or reopen it (false)"),
		),
		mcp.WithNumber("progress",
			mcp.Description("Progress percentage, 0-100"),
		),
		mcp.WithString("priority",
			mcp.Description("New priority: critical, high, medium, low"),
		),
		mcp.WithString("add_note",
			mcp.Description("Append a note"),
		),
		mcp.WithString("add_blocker",
			mcp.Description("Append a blocker description"),
		),
		mcp.WithBoolean("clear_blockers",
			mcp.Description("Remove all blockers"),
		),
	)
}

// Handle processes the task_update tool call.
func (t *TaskUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	res, err := t.store.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		task := db.TaskByID(id)
		if task == nil {
			return store.Outcome{}, fmt.Errorf("task %q not found", id)
		}

		changed := entity.ChangedTasks
		if title := req.GetString("title", ""); title != "" {
			task.Title = title
		}
		if priority := req.GetString("priority", ""); priority != "" {
			task.Priority = entity.Priority(priority)
		}
		if p := intArg(req, "progress", -1); p >= 0 {
			task.Progress = p
		}
		if note := req.GetString("add_note", ""); note != "" {
			task.Notes = append(task.Notes, note)
		}
		if blocker := req.GetString("add_blocker", ""); blocker != "" {
			task.Blockers = append(task.Blockers, blocker)
		}
		if boolArg(req, "clear_blockers", false) {
			task.Blockers = nil
		}
		if _, ok := req.GetArguments()["completed"]; ok {
			if boolArg(req, "completed", false) {
				task.Completed = true
				task.CompletedAt = entity.Now()
				task.Progress = 100
			} else {
				task.Completed = false
				task.CompletedAt = ""
			}
			recomputeCompletion(db, task.ProjectID)
			changed |= entity.ChangedProjects
		}

		*task = schema.SanitizeTask(*task)
		if vr := schema.ValidateTask(*task); !vr.Valid {
			return store.Outcome{}, &store.ValidationError{Reason: strings.Join(vr.Errors, "; ")}
		}

		return store.Outcome{Result: *task, Commit: true, Changed: changed}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	task := res.(entity.Task)
	return mcp.NewToolResultText("Task updated:\n" + formatTask(task)), nil
}

// ─── TaskListTool ────────────────────────────────────────────────────────────

// TaskListTool handles the task_list MCP tool.
type TaskListTool struct {
	store *store.Store
}

// NewTaskListTool creates a TaskListTool.
func NewTaskListTool(s *store.Store) *TaskListTool {
	return &TaskListTool{store: s}
}

// Definition returns the MCP tool definition for task_list.
func (t *TaskListTool) Definition() mcp.Tool {
	return mcp.NewTool("task_list",
		mcp.WithDescription(
			"List tasks for a project, grouped by priority. Shows open tasks by default.",
		),
		mcp.WithString("project_id",
			mcp.Description("Project to list (default: the current project)"),
		),
		mcp.WithBoolean("include_completed",
			mcp.Description("Also show completed tasks (default: false)"),
		),
	)
}

// Handle processes the task_list tool call.
func (t *TaskListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	includeCompleted := boolArg(req, "include_completed", false)

	res, err := t.store.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		if projectID == "" {
			projectID = db.Meta.CurrentProjectID
		}
		if db.ProjectByID(projectID) == nil {
			return store.Outcome{}, fmt.Errorf("project %q not found", projectID)
		}
		var tasks []entity.Task
		for _, tk := range db.TasksForProject(projectID) {
			if tk.Completed && !includeCompleted {
				continue
			}
			tasks = append(tasks, tk)
		}
		return store.Outcome{Result: tasks}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tasks := res.([]entity.Task)
	if len(tasks) == 0 {
		return mcp.NewToolResultText("No matching tasks."), nil
	}

	var b strings.Builder
	b.WriteString("## Tasks\n\n")
	for _, pr := range []entity.Priority{entity.PriorityCritical, entity.PriorityHigh, entity.PriorityMedium, entity.PriorityLow} {
		for _, tk := range tasks {
			if tk.Priority == pr {
				b.WriteString(formatTask(tk))
				b.WriteString("\n")
			}
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// recomputeCompletion refreshes a project's completion percentage from
// its tasks' completed flags. No-op when the project is missing.
func recomputeCompletion(db *entity.Database, projectID string) {
	project := db.ProjectByID(projectID)
	if project == nil {
		return
	}
	total, completed := 0, 0
	for _, tk := range db.Tasks {
		if tk.ProjectID != projectID {
			continue
		}
		total++
		if tk.Completed {
			completed++
		}
	}
	if total == 0 {
		project.CompletionPercentage = 0
		return
	}
	project.CompletionPercentage = (100*completed + total/2) / total
}
