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

// ProjectCreateTool handles the project_create MCP tool.
type ProjectCreateTool struct {
	store *store.Store
}

// NewProjectCreateTool creates a ProjectCreateTool.
func NewProjectCreateTool(s *store.Store) *ProjectCreateTool {
	return &ProjectCreateTool{store: s}
}

// Definition returns the MCP tool definition for project_create.
func (t *ProjectCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("project_create",
		mcp.WithDescription(
			"Create a new project to track a body of work across the session. "+
				"The new project starts in 'planning' status and becomes the current project unless set_current is false.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name (1-200 characters)"),
		),
		mcp.WithString("description",
			mcp.Description("What this project is about"),
		),
		mcp.WithBoolean("set_current",
			mcp.Description("Make this the current project (default: true)"),
		),
	)
}

// Handle processes the project_create tool call.
func (t *ProjectCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	setCurrent := boolArg(req, "set_current", true)

	p := schema.SanitizeProject(entity.Project{
		ID:          entity.NewProjectID(),
		Name:        name,
		Description: req.GetString("description", ""),
		Status:      entity.StatusPlanning,
		CreatedAt:   entity.Now(),
	})
	if res := schema.ValidateProject(p); !res.Valid {
		return mcp.NewToolResultError("validation failed: " + strings.Join(res.Errors, "; ")), nil
	}

	_, err := t.store.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		db.Projects = append(db.Projects, p)
		changed := entity.ChangedProjects
		if setCurrent {
			db.Meta.CurrentProjectID = p.ID
			changed |= entity.ChangedMeta
		}
		return store.Outcome{Commit: true, Changed: changed}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Project created: %q\nID: %s", p.Name, p.ID)), nil
}

// ─── ProjectUpdateTool ───────────────────────────────────────────────────────

// ProjectUpdateTool handles the project_update MCP tool.
type ProjectUpdateTool struct {
	store *store.Store
}

// NewProjectUpdateTool creates a ProjectUpdateTool.
func NewProjectUpdateTool(s *store.Store) *ProjectUpdateTool {
	return &ProjectUpdateTool{store: s}
}

// Definition returns the MCP tool definition for project_update.
func (t *ProjectUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("project_update",
		mcp.WithDescription(
			"Update a project's name, description, status, milestones, or make it the current project. "+
				"Marking a project 'completed' is rejected while it still has incomplete tasks.",
		),
		mcp.WithString("id",
			mcp.Description("Project ID (default: the current project)"),
		),
		mcp.WithString("name",
			mcp.Description("New project name"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("status",
			mcp.Description("New status: planning, in_progress, blocked, completed, archived"),
		),
		mcp.WithString("add_milestone",
			mcp.Description("Add a milestone with this name"),
		),
		mcp.WithString("complete_milestone",
			mcp.Description("Mark the milestone with this name as completed"),
		),
		mcp.WithBoolean("set_current",
			mcp.Description("Make this the current project"),
		),
	)
}

// Handle processes the project_update tool call.
func (t *ProjectUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")

	res, err := t.store.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		if id == "" {
			id = db.Meta.CurrentProjectID
		}
		p := db.ProjectByID(id)
		if p == nil {
			return store.Outcome{}, fmt.Errorf("project %q not found", id)
		}

		changed := entity.ChangedProjects
		if name := req.GetString("name", ""); name != "" {
			p.Name = name
		}
		if desc := req.GetString("description", ""); desc != "" {
			p.Description = desc
		}
		if status := req.GetString("status", ""); status != "" {
			p.Status = entity.ProjectStatus(status)
		}
		if ms := req.GetString("add_milestone", ""); ms != "" {
			p.Milestones = append(p.Milestones, entity.Milestone{Name: schema.CleanString(ms)})
		}
		if ms := req.GetString("complete_milestone", ""); ms != "" {
			found := false
			for i := range p.Milestones {
				if p.Milestones[i].Name == ms {
					p.Milestones[i].Completed = true
					found = true
					break
				}
			}
			if !found {
				return store.Outcome{}, fmt.Errorf("milestone %q not found on project %q", ms, p.Name)
			}
		}
		if boolArg(req, "set_current", false) {
			db.Meta.CurrentProjectID = p.ID
			changed |= entity.ChangedMeta
		}

		*p = schema.SanitizeProject(*p)
		if res := schema.ValidateProject(*p); !res.Valid {
			return store.Outcome{}, &store.ValidationError{Reason: strings.Join(res.Errors, "; ")}
		}

		return store.Outcome{Result: *p, Commit: true, Changed: changed}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p := res.(entity.Project)
	return mcp.NewToolResultText(fmt.Sprintf("Project updated: %q\n- Status: %s, %d%% complete", p.Name, p.Status, p.CompletionPercentage)), nil
}

// ─── ProjectListTool ─────────────────────────────────────────────────────────

// ProjectListTool handles the project_list MCP tool.
type ProjectListTool struct {
	store *store.Store
}

// NewProjectListTool creates a ProjectListTool.
func NewProjectListTool(s *store.Store) *ProjectListTool {
	return &ProjectListTool{store: s}
}

// Definition returns the MCP tool definition for project_list.
func (t *ProjectListTool) Definition() mcp.Tool {
	return mcp.NewTool("project_list",
		mcp.WithDescription(
			"List tracked projects with status, completion, and task counts.",
		),
		mcp.WithString("status",
			mcp.Description("Only show projects with this status"),
		),
	)
}

// Handle processes the project_list tool call.
func (t *ProjectListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statusFilter := req.GetString("status", "")

	type listing struct {
		projects  []entity.Project
		taskCount map[string]int
		currentID string
	}

	res, err := t.store.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		l := listing{taskCount: map[string]int{}, currentID: db.Meta.CurrentProjectID}
		for _, p := range db.Projects {
			if statusFilter != "" && string(p.Status) != statusFilter {
				continue
			}
			l.projects = append(l.projects, p)
		}
		for _, tk := range db.Tasks {
			l.taskCount[tk.ProjectID]++
		}
		return store.Outcome{Result: l}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	l := res.(listing)
	if len(l.projects) == 0 {
		return mcp.NewToolResultText("No projects tracked yet."), nil
	}

	var b strings.Builder
	b.WriteString("## Projects\n\n")
	for _, p := range l.projects {
		if p.ID == l.currentID {
			b.WriteString("(current) ")
		}
		b.WriteString(formatProject(p, l.taskCount[p.ID]))
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
