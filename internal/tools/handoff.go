package tools

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cairnmcp/cairn/internal/entity"
	"github.com/cairnmcp/cairn/internal/store"
	"github.com/cairnmcp/cairn/internal/templates"
)

// HandoffTool handles the session_handoff MCP tool.
type HandoffTool struct {
	store    *store.Store
	renderer *templates.Renderer
}

// NewHandoffTool creates a HandoffTool.
func NewHandoffTool(s *store.Store, r *templates.Renderer) *HandoffTool {
	return &HandoffTool{store: s, renderer: r}
}

// Definition returns the MCP tool definition for session_handoff.
func (t *HandoffTool) Definition() mcp.Tool {
	return mcp.NewTool("session_handoff",
		mcp.WithDescription(
			"Generate a handoff summary for the next session: active project, open tasks by priority, "+
				"blockers, and critical memories. Call this before ending a session.",
		),
		mcp.WithString("project_id",
			mcp.Description("Project to summarize (default: the current project)"),
		),
	)
}

// Handle processes the session_handoff tool call.
func (t *HandoffTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")

	res, err := t.store.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		if projectID == "" {
			projectID = db.Meta.CurrentProjectID
		}
		data := templates.HandoffData{GeneratedAt: entity.Now()}

		if p := db.ProjectByID(projectID); p != nil {
			project := *p
			data.Project = &project
			for _, tk := range db.TasksForProject(projectID) {
				if tk.Completed {
					continue
				}
				data.OpenTasks = append(data.OpenTasks, tk)
				if len(tk.Blockers) > 0 {
					data.BlockedTasks = append(data.BlockedTasks, tk)
				}
			}
			sortByPriority(data.OpenTasks)
		}

		for i := len(db.Memories) - 1; i >= 0; i-- {
			m := db.Memories[i]
			if m.Importance != entity.ImportanceCritical {
				continue
			}
			if projectID != "" && m.ProjectID != "" && m.ProjectID != projectID {
				continue
			}
			data.CriticalMemories = append(data.CriticalMemories, m)
		}

		return store.Outcome{Result: data}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary, err := t.renderer.RenderHandoff(res.(templates.HandoffData))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(summary), nil
}

// priorityRank orders critical before high before medium before low.
var priorityRank = map[entity.Priority]int{
	entity.PriorityCritical: 0,
	entity.PriorityHigh:     1,
	entity.PriorityMedium:   2,
	entity.PriorityLow:      3,
}

func sortByPriority(tasks []entity.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return priorityRank[tasks[i].Priority] < priorityRank[tasks[j].Priority]
	})
}
