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

// MemorySaveTool handles the memory_save MCP tool.
type MemorySaveTool struct {
	store *store.Store
}

// NewMemorySaveTool creates a MemorySaveTool.
func NewMemorySaveTool(s *store.Store) *MemorySaveTool {
	return &MemorySaveTool{store: s}
}

// Definition returns the MCP tool definition for memory_save.
func (t *MemorySaveTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_save",
		mcp.WithDescription(
			"Save a contextual note for future sessions. Call this PROACTIVELY after significant work — "+
				"decisions, gotchas, discoveries, constraints. Anchor it to a project or task when relevant.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short, searchable title (1-200 characters)"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The note body (1-5000 characters)"),
		),
		mcp.WithString("category",
			mcp.Description("Category: decision, discovery, gotcha, preference, context (default: context)"),
		),
		mcp.WithString("importance",
			mcp.Description("Importance: critical, high, medium, low (default: medium)"),
		),
		mcp.WithArray("tags",
			mcp.Description("Free-form tags"),
		),
		mcp.WithString("project_id",
			mcp.Description("Project to anchor to"),
		),
		mcp.WithString("task_id",
			mcp.Description("Task to anchor to"),
		),
	)
}

// Handle processes the memory_save tool call.
func (t *MemorySaveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	content := req.GetString("content", "")
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	m := schema.SanitizeMemory(entity.Memory{
		ID:         entity.NewMemoryID(),
		CreatedAt:  entity.Now(),
		Category:   req.GetString("category", "context"),
		Importance: entity.Importance(req.GetString("importance", string(entity.ImportanceMedium))),
		Tags:       stringListArg(req, "tags"),
		Title:      title,
		Content:    content,
		ProjectID:  req.GetString("project_id", ""),
		TaskID:     req.GetString("task_id", ""),
	})
	if vr := schema.ValidateMemory(m); !vr.Valid {
		return mcp.NewToolResultError("validation failed: " + strings.Join(vr.Errors, "; ")), nil
	}

	_, err := t.store.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		if m.ProjectID != "" && db.ProjectByID(m.ProjectID) == nil {
			return store.Outcome{}, fmt.Errorf("project %q not found", m.ProjectID)
		}
		if m.TaskID != "" && db.TaskByID(m.TaskID) == nil {
			return store.Outcome{}, fmt.Errorf("task %q not found", m.TaskID)
		}
		db.Memories = append(db.Memories, m)
		return store.Outcome{Commit: true, Changed: entity.ChangedMemories}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Memory saved: %q (%s/%s)\nID: %s", m.Title, m.Category, m.Importance, m.ID)), nil
}

// ─── MemorySearchTool ────────────────────────────────────────────────────────

// MemorySearchTool handles the memory_search MCP tool.
type MemorySearchTool struct {
	store *store.Store
}

// NewMemorySearchTool creates a MemorySearchTool.
func NewMemorySearchTool(s *store.Store) *MemorySearchTool {
	return &MemorySearchTool{store: s}
}

// Definition returns the MCP tool definition for memory_search.
func (t *MemorySearchTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_search",
		mcp.WithDescription(
			"Search saved memories by substring across title, content, category, and tags. "+
				"An empty query returns the most recent memories.",
		),
		mcp.WithString("query",
			mcp.Description("Case-insensitive substring to match"),
		),
		mcp.WithString("category",
			mcp.Description("Only this category"),
		),
		mcp.WithString("importance",
			mcp.Description("Only this importance"),
		),
		mcp.WithString("project_id",
			mcp.Description("Only memories anchored to this project"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default: 10)"),
		),
	)
}

// Handle processes the memory_search tool call.
func (t *MemorySearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.ToLower(req.GetString("query", ""))
	category := req.GetString("category", "")
	importance := req.GetString("importance", "")
	projectID := req.GetString("project_id", "")
	limit := intArg(req, "limit", 10)
	if limit <= 0 {
		limit = 10
	}

	res, err := t.store.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		var matches []entity.Memory
		// Newest first: memories append in creation order.
		for i := len(db.Memories) - 1; i >= 0 && len(matches) < limit; i-- {
			m := db.Memories[i]
			if category != "" && m.Category != category {
				continue
			}
			if importance != "" && string(m.Importance) != importance {
				continue
			}
			if projectID != "" && m.ProjectID != projectID {
				continue
			}
			if query != "" && !memoryMatches(m, query) {
				continue
			}
			matches = append(matches, m)
		}
		return store.Outcome{Result: matches}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	matches := res.([]entity.Memory)
	if len(matches) == 0 {
		return mcp.NewToolResultText("No matching memories."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Memories (%d)\n\n", len(matches))
	for _, m := range matches {
		b.WriteString(formatMemory(m))
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// memoryMatches reports whether the lowercased query appears in any
// searchable field of m.
func memoryMatches(m entity.Memory, query string) bool {
	if strings.Contains(strings.ToLower(m.Title), query) ||
		strings.Contains(strings.ToLower(m.Content), query) ||
		strings.Contains(strings.ToLower(m.Category), query) {
		return true
	}
	for _, tag := range m.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}
