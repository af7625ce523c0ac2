// Package tools provides the MCP tool handlers over the store.
//
// Each tool follows the same pattern:
// - A struct with dependencies (store, journal, renderer) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Handlers treat every store call as potentially failing and surface
// the error kind and message verbatim — internal faults are not
// translated into generic failures, so the calling agent keeps its
// self-correction signal. Retries, if any, belong to the caller.
package tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cairnmcp/cairn/internal/entity"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// stringListArg extracts a string-array argument. Non-string elements
// are skipped rather than failing the whole call.
func stringListArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// --- markdown rendering helpers ---

func formatProject(p entity.Project, taskCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** (%s)\n", p.Name, p.ID)
	fmt.Fprintf(&b, "- Status: %s, %d%% complete\n", p.Status, p.CompletionPercentage)
	if p.Description != "" {
		fmt.Fprintf(&b, "- %s\n", p.Description)
	}
	fmt.Fprintf(&b, "- Tasks: %d\n", taskCount)
	for _, m := range p.Milestones {
		mark := " "
		if m.Completed {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", mark, m.Name)
	}
	return b.String()
}

func formatTask(t entity.Task) string {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	line := fmt.Sprintf("- [%s] [%s] %s (%d%%, %s)", mark, t.Priority, t.Title, t.Progress, t.ID)
	if len(t.Blockers) > 0 {
		line += fmt.Sprintf("\n  - blocked: %s", strings.Join(t.Blockers, "; "))
	}
	if len(t.Notes) > 0 {
		line += fmt.Sprintf("\n  - notes: %s", strings.Join(t.Notes, "; "))
	}
	return line
}

func formatMemory(m entity.Memory) string {
	line := fmt.Sprintf("- **%s** [%s/%s] %s (%s)", m.Title, m.Category, m.Importance, m.Content, m.ID)
	if len(m.Tags) > 0 {
		line += fmt.Sprintf("\n  - tags: %s", strings.Join(m.Tags, ", "))
	}
	return line
}
