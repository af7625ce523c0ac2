package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cairnmcp/cairn/internal/entity"
	"github.com/cairnmcp/cairn/internal/store"
)

// TemplateListTool handles the template_list MCP tool.
type TemplateListTool struct {
	store *store.Store
}

// NewTemplateListTool creates a TemplateListTool.
func NewTemplateListTool(s *store.Store) *TemplateListTool {
	return &TemplateListTool{store: s}
}

// Definition returns the MCP tool definition for template_list.
func (t *TemplateListTool) Definition() mcp.Tool {
	return mcp.NewTool("template_list",
		mcp.WithDescription(
			"List the available planning scaffolds.",
		),
	)
}

// Handle processes the template_list tool call.
func (t *TemplateListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.store.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		names := make([]string, 0, len(db.Templates))
		for name := range db.Templates {
			names = append(names, name)
		}
		sort.Strings(names)
		lines := make([]string, 0, len(names))
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("- **%s**: %s", name, db.Templates[name].Description))
		}
		return store.Outcome{Result: lines}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	lines := res.([]string)
	if len(lines) == 0 {
		return mcp.NewToolResultText("No templates available."), nil
	}
	return mcp.NewToolResultText("## Templates\n\n" + strings.Join(lines, "\n")), nil
}

// ─── TemplateGetTool ─────────────────────────────────────────────────────────

// TemplateGetTool handles the template_get MCP tool.
type TemplateGetTool struct {
	store *store.Store
}

// NewTemplateGetTool creates a TemplateGetTool.
func NewTemplateGetTool(s *store.Store) *TemplateGetTool {
	return &TemplateGetTool{store: s}
}

// Definition returns the MCP tool definition for template_get.
func (t *TemplateGetTool) Definition() mcp.Tool {
	return mcp.NewTool("template_get",
		mcp.WithDescription(
			"Show a planning scaffold's sections, ready to fill in.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Template name (see template_list)"),
		),
	)
}

// Handle processes the template_get tool call.
func (t *TemplateGetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	res, err := t.store.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		tpl, ok := db.Templates[name]
		if !ok {
			return store.Outcome{}, fmt.Errorf("template %q not found", name)
		}
		return store.Outcome{Result: tpl}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tpl := res.(entity.Template)
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", tpl.Name, tpl.Description)
	for _, section := range tpl.Sections {
		fmt.Fprintf(&b, "## %s\n\n", section)
	}
	return mcp.NewToolResultText(b.String()), nil
}
