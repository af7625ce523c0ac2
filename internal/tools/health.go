package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cairnmcp/cairn/internal/entity"
	"github.com/cairnmcp/cairn/internal/integrity"
	"github.com/cairnmcp/cairn/internal/journal"
	"github.com/cairnmcp/cairn/internal/metrics"
	"github.com/cairnmcp/cairn/internal/store"
)

// ValidateTool handles the db_validate MCP tool: the explicit
// validate-and-repair call, as opposed to the read-only integrity check
// on the hot commit path.
type ValidateTool struct {
	store   *store.Store
	journal *journal.Journal // may be nil: journaling is best-effort
}

// NewValidateTool creates a ValidateTool.
func NewValidateTool(s *store.Store, j *journal.Journal) *ValidateTool {
	return &ValidateTool{store: s, journal: j}
}

// Definition returns the MCP tool definition for db_validate.
func (t *ValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("db_validate",
		mcp.WithDescription(
			"Check the whole database for referential and workflow inconsistencies and auto-repair them. "+
				"Reports every problem/repair pair. Set adopt=false to only report without applying repairs.",
		),
		mcp.WithBoolean("adopt",
			mcp.Description("Apply the repaired database (default: true)"),
		),
	)
}

// Handle processes the db_validate tool call.
func (t *ValidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	adopt := boolArg(req, "adopt", true)

	res, err := t.store.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		report := integrity.ValidateAndRepair(db)
		if report.Valid || !adopt {
			return store.Outcome{Result: report}, nil
		}
		*db = *report.Repaired
		return store.Outcome{Result: report, Commit: true, Changed: entity.ChangedAll}, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report := res.(integrity.Report)
	if report.Valid {
		return mcp.NewToolResultText("Database is consistent. No repairs needed."), nil
	}

	metrics.ObserveRepairs(len(report.Issues))
	if adopt && t.journal != nil {
		if err := t.journal.RecordRepairs(report.Issues); err != nil {
			fmt.Fprintf(os.Stderr, "cairn: journaling repairs: %v\n", err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Integrity Report — %d issue(s)\n\n", len(report.Issues))
	for _, is := range report.Issues {
		fmt.Fprintf(&b, "- Problem: %s\n  Repair: %s\n", is.Problem, is.Repair)
	}
	if adopt {
		b.WriteString("\nRepairs applied.\n")
	} else {
		b.WriteString("\nRepairs NOT applied (adopt=false).\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── StatsTool ───────────────────────────────────────────────────────────────

// StatsTool handles the db_stats MCP tool.
type StatsTool struct {
	store   *store.Store
	journal *journal.Journal // may be nil
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(s *store.Store, j *journal.Journal) *StatsTool {
	return &StatsTool{store: s, journal: j}
}

// Definition returns the MCP tool definition for db_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("db_stats",
		mcp.WithDescription(
			"Show store health: entity counts, queue depth, estimated size, cache counters, and recent activity.",
		),
	)
}

// Handle processes the db_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("## Store Health\n\n")
	fmt.Fprintf(&b, "- **Projects**: %d\n", stats.Projects)
	fmt.Fprintf(&b, "- **Tasks**: %d\n", stats.Tasks)
	fmt.Fprintf(&b, "- **Memories**: %d\n", stats.Memories)
	fmt.Fprintf(&b, "- **Templates**: %d\n", stats.Templates)
	fmt.Fprintf(&b, "- **Queue depth**: %d\n", stats.QueueDepth)
	fmt.Fprintf(&b, "- **Last updated**: %s\n", stats.LastUpdated)
	fmt.Fprintf(&b, "- **Estimated size**: %d bytes\n", stats.EstimatedBytes)
	fmt.Fprintf(&b, "- **Stats cache**: %d hits / %d misses\n", stats.CacheHits, stats.CacheMisses)
	fmt.Fprintf(&b, "- **Avg op latency**: %.3f ms\n", stats.AvgLatencyMs)

	if t.journal != nil {
		entries, err := t.journal.RecentActivity(10)
		if err == nil && len(entries) > 0 {
			b.WriteString("\n### Recent Activity\n")
			for _, e := range entries {
				fmt.Fprintf(&b, "- %s [%s] %s\n", e.At, e.Kind, e.Detail)
			}
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}
