// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations
// and injects them into the tools that depend on them. No business
// logic lives here — only wiring.
package server

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/cairnmcp/cairn/internal/entity"
	"github.com/cairnmcp/cairn/internal/integrity"
	"github.com/cairnmcp/cairn/internal/journal"
	"github.com/cairnmcp/cairn/internal/metrics"
	"github.com/cairnmcp/cairn/internal/persist"
	"github.com/cairnmcp/cairn/internal/store"
	"github.com/cairnmcp/cairn/internal/templates"
	"github.com/cairnmcp/cairn/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DataDirEnv names the environment variable that points persistence
// and the journal at a data directory. When unset or missing, the
// store runs memory-only and the journal lives under ~/.cairn.
const DataDirEnv = "CAIRN_DATA_DIR"

// New creates and configures the MCP server with all tools registered.
// This is the single place where all dependencies are resolved.
//
// The returned cleanup function shuts the store down, writes a final
// snapshot when persistence is engaged, and closes the journal. It is
// always non-nil and safe to call even if parts of init failed.
func New() (*server.MCPServer, func(), error) {
	var persister *persist.Store
	if dir := os.Getenv(DataDirEnv); dir != "" {
		p := persist.New(persist.DefaultConfig(dir))
		if p.Available() {
			persister = p
		}
	}

	initial, err := loadInitial(persister)
	if err != nil {
		return nil, noop, fmt.Errorf("loading database: %w", err)
	}

	// A broken journal never blocks serving.
	jcfg := journal.DefaultConfig()
	if dir := os.Getenv(DataDirEnv); dir != "" {
		jcfg.DataDir = dir
	}
	jnl, err := journal.New(jcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cairn: journal disabled: %v\n", err)
		jnl = nil
	}

	cfg := store.DefaultConfig()
	cfg.OnCommit = func(db *entity.Database, changed entity.ChangeSet) {
		if jnl != nil {
			if err := jnl.RecordCommit(changed.String(), len(db.Projects), len(db.Tasks), len(db.Memories)); err != nil {
				fmt.Fprintf(os.Stderr, "cairn: journaling commit: %v\n", err)
			}
		}
		if persister != nil {
			if err := persister.Save(db); err != nil {
				fmt.Fprintf(os.Stderr, "cairn: saving snapshot: %v\n", err)
			}
		}
	}
	st := store.New(cfg, initial)

	// New session: bump the counter.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := st.Submit(ctx, func(db *entity.Database) (store.Outcome, error) {
		db.Meta.SessionCount++
		return store.Outcome{Commit: true, Changed: entity.ChangedMeta}, nil
	}); err != nil {
		fmt.Fprintf(os.Stderr, "cairn: bumping session counter: %v\n", err)
	}

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, noop, fmt.Errorf("creating template renderer: %w", err)
	}

	s := server.NewMCPServer(
		"cairn",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	projectCreate := tools.NewProjectCreateTool(st)
	s.AddTool(projectCreate.Definition(), projectCreate.Handle)

	projectUpdate := tools.NewProjectUpdateTool(st)
	s.AddTool(projectUpdate.Definition(), projectUpdate.Handle)

	projectList := tools.NewProjectListTool(st)
	s.AddTool(projectList.Definition(), projectList.Handle)

	taskCreate := tools.NewTaskCreateTool(st)
	s.AddTool(taskCreate.Definition(), taskCreate.Handle)

	taskUpdate := tools.NewTaskUpdateTool(st)
	s.AddTool(taskUpdate.Definition(), taskUpdate.Handle)

	taskList := tools.NewTaskListTool(st)
	s.AddTool(taskList.Definition(), taskList.Handle)

	memorySave := tools.NewMemorySaveTool(st)
	s.AddTool(memorySave.Definition(), memorySave.Handle)

	memorySearch := tools.NewMemorySearchTool(st)
	s.AddTool(memorySearch.Definition(), memorySearch.Handle)

	validateTool := tools.NewValidateTool(st, jnl)
	s.AddTool(validateTool.Definition(), validateTool.Handle)

	statsTool := tools.NewStatsTool(st, jnl)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	templateList := tools.NewTemplateListTool(st)
	s.AddTool(templateList.Definition(), templateList.Handle)

	templateGet := tools.NewTemplateGetTool(st)
	s.AddTool(templateGet.Definition(), templateGet.Handle)

	handoff := tools.NewHandoffTool(st, renderer)
	s.AddTool(handoff.Definition(), handoff.Handle)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if persister != nil {
			if db, err := st.LoadDatabase(ctx); err == nil {
				if err := persister.Save(db); err != nil {
					fmt.Fprintf(os.Stderr, "cairn: final snapshot: %v\n", err)
				}
			}
		}
		if err := st.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "cairn: shutdown: %v\n", err)
		}
		if jnl != nil {
			_ = jnl.Close()
		}
	}

	return s, cleanup, nil
}

// loadInitial reads the persisted snapshot when persistence is engaged,
// repairs any inconsistencies it carried, and seeds default templates.
// A nil persister (or a missing snapshot) starts a fresh database.
func loadInitial(persister *persist.Store) (*entity.Database, error) {
	var db *entity.Database
	if persister != nil {
		loaded, err := persister.Load()
		if err != nil {
			return nil, err
		}
		db = loaded
	}
	if db == nil {
		db = entity.NewDatabase()
	}

	// A snapshot written by an older or interrupted process may carry
	// inconsistencies; repair before adoption so commits start clean.
	report := integrity.ValidateAndRepair(db)
	if !report.Valid {
		for _, is := range report.Issues {
			fmt.Fprintf(os.Stderr, "cairn: startup repair: %s -> %s\n", is.Problem, is.Repair)
		}
		metrics.ObserveRepairs(len(report.Issues))
		db = report.Repaired
	}

	if len(db.Templates) == 0 {
		db.Templates = templates.Defaults()
	}
	return db, nil
}

func noop() {}

// serverInstructions returns the usage guidance advertised to clients.
func serverInstructions() string {
	return `Cairn tracks projects, tasks, and contextual memories across a session.

Getting started:
- project_create to start tracking a body of work; it becomes the current project.
- task_create / task_update to break work down and record progress as you go.
- memory_save to capture decisions, gotchas, and discoveries the moment you make them.

Staying healthy:
- db_validate repairs dangling references and contradictory statuses; run it if anything looks off.
- db_stats shows counts, queue depth, and recent activity.
- session_handoff generates a summary for the next session; call it before you finish.

All mutations are transactional: they either fully apply or leave the database untouched, and
errors name the exact field or ceiling involved so you can correct and retry.`
}
