package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cairnmcp/cairn/internal/entity"
	"github.com/cairnmcp/cairn/internal/store"
	"github.com/cairnmcp/cairn/internal/templates"
)

// --- Test helpers ---

// newTestStore spins up an in-memory store seeded with the default
// templates and registers its shutdown with the test.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db := entity.NewDatabase()
	db.Templates = templates.Defaults()
	s := store.New(store.DefaultConfig(), db)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

// makeReq builds a tool call request with the given arguments.
func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// createProject runs project_create and returns the new project's ID.
func createProject(t *testing.T, s *store.Store, name string) string {
	t.Helper()
	result, err := NewProjectCreateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"name": name,
	}))
	if err != nil {
		t.Fatalf("project_create: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("project_create failed: %s", getResultText(result))
	}
	return extractID(t, getResultText(result))
}

// createTask runs task_create against the current project.
func createTask(t *testing.T, s *store.Store, title string, extra map[string]any) string {
	t.Helper()
	args := map[string]any{"title": title}
	for k, v := range extra {
		args[k] = v
	}
	result, err := NewTaskCreateTool(s).Handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("task_create: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("task_create failed: %s", getResultText(result))
	}
	return extractID(t, getResultText(result))
}

// extractID pulls the "ID: xxx" line out of a tool result.
func extractID(t *testing.T, text string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if rest, ok := strings.CutPrefix(line, "ID: "); ok {
			return rest
		}
	}
	t.Fatalf("no ID line in result: %s", text)
	return ""
}

// --- ProjectCreateTool ---

func TestProjectCreateTool_BecomesCurrent(t *testing.T) {
	s := newTestStore(t)
	id := createProject(t, s, "First Project")

	db, err := s.LoadDatabase(context.Background())
	if err != nil {
		t.Fatalf("LoadDatabase: %v", err)
	}
	if db.Meta.CurrentProjectID != id {
		t.Errorf("new project should become current, got %q", db.Meta.CurrentProjectID)
	}
	if db.Projects[0].Status != entity.StatusPlanning {
		t.Errorf("new project should start in planning, got %q", db.Projects[0].Status)
	}
}

func TestProjectCreateTool_SetCurrentFalse(t *testing.T) {
	s := newTestStore(t)
	first := createProject(t, s, "Main")

	result, err := NewProjectCreateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"name":        "Side Quest",
		"set_current": false,
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("project_create: %v / %s", err, getResultText(result))
	}

	db, _ := s.LoadDatabase(context.Background())
	if db.Meta.CurrentProjectID != first {
		t.Errorf("current project should stay %q, got %q", first, db.Meta.CurrentProjectID)
	}
}

func TestProjectCreateTool_MissingName(t *testing.T) {
	s := newTestStore(t)
	result, err := NewProjectCreateTool(s).Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !isErrorResult(result) {
		t.Error("missing name should be a tool error")
	}
}

func TestProjectCreateTool_SanitizesInput(t *testing.T) {
	s := newTestStore(t)
	result, err := NewProjectCreateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"name": "  Trimmed\x00 Name  ",
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("project_create: %v / %s", err, getResultText(result))
	}

	db, _ := s.LoadDatabase(context.Background())
	if db.Projects[0].Name != "Trimmed Name" {
		t.Errorf("name should be sanitized, got %q", db.Projects[0].Name)
	}
}

func TestProjectCreateTool_RejectsOverlongName(t *testing.T) {
	s := newTestStore(t)
	result, err := NewProjectCreateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"name": strings.Repeat("x", 300),
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "name") {
		t.Errorf("overlong name should fail naming the field, got: %s", getResultText(result))
	}

	db, _ := s.LoadDatabase(context.Background())
	if len(db.Projects) != 0 {
		t.Error("rejected project must not be stored")
	}
}

// --- ProjectUpdateTool ---

func TestProjectUpdateTool_DefaultsToCurrent(t *testing.T) {
	s := newTestStore(t)
	createProject(t, s, "Renamable")

	result, err := NewProjectUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"status": "in_progress",
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("project_update: %v / %s", err, getResultText(result))
	}

	db, _ := s.LoadDatabase(context.Background())
	if db.Projects[0].Status != entity.StatusInProgress {
		t.Errorf("status not updated: %q", db.Projects[0].Status)
	}
}

func TestProjectUpdateTool_CompletedBlockedByOpenTasks(t *testing.T) {
	s := newTestStore(t)
	createProject(t, s, "Busy")
	createTask(t, s, "still open", nil)

	result, err := NewProjectUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"status": "completed",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("completing a project with open tasks should fail")
	}
	if !strings.Contains(getResultText(result), "incomplete tasks") {
		t.Errorf("error should explain the contradiction: %s", getResultText(result))
	}

	db, _ := s.LoadDatabase(context.Background())
	if db.Projects[0].Status == entity.StatusCompleted {
		t.Error("failed update must not stick")
	}
}

func TestProjectUpdateTool_Milestones(t *testing.T) {
	s := newTestStore(t)
	createProject(t, s, "Miles")

	result, err := NewProjectUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"add_milestone": "v1 shipped",
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("add_milestone: %v / %s", err, getResultText(result))
	}

	result, err = NewProjectUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"complete_milestone": "v1 shipped",
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("complete_milestone: %v / %s", err, getResultText(result))
	}

	db, _ := s.LoadDatabase(context.Background())
	ms := db.Projects[0].Milestones
	if len(ms) != 1 || !ms[0].Completed {
		t.Errorf("milestone should exist and be completed: %+v", ms)
	}

	result, _ = NewProjectUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"complete_milestone": "no such milestone",
	}))
	if !isErrorResult(result) {
		t.Error("completing an unknown milestone should fail")
	}
}

func TestProjectUpdateTool_UnknownProject(t *testing.T) {
	s := newTestStore(t)
	result, err := NewProjectUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"id":   "proj_nope",
		"name": "x",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "not found") {
		t.Errorf("unknown project should fail, got: %s", getResultText(result))
	}
}

// --- ProjectListTool ---

func TestProjectListTool(t *testing.T) {
	s := newTestStore(t)

	result, err := NewProjectListTool(s).Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(getResultText(result), "No projects") {
		t.Errorf("empty store should say so: %s", getResultText(result))
	}

	createProject(t, s, "Alpha")
	createProject(t, s, "Beta")

	result, err = NewProjectListTool(s).Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("project_list: %v / %s", err, getResultText(result))
	}
	text := getResultText(result)
	if !strings.Contains(text, "Alpha") || !strings.Contains(text, "Beta") {
		t.Errorf("both projects should be listed:\n%s", text)
	}
	if !strings.Contains(text, "(current) **Beta**") {
		t.Errorf("current project should be marked:\n%s", text)
	}

	// Status filter.
	result, _ = NewProjectListTool(s).Handle(context.Background(), makeReq(map[string]any{
		"status": "completed",
	}))
	if !strings.Contains(getResultText(result), "No projects") {
		t.Errorf("filter should exclude everything:\n%s", getResultText(result))
	}
}

// --- TaskCreateTool ---

func TestTaskCreateTool_AttachesToCurrentProject(t *testing.T) {
	s := newTestStore(t)
	projID := createProject(t, s, "Host")
	taskID := createTask(t, s, "Do the thing", map[string]any{"priority": "high"})

	db, _ := s.LoadDatabase(context.Background())
	tk := db.TaskByID(taskID)
	if tk == nil {
		t.Fatal("task not stored")
	}
	if tk.ProjectID != projID {
		t.Errorf("task should attach to the current project, got %q", tk.ProjectID)
	}
	if tk.Priority != entity.PriorityHigh {
		t.Errorf("priority not applied: %q", tk.Priority)
	}
	if len(db.Projects[0].TaskIDs) != 1 || db.Projects[0].TaskIDs[0] != taskID {
		t.Errorf("project should index the task: %v", db.Projects[0].TaskIDs)
	}
}

func TestTaskCreateTool_Subtasks(t *testing.T) {
	s := newTestStore(t)
	createProject(t, s, "Host")
	parentID := createTask(t, s, "Parent", nil)
	childID := createTask(t, s, "Child", map[string]any{"parent_id": parentID})

	db, _ := s.LoadDatabase(context.Background())
	parent := db.TaskByID(parentID)
	if len(parent.SubtaskIDs) != 1 || parent.SubtaskIDs[0] != childID {
		t.Errorf("parent should index the subtask: %v", parent.SubtaskIDs)
	}
	if db.TaskByID(childID).ParentID != parentID {
		t.Error("child should reference the parent")
	}
}

func TestTaskCreateTool_UnknownParent(t *testing.T) {
	s := newTestStore(t)
	createProject(t, s, "Host")

	result, err := NewTaskCreateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"title":     "orphan child",
		"parent_id": "task_missing",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !isErrorResult(result) {
		t.Error("unknown parent should fail")
	}
	db, _ := s.LoadDatabase(context.Background())
	if len(db.Tasks) != 0 {
		t.Error("failed create must not leave a task behind")
	}
}

func TestTaskCreateTool_NoProjectAnywhere(t *testing.T) {
	s := newTestStore(t)
	result, err := NewTaskCreateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"title": "floating",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !isErrorResult(result) {
		t.Error("task without any project should fail")
	}
}

// --- TaskUpdateTool ---

func TestTaskUpdateTool_CompleteStampsAndRecomputes(t *testing.T) {
	s := newTestStore(t)
	createProject(t, s, "Host")
	a := createTask(t, s, "a", nil)
	createTask(t, s, "b", nil)
	createTask(t, s, "c", nil)

	result, err := NewTaskUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"id":        a,
		"completed": true,
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("task_update: %v / %s", err, getResultText(result))
	}

	db, _ := s.LoadDatabase(context.Background())
	tk := db.TaskByID(a)
	if !tk.Completed || tk.CompletedAt == "" || tk.Progress != 100 {
		t.Errorf("completion should stamp time and progress: %+v", tk)
	}
	if got := db.Projects[0].CompletionPercentage; got != 33 {
		t.Errorf("1/3 completed should round to 33, got %d", got)
	}

	// Reopen clears the stamp.
	_, _ = NewTaskUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"id":        a,
		"completed": false,
	}))
	db, _ = s.LoadDatabase(context.Background())
	tk = db.TaskByID(a)
	if tk.Completed || tk.CompletedAt != "" {
		t.Errorf("reopening should clear completion: %+v", tk)
	}
	if db.Projects[0].CompletionPercentage != 0 {
		t.Errorf("percentage should drop back to 0, got %d", db.Projects[0].CompletionPercentage)
	}
}

func TestTaskUpdateTool_ProgressAndBlockers(t *testing.T) {
	s := newTestStore(t)
	createProject(t, s, "Host")
	id := createTask(t, s, "tracked", nil)

	_, _ = NewTaskUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"id":          id,
		"progress":    float64(60),
		"add_blocker": "waiting on review",
		"add_note":    "draft pushed",
	}))

	db, _ := s.LoadDatabase(context.Background())
	tk := db.TaskByID(id)
	if tk.Progress != 60 {
		t.Errorf("progress not applied: %d", tk.Progress)
	}
	if len(tk.Blockers) != 1 || len(tk.Notes) != 1 {
		t.Errorf("blocker/note not appended: %+v", tk)
	}

	_, _ = NewTaskUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"id":             id,
		"clear_blockers": true,
	}))
	db, _ = s.LoadDatabase(context.Background())
	if len(db.TaskByID(id).Blockers) != 0 {
		t.Error("clear_blockers should empty the list")
	}
}

func TestTaskUpdateTool_InvalidProgressRejected(t *testing.T) {
	s := newTestStore(t)
	createProject(t, s, "Host")
	id := createTask(t, s, "tracked", nil)

	result, err := NewTaskUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"id":       id,
		"progress": float64(150),
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("progress over 100 should fail")
	}
	db, _ := s.LoadDatabase(context.Background())
	if db.TaskByID(id).Progress != 0 {
		t.Error("rejected update must not stick")
	}
}

// --- TaskListTool ---

func TestTaskListTool_GroupsByPriorityAndHidesCompleted(t *testing.T) {
	s := newTestStore(t)
	createProject(t, s, "Host")
	createTask(t, s, "low one", map[string]any{"priority": "low"})
	createTask(t, s, "critical one", map[string]any{"priority": "critical"})
	done := createTask(t, s, "finished", nil)
	_, _ = NewTaskUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"id": done, "completed": true,
	}))

	result, err := NewTaskListTool(s).Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("task_list: %v / %s", err, getResultText(result))
	}
	text := getResultText(result)
	if strings.Contains(text, "finished") {
		t.Error("completed tasks hidden by default")
	}
	if strings.Index(text, "critical one") > strings.Index(text, "low one") {
		t.Error("critical tasks should list before low ones")
	}

	result, _ = NewTaskListTool(s).Handle(context.Background(), makeReq(map[string]any{
		"include_completed": true,
	}))
	if !strings.Contains(getResultText(result), "finished") {
		t.Error("include_completed should show completed tasks")
	}
}

// --- Memory tools ---

func TestMemorySaveTool_AndSearch(t *testing.T) {
	s := newTestStore(t)
	projID := createProject(t, s, "Anchored")

	result, err := NewMemorySaveTool(s).Handle(context.Background(), makeReq(map[string]any{
		"title":      "Chose YAML for snapshots",
		"content":    "Readable diffs matter more than speed here.",
		"category":   "decision",
		"importance": "high",
		"tags":       []any{"persistence", "format"},
		"project_id": projID,
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("memory_save: %v / %s", err, getResultText(result))
	}

	// Substring match against content.
	result, err = NewMemorySearchTool(s).Handle(context.Background(), makeReq(map[string]any{
		"query": "readable diffs",
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("memory_search: %v / %s", err, getResultText(result))
	}
	if !strings.Contains(getResultText(result), "Chose YAML") {
		t.Errorf("search should find the memory:\n%s", getResultText(result))
	}

	// Tag match.
	result, _ = NewMemorySearchTool(s).Handle(context.Background(), makeReq(map[string]any{
		"query": "persistence",
	}))
	if !strings.Contains(getResultText(result), "Chose YAML") {
		t.Error("search should match tags")
	}

	// Miss.
	result, _ = NewMemorySearchTool(s).Handle(context.Background(), makeReq(map[string]any{
		"query": "nothing like this",
	}))
	if !strings.Contains(getResultText(result), "No matching memories") {
		t.Errorf("miss should say so:\n%s", getResultText(result))
	}
}

func TestMemorySaveTool_DanglingAnchorRejected(t *testing.T) {
	s := newTestStore(t)

	result, err := NewMemorySaveTool(s).Handle(context.Background(), makeReq(map[string]any{
		"title":      "orphan",
		"content":    "anchored to nothing",
		"project_id": "proj_missing",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("dangling anchor should fail")
	}
	db, _ := s.LoadDatabase(context.Background())
	if len(db.Memories) != 0 {
		t.Error("rejected memory must not be stored")
	}
}

func TestMemorySearchTool_NewestFirstWithLimit(t *testing.T) {
	s := newTestStore(t)
	for _, title := range []string{"first note", "second note", "third note"} {
		result, err := NewMemorySaveTool(s).Handle(context.Background(), makeReq(map[string]any{
			"title":   title,
			"content": "shared body",
		}))
		if err != nil || isErrorResult(result) {
			t.Fatalf("memory_save: %v / %s", err, getResultText(result))
		}
	}

	result, _ := NewMemorySearchTool(s).Handle(context.Background(), makeReq(map[string]any{
		"query": "shared body",
		"limit": float64(2),
	}))
	text := getResultText(result)
	if !strings.Contains(text, "third note") || !strings.Contains(text, "second note") {
		t.Errorf("newest two expected:\n%s", text)
	}
	if strings.Contains(text, "first note") {
		t.Errorf("limit should drop the oldest:\n%s", text)
	}
}

// --- ValidateTool ---

func TestValidateTool_CleanDatabase(t *testing.T) {
	s := newTestStore(t)
	createProject(t, s, "Fine")

	result, err := NewValidateTool(s, nil).Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("db_validate: %v / %s", err, getResultText(result))
	}
	if !strings.Contains(getResultText(result), "consistent") {
		t.Errorf("clean database should report consistent:\n%s", getResultText(result))
	}
}

func TestValidateTool_RepairsAndAdopts(t *testing.T) {
	// The commit path rejects inconsistencies, so build the store
	// directly around a corrupted database: the constructor adopts its
	// initial state without validating.
	seed := entity.NewDatabase()
	seed.Templates = templates.Defaults()
	seed.Projects = append(seed.Projects, entity.Project{
		ID: "proj_1", Name: "Host", Status: "bogus-status", CreatedAt: entity.Now(),
	})
	s := store.New(store.DefaultConfig(), seed)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	result, err := NewValidateTool(s, nil).Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("db_validate: %v / %s", err, getResultText(result))
	}
	text := getResultText(result)
	if !strings.Contains(text, "issue(s)") || !strings.Contains(text, "Repairs applied") {
		t.Errorf("repair report expected:\n%s", text)
	}

	after, _ := s.LoadDatabase(context.Background())
	if after.Projects[0].Status != entity.StatusPlanning {
		t.Errorf("repair should be adopted, status = %q", after.Projects[0].Status)
	}
}

func TestValidateTool_ReportOnly(t *testing.T) {
	seed := entity.NewDatabase()
	seed.Projects = append(seed.Projects, entity.Project{
		ID: "proj_1", Name: "Host", Status: "bogus-status", CreatedAt: entity.Now(),
	})
	s := store.New(store.DefaultConfig(), seed)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	result, err := NewValidateTool(s, nil).Handle(context.Background(), makeReq(map[string]any{
		"adopt": false,
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("db_validate: %v / %s", err, getResultText(result))
	}
	if !strings.Contains(getResultText(result), "NOT applied") {
		t.Errorf("report-only mode should say so:\n%s", getResultText(result))
	}

	after, _ := s.LoadDatabase(context.Background())
	if after.Projects[0].Status != "bogus-status" {
		t.Error("adopt=false must leave the database untouched")
	}
}

// --- StatsTool ---

func TestStatsTool(t *testing.T) {
	s := newTestStore(t)
	createProject(t, s, "Counted")
	createTask(t, s, "one", nil)

	result, err := NewStatsTool(s, nil).Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("db_stats: %v / %s", err, getResultText(result))
	}
	text := getResultText(result)
	for _, want := range []string{"**Projects**: 1", "**Tasks**: 1", "**Templates**: 4", "Estimated size"} {
		if !strings.Contains(text, want) {
			t.Errorf("stats missing %q:\n%s", want, text)
		}
	}
}

// --- Template tools ---

func TestTemplateTools(t *testing.T) {
	s := newTestStore(t)

	result, err := NewTemplateListTool(s).Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("template_list: %v / %s", err, getResultText(result))
	}
	text := getResultText(result)
	for _, name := range []string{"feature_planning", "bug_investigation", "refactor_plan", "session_handoff"} {
		if !strings.Contains(text, name) {
			t.Errorf("template_list missing %q:\n%s", name, text)
		}
	}

	result, err = NewTemplateGetTool(s).Handle(context.Background(), makeReq(map[string]any{
		"name": "bug_investigation",
	}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("template_get: %v / %s", err, getResultText(result))
	}
	if !strings.Contains(getResultText(result), "Reproduction") {
		t.Errorf("template sections expected:\n%s", getResultText(result))
	}

	result, _ = NewTemplateGetTool(s).Handle(context.Background(), makeReq(map[string]any{
		"name": "nonexistent",
	}))
	if !isErrorResult(result) {
		t.Error("unknown template should fail")
	}
}

// --- HandoffTool ---

func TestHandoffTool(t *testing.T) {
	s := newTestStore(t)
	renderer, err := templates.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	createProject(t, s, "Wrap Up")
	blocked := createTask(t, s, "deploy", map[string]any{"priority": "critical"})
	_, _ = NewTaskUpdateTool(s).Handle(context.Background(), makeReq(map[string]any{
		"id": blocked, "add_blocker": "missing credentials",
	}))
	createTask(t, s, "cleanup", map[string]any{"priority": "low"})
	_, _ = NewMemorySaveTool(s).Handle(context.Background(), makeReq(map[string]any{
		"title": "Key insight", "content": "Cache invalidation was the bug.", "importance": "critical",
	}))

	result, err := NewHandoffTool(s, renderer).Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("session_handoff: %v / %s", err, getResultText(result))
	}
	text := getResultText(result)
	for _, want := range []string{
		"# Session Handoff",
		"**Wrap Up**",
		"deploy",
		"missing credentials",
		"Key insight",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("handoff missing %q:\n%s", want, text)
		}
	}
	// Priority ordering within open tasks.
	if strings.Index(text, "deploy") > strings.Index(text, "cleanup") {
		t.Error("critical task should list before low task")
	}
}

func TestHandoffTool_EmptyStore(t *testing.T) {
	s := newTestStore(t)
	renderer, _ := templates.NewRenderer()

	result, err := NewHandoffTool(s, renderer).Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil || isErrorResult(result) {
		t.Fatalf("session_handoff: %v / %s", err, getResultText(result))
	}
	if !strings.Contains(getResultText(result), "No active project.") {
		t.Errorf("empty handoff should render fallbacks:\n%s", getResultText(result))
	}
}
