// Package integrity finds and deterministically repairs referential and
// workflow inconsistencies that slip past type-level checks: dangling
// foreign keys, enum drift, and contradictory status combinations.
//
// Repair passes run in a fixed order because later passes assume earlier
// ones already normalized references. The engine never fails — it always
// produces a fully consistent database; callers decide whether to adopt
// the repaired copy.
package integrity

import (
	"fmt"
	"math"

	"github.com/cairnmcp/cairn/internal/entity"
)

// Issue pairs a detected problem with the repair that was applied.
// The list doubles as an audit trail for the health report.
type Issue struct {
	Problem string `json:"problem"`
	Repair  string `json:"repair"`
}

// Report is the outcome of a validate-and-repair run.
// Valid reflects the state of the input: true means no repairs were
// needed and Repaired is semantically identical to the input.
type Report struct {
	Valid    bool             `json:"is_valid"`
	Issues   []Issue          `json:"issues,omitempty"`
	Repaired *entity.Database `json:"-"`
}

// defaultProjectName is given to the project synthesized when orphaned
// tasks exist with nothing to attach them to.
const defaultProjectName = "Recovered Tasks"

// ValidateAndRepair runs every repair pass against a private copy of db
// and returns the repaired copy together with the issue audit trail.
// The input database is never mutated.
func ValidateAndRepair(db *entity.Database) Report {
	r := &repairer{db: db.Clone()}

	r.sweepReferences()
	r.normalizeEnums()
	r.demoteContradictoryProjects()
	r.attachOrphans()
	r.recomputePercentages()

	return Report{
		Valid:    len(r.issues) == 0,
		Issues:   r.issues,
		Repaired: r.db,
	}
}

// Check runs the same detection logic in read-only mode and returns one
// description per violation. Used on the hot commit path, where a
// violation fails the commit instead of being silently repaired.
func Check(db *entity.Database) []string {
	var problems []string

	projectExists := projectSet(db)
	taskExists := taskSet(db)

	for _, t := range db.Tasks {
		if !projectExists[t.ProjectID] {
			problems = append(problems, fmt.Sprintf("task %s references missing project %q", t.ID, t.ProjectID))
		}
		if t.ParentID != "" && !taskExists[t.ParentID] {
			problems = append(problems, fmt.Sprintf("task %s references missing parent %q", t.ID, t.ParentID))
		}
		if !entity.ValidPriority(t.Priority) {
			problems = append(problems, fmt.Sprintf("task %s has invalid priority %q", t.ID, t.Priority))
		}
	}
	for _, id := range cyclicTasks(db) {
		problems = append(problems, fmt.Sprintf("task %s is part of a parent-link cycle", id))
	}

	for _, m := range db.Memories {
		if m.ProjectID != "" && !projectExists[m.ProjectID] {
			problems = append(problems, fmt.Sprintf("memory %s references missing project %q", m.ID, m.ProjectID))
		}
		if m.TaskID != "" && !taskExists[m.TaskID] {
			problems = append(problems, fmt.Sprintf("memory %s references missing task %q", m.ID, m.TaskID))
		}
		if !entity.ValidImportance(m.Importance) {
			problems = append(problems, fmt.Sprintf("memory %s has invalid importance %q", m.ID, m.Importance))
		}
	}

	for _, p := range db.Projects {
		if !entity.ValidStatus(p.Status) {
			problems = append(problems, fmt.Sprintf("project %s has invalid status %q", p.ID, p.Status))
		}
		if p.CompletionPercentage < 0 || p.CompletionPercentage > 100 {
			problems = append(problems, fmt.Sprintf("project %s has completion percentage %d outside [0,100]", p.ID, p.CompletionPercentage))
		}
		if p.Status == entity.StatusCompleted && hasIncompleteTasks(db, p.ID) {
			problems = append(problems, fmt.Sprintf("project %s is marked completed but has incomplete tasks", p.ID))
		}
	}

	return problems
}

// --- repair passes ---

type repairer struct {
	db     *entity.Database
	issues []Issue
}

func (r *repairer) report(problem, repair string) {
	r.issues = append(r.issues, Issue{Problem: problem, Repair: repair})
}

// sweepReferences normalizes every foreign-key-like reference:
// unresolved task.project_id is reattached (synthesizing a default
// project if none exists), unresolved parent links and memory anchors
// are cleared, and parent-link cycles are broken.
func (r *repairer) sweepReferences() {
	db := r.db
	projectExists := projectSet(db)
	taskExists := taskSet(db)

	for i := range db.Tasks {
		t := &db.Tasks[i]
		if !projectExists[t.ProjectID] {
			target := r.ensureFallbackProject(projectExists)
			r.report(
				fmt.Sprintf("task %s references missing project %q", t.ID, t.ProjectID),
				fmt.Sprintf("reassigned to project %s", target),
			)
			t.ProjectID = target
		}
		if t.ParentID != "" && !taskExists[t.ParentID] {
			r.report(
				fmt.Sprintf("task %s references missing parent %q", t.ID, t.ParentID),
				"cleared parent_id",
			)
			t.ParentID = ""
		}
	}

	for _, id := range cyclicTasks(db) {
		t := db.TaskByID(id)
		r.report(
			fmt.Sprintf("task %s is part of a parent-link cycle", id),
			"cleared parent_id to break the cycle",
		)
		t.ParentID = ""
	}

	for i := range db.Memories {
		m := &db.Memories[i]
		if m.ProjectID != "" && !projectExists[m.ProjectID] {
			r.report(
				fmt.Sprintf("memory %s references missing project %q", m.ID, m.ProjectID),
				"cleared project_id",
			)
			m.ProjectID = ""
		}
		if m.TaskID != "" && !taskExists[m.TaskID] {
			r.report(
				fmt.Sprintf("memory %s references missing task %q", m.ID, m.TaskID),
				"cleared task_id",
			)
			m.TaskID = ""
		}
	}
}

// ensureFallbackProject returns the id of the first existing project,
// synthesizing a default project when none exists. The exists set is
// updated so a single synthesized project absorbs every orphan.
func (r *repairer) ensureFallbackProject(exists map[string]bool) string {
	if len(r.db.Projects) > 0 {
		return r.db.Projects[0].ID
	}
	p := entity.Project{
		ID:        entity.NewProjectID(),
		Name:      defaultProjectName,
		Status:    entity.StatusPlanning,
		CreatedAt: entity.Now(),
	}
	r.db.Projects = append(r.db.Projects, p)
	exists[p.ID] = true
	return p.ID
}

// normalizeEnums resets any enum value outside its vocabulary to a safe
// default: planning for project status, medium for priority/importance.
func (r *repairer) normalizeEnums() {
	for i := range r.db.Projects {
		p := &r.db.Projects[i]
		if !entity.ValidStatus(p.Status) {
			r.report(
				fmt.Sprintf("project %s has invalid status %q", p.ID, p.Status),
				"reset status to planning",
			)
			p.Status = entity.StatusPlanning
		}
	}
	for i := range r.db.Tasks {
		t := &r.db.Tasks[i]
		if !entity.ValidPriority(t.Priority) {
			r.report(
				fmt.Sprintf("task %s has invalid priority %q", t.ID, t.Priority),
				"reset priority to medium",
			)
			t.Priority = entity.PriorityMedium
		}
	}
	for i := range r.db.Memories {
		m := &r.db.Memories[i]
		if !entity.ValidImportance(m.Importance) {
			r.report(
				fmt.Sprintf("memory %s has invalid importance %q", m.ID, m.Importance),
				"reset importance to medium",
			)
			m.Importance = entity.ImportanceMedium
		}
	}
}

// demoteContradictoryProjects downgrades projects marked completed while
// they still have incomplete tasks.
func (r *repairer) demoteContradictoryProjects() {
	for i := range r.db.Projects {
		p := &r.db.Projects[i]
		if p.Status == entity.StatusCompleted && hasIncompleteTasks(r.db, p.ID) {
			r.report(
				fmt.Sprintf("project %s is marked completed but has incomplete tasks", p.ID),
				"demoted status to in_progress",
			)
			p.Status = entity.StatusInProgress
		}
	}
}

// attachOrphans handles the zero-projects-but-tasks-exist case. The
// referential sweep already covers it when project ids dangle, but tasks
// may carry an empty project_id that the sweep reassigned against a
// synthesized project — this pass is the backstop for databases where no
// project survived at all.
func (r *repairer) attachOrphans() {
	if len(r.db.Projects) > 0 || len(r.db.Tasks) == 0 {
		return
	}
	exists := projectSet(r.db)
	target := r.ensureFallbackProject(exists)
	for i := range r.db.Tasks {
		t := &r.db.Tasks[i]
		r.report(
			fmt.Sprintf("task %s has no project to belong to", t.ID),
			fmt.Sprintf("attached to synthesized project %s", target),
		)
		t.ProjectID = target
	}
}

// recomputePercentages repairs completion percentages outside [0,100]
// from the project's actual task completion ratio.
func (r *repairer) recomputePercentages() {
	for i := range r.db.Projects {
		p := &r.db.Projects[i]
		if p.CompletionPercentage >= 0 && p.CompletionPercentage <= 100 {
			continue
		}
		total, completed := 0, 0
		for _, t := range r.db.Tasks {
			if t.ProjectID != p.ID {
				continue
			}
			total++
			if t.Completed {
				completed++
			}
		}
		pct := 0
		if total > 0 {
			pct = int(math.Round(100 * float64(completed) / float64(total)))
		}
		r.report(
			fmt.Sprintf("project %s has completion percentage %d outside [0,100]", p.ID, p.CompletionPercentage),
			fmt.Sprintf("recomputed as %d from %d/%d completed tasks", pct, completed, total),
		)
		p.CompletionPercentage = pct
	}
}

// --- shared detection helpers ---

func projectSet(db *entity.Database) map[string]bool {
	out := make(map[string]bool, len(db.Projects))
	for _, p := range db.Projects {
		out[p.ID] = true
	}
	return out
}

func taskSet(db *entity.Database) map[string]bool {
	out := make(map[string]bool, len(db.Tasks))
	for _, t := range db.Tasks {
		out[t.ID] = true
	}
	return out
}

func hasIncompleteTasks(db *entity.Database, projectID string) bool {
	for _, t := range db.Tasks {
		if t.ProjectID == projectID && !t.Completed {
			return true
		}
	}
	return false
}

// cyclicTasks returns the ids of tasks whose parent chain never
// terminates, in database order. Chains through missing parents do not
// count — the referential sweep clears those first.
func cyclicTasks(db *entity.Database) []string {
	exists := taskSet(db)
	parent := make(map[string]string, len(db.Tasks))
	for _, t := range db.Tasks {
		if t.ParentID != "" && exists[t.ParentID] {
			parent[t.ID] = t.ParentID
		}
	}

	var cyclic []string
	for _, t := range db.Tasks {
		seen := map[string]bool{}
		cur := t.ID
		for {
			if seen[cur] {
				cyclic = append(cyclic, t.ID)
				break
			}
			seen[cur] = true
			next, ok := parent[cur]
			if !ok {
				break
			}
			cur = next
		}
	}
	return cyclic
}
