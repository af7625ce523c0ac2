package store

import (
	"sync"

	"github.com/cairnmcp/cairn/internal/entity"
)

// Limits are the fixed ceilings that bound unconstrained growth. The
// store is unbounded-duration — one process per agent session with no
// eviction — so hard ceilings are the only backstop.
type Limits struct {
	MaxProjects      int
	MaxTasks         int
	MaxMemories      int
	MaxQueuedOps     int
	MaxDatabaseBytes int64
}

// DefaultLimits returns the standard ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxProjects:      1000,
		MaxTasks:         10000,
		MaxMemories:      5000,
		MaxQueuedOps:     100,
		MaxDatabaseBytes: 50 << 20, // 50 MB
	}
}

// Guard checks entity counts and estimated serialized size against the
// ceilings. The byte estimate is a cheap cached heuristic: it is only
// recomputed when the total entity count differs from the count at the
// last estimate, so a ceiling breach through pure content growth is
// caught on the next exact recount rather than immediately.
type Guard struct {
	limits Limits

	mu           sync.Mutex
	lastCount    int
	lastEstimate int64
	haveEstimate bool
}

// NewGuard creates a Guard with the given ceilings.
func NewGuard(limits Limits) *Guard {
	return &Guard{limits: limits}
}

// Check decides pass/fail for the candidate database and current queue
// depth. The first exceeded ceiling is reported; nil means all pass.
func (g *Guard) Check(db *entity.Database, queueDepth int) error {
	if n := len(db.Projects); n > g.limits.MaxProjects {
		return &SizeLimitError{Resource: "project count", Limit: int64(g.limits.MaxProjects), Actual: int64(n)}
	}
	if n := len(db.Tasks); n > g.limits.MaxTasks {
		return &SizeLimitError{Resource: "task count", Limit: int64(g.limits.MaxTasks), Actual: int64(n)}
	}
	if n := len(db.Memories); n > g.limits.MaxMemories {
		return &SizeLimitError{Resource: "memory count", Limit: int64(g.limits.MaxMemories), Actual: int64(n)}
	}
	if queueDepth > g.limits.MaxQueuedOps {
		return &SizeLimitError{Resource: "operation queue", Limit: int64(g.limits.MaxQueuedOps), Actual: int64(queueDepth)}
	}
	if est := g.Estimate(db); est > g.limits.MaxDatabaseBytes {
		return &SizeLimitError{Resource: "database size", Limit: g.limits.MaxDatabaseBytes, Actual: est}
	}
	return nil
}

// Estimate returns the cached serialized-size heuristic for db,
// recomputing when the entity count changed since the last call.
func (g *Guard) Estimate(db *entity.Database) int64 {
	count := len(db.Projects) + len(db.Tasks) + len(db.Memories) + len(db.Templates)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.haveEstimate && count == g.lastCount {
		return g.lastEstimate
	}
	g.lastCount = count
	g.lastEstimate = estimateBytes(db)
	g.haveEstimate = true
	return g.lastEstimate
}

// entityOverhead approximates the per-entity serialization cost of
// field names, punctuation, and fixed-width values.
const entityOverhead = 160

// estimateBytes walks the database summing string content plus a fixed
// per-entity overhead. Cheaper than marshaling and accurate enough for
// a 50 MB ceiling.
func estimateBytes(db *entity.Database) int64 {
	var n int64
	for _, p := range db.Projects {
		n += entityOverhead
		n += int64(len(p.ID) + len(p.Name) + len(p.Description) + len(p.CreatedAt))
		n += stringsLen(p.TaskIDs)
		for _, m := range p.Milestones {
			n += int64(len(m.Name)) + 16
		}
	}
	for _, t := range db.Tasks {
		n += entityOverhead
		n += int64(len(t.ID) + len(t.ProjectID) + len(t.ParentID) + len(t.Title) + len(t.CompletedAt) + len(t.Priority) + len(t.CreatedAt))
		n += stringsLen(t.Tags) + stringsLen(t.SubtaskIDs) + stringsLen(t.Notes) + stringsLen(t.Blockers)
	}
	for _, m := range db.Memories {
		n += entityOverhead
		n += int64(len(m.ID) + len(m.CreatedAt) + len(m.Category) + len(m.Importance) + len(m.Title) + len(m.Content) + len(m.ProjectID) + len(m.TaskID))
		n += stringsLen(m.Tags)
	}
	for name, tpl := range db.Templates {
		n += entityOverhead
		n += int64(len(name) + len(tpl.Name) + len(tpl.Description))
		n += stringsLen(tpl.Sections)
	}
	return n
}

func stringsLen(s []string) int64 {
	var n int64
	for _, v := range s {
		n += int64(len(v)) + 4
	}
	return n
}
