// Package entity defines the data model shared by the store, the schema
// validator, the integrity engine, and the persistence layer.
//
// The Database is the single root aggregate: everything reachable from it
// is owned by it. Components never share mutable substructure — they work
// on deep copies produced by Clone.
package entity

import (
	"fmt"
	"time"
)

// timeNow is a package-level variable for testability.
// Tests can replace this to control time in assertions.
var timeNow = time.Now

// Now returns the current UTC time in RFC3339 format, the timestamp
// representation used across the database.
func Now() string {
	return timeNow().UTC().Format(time.RFC3339)
}

// --- Project status enum ---

// ProjectStatus describes where a project sits in its lifecycle.
type ProjectStatus string

const (
	StatusPlanning   ProjectStatus = "planning"
	StatusInProgress ProjectStatus = "in_progress"
	StatusBlocked    ProjectStatus = "blocked"
	StatusCompleted  ProjectStatus = "completed"
	StatusArchived   ProjectStatus = "archived"
)

// validStatuses is the set of allowed project statuses.
var validStatuses = map[ProjectStatus]bool{
	StatusPlanning:   true,
	StatusInProgress: true,
	StatusBlocked:    true,
	StatusCompleted:  true,
	StatusArchived:   true,
}

// ValidStatus reports whether s is a recognized project status.
func ValidStatus(s ProjectStatus) bool { return validStatuses[s] }

// ValidateStatus returns an error if the status is not recognized.
func ValidateStatus(s ProjectStatus) error {
	if !validStatuses[s] {
		return fmt.Errorf("invalid project status %q: must be one of: planning, in_progress, blocked, completed, archived", s)
	}
	return nil
}

// --- Task priority enum ---

// Priority ranks how urgently a task needs attention.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var validPriorities = map[Priority]bool{
	PriorityCritical: true,
	PriorityHigh:     true,
	PriorityMedium:   true,
	PriorityLow:      true,
}

// ValidPriority reports whether p is a recognized task priority.
func ValidPriority(p Priority) bool { return validPriorities[p] }

// --- Memory importance enum ---

// Importance ranks how much a memory matters for future sessions.
// Same vocabulary as Priority but a distinct type: a task's urgency and
// a memory's retention weight are different concerns.
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
	ImportanceLow      Importance = "low"
)

var validImportances = map[Importance]bool{
	ImportanceCritical: true,
	ImportanceHigh:     true,
	ImportanceMedium:   true,
	ImportanceLow:      true,
}

// ValidImportance reports whether i is a recognized memory importance.
func ValidImportance(i Importance) bool { return validImportances[i] }

// --- Core data structures ---

// Meta holds database-level bookkeeping.
type Meta struct {
	Version          string `json:"version" yaml:"version"`
	LastUpdated      string `json:"last_updated" yaml:"last_updated"` // RFC3339
	SessionCount     int    `json:"session_count" yaml:"session_count"`
	CurrentProjectID string `json:"current_project_id,omitempty" yaml:"current_project_id,omitempty"`
}

// Milestone is a named checkpoint inside a project.
type Milestone struct {
	Name      string `json:"name" yaml:"name"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// Project is a unit of work the agent is tracking across a session.
type Project struct {
	ID                   string        `json:"id" yaml:"id"`
	Name                 string        `json:"name" yaml:"name" validate:"required,min=1,max=200"`
	Description          string        `json:"description,omitempty" yaml:"description,omitempty" validate:"max=2000"`
	Status               ProjectStatus `json:"status" yaml:"status"`
	CompletionPercentage int           `json:"completion_percentage" yaml:"completion_percentage" validate:"gte=0,lte=100"`
	CreatedAt            string        `json:"created_at" yaml:"created_at"` // RFC3339
	TaskIDs              []string      `json:"task_ids,omitempty" yaml:"task_ids,omitempty"`
	Milestones           []Milestone   `json:"milestones,omitempty" yaml:"milestones,omitempty"`
}

// Task is a single actionable item belonging to a project.
// ParentID, when set, must reference another task and must not form a
// cycle through parent links.
type Task struct {
	ID          string   `json:"id" yaml:"id"`
	ProjectID   string   `json:"project_id" yaml:"project_id" validate:"required"`
	ParentID    string   `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Title       string   `json:"title" yaml:"title" validate:"required,min=1,max=500"`
	Completed   bool     `json:"completed" yaml:"completed"`
	CompletedAt string   `json:"completed_at,omitempty" yaml:"completed_at,omitempty"` // RFC3339
	Progress    int      `json:"progress" yaml:"progress" validate:"gte=0,lte=100"`
	Priority    Priority `json:"priority" yaml:"priority"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty" validate:"dive,max=100"`
	SubtaskIDs  []string `json:"subtask_ids,omitempty" yaml:"subtask_ids,omitempty"`
	Notes       []string `json:"notes,omitempty" yaml:"notes,omitempty" validate:"dive,max=2000"`
	Blockers    []string `json:"blockers,omitempty" yaml:"blockers,omitempty" validate:"dive,max=2000"`
	CreatedAt   string   `json:"created_at" yaml:"created_at"` // RFC3339
}

// Memory is a contextual note the agent saves for future sessions.
// ProjectID and TaskID are optional anchors; each, when present, must
// resolve to an existing entity.
type Memory struct {
	ID         string     `json:"id" yaml:"id"`
	CreatedAt  string     `json:"created_at" yaml:"created_at"` // RFC3339
	Category   string     `json:"category" yaml:"category" validate:"required,min=1,max=100"`
	Importance Importance `json:"importance" yaml:"importance"`
	Tags       []string   `json:"tags,omitempty" yaml:"tags,omitempty" validate:"dive,max=100"`
	Title      string     `json:"title" yaml:"title" validate:"required,min=1,max=200"`
	Content    string     `json:"content" yaml:"content" validate:"required,min=1,max=5000"`
	ProjectID  string     `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	TaskID     string     `json:"task_id,omitempty" yaml:"task_id,omitempty"`
}

// Template is a name-keyed planning scaffold.
type Template struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Sections    []string `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// Database is the single root aggregate. It is exclusively owned by the
// store; callers only ever see isolated copies.
type Database struct {
	Meta      Meta                `json:"meta" yaml:"meta"`
	Projects  []Project           `json:"projects" yaml:"projects"`
	Tasks     []Task              `json:"tasks" yaml:"tasks"`
	Memories  []Memory            `json:"memories" yaml:"memories"`
	Templates map[string]Template `json:"templates" yaml:"templates"`
}

// SchemaVersion is written into Meta.Version on creation.
const SchemaVersion = "1.0"

// NewDatabase returns an empty database with initialized metadata.
func NewDatabase() *Database {
	return &Database{
		Meta: Meta{
			Version:      SchemaVersion,
			LastUpdated:  Now(),
			SessionCount: 0,
		},
		Projects:  []Project{},
		Tasks:     []Task{},
		Memories:  []Memory{},
		Templates: map[string]Template{},
	}
}

// --- Lookup helpers ---

// ProjectByID returns a pointer to the project with the given id, or nil.
// The pointer aliases the receiver's storage: use only on private copies.
func (db *Database) ProjectByID(id string) *Project {
	for i := range db.Projects {
		if db.Projects[i].ID == id {
			return &db.Projects[i]
		}
	}
	return nil
}

// TaskByID returns a pointer to the task with the given id, or nil.
func (db *Database) TaskByID(id string) *Task {
	for i := range db.Tasks {
		if db.Tasks[i].ID == id {
			return &db.Tasks[i]
		}
	}
	return nil
}

// MemoryByID returns a pointer to the memory with the given id, or nil.
func (db *Database) MemoryByID(id string) *Memory {
	for i := range db.Memories {
		if db.Memories[i].ID == id {
			return &db.Memories[i]
		}
	}
	return nil
}

// TasksForProject returns the tasks whose ProjectID equals id.
func (db *Database) TasksForProject(id string) []Task {
	var out []Task
	for _, t := range db.Tasks {
		if t.ProjectID == id {
			out = append(out, t)
		}
	}
	return out
}

// Touch stamps Meta.LastUpdated with the current time.
func (db *Database) Touch() {
	db.Meta.LastUpdated = Now()
}
