package entity

import "strings"

// ChangeSet is a bit-flag set naming which parts of the database a
// mutation touched. Mutation closures hand it to the commit path so
// validation can focus on what actually changed.
type ChangeSet uint8

const (
	ChangedMeta ChangeSet = 1 << iota
	ChangedProjects
	ChangedTasks
	ChangedMemories
	ChangedTemplates
)

// ChangedAll marks every part of the database as touched.
const ChangedAll = ChangedMeta | ChangedProjects | ChangedTasks | ChangedMemories | ChangedTemplates

// Has reports whether the set includes the given part.
func (c ChangeSet) Has(part ChangeSet) bool {
	return c&part != 0
}

// String renders the set for audit lines and error messages.
func (c ChangeSet) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	if c.Has(ChangedMeta) {
		parts = append(parts, "meta")
	}
	if c.Has(ChangedProjects) {
		parts = append(parts, "projects")
	}
	if c.Has(ChangedTasks) {
		parts = append(parts, "tasks")
	}
	if c.Has(ChangedMemories) {
		parts = append(parts, "memories")
	}
	if c.Has(ChangedTemplates) {
		parts = append(parts, "templates")
	}
	return strings.Join(parts, ",")
}
