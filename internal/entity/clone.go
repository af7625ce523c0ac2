package entity

// Clone produces a fully independent deep copy of the database.
// No mutable substructure is shared with the receiver, so mutation
// logic operating on the copy cannot corrupt the original even if it
// fails partway through.
func (db *Database) Clone() *Database {
	out := &Database{
		Meta:      db.Meta,
		Projects:  make([]Project, len(db.Projects)),
		Tasks:     make([]Task, len(db.Tasks)),
		Memories:  make([]Memory, len(db.Memories)),
		Templates: make(map[string]Template, len(db.Templates)),
	}

	for i, p := range db.Projects {
		p.TaskIDs = cloneStrings(p.TaskIDs)
		p.Milestones = cloneMilestones(p.Milestones)
		out.Projects[i] = p
	}
	for i, t := range db.Tasks {
		t.Tags = cloneStrings(t.Tags)
		t.SubtaskIDs = cloneStrings(t.SubtaskIDs)
		t.Notes = cloneStrings(t.Notes)
		t.Blockers = cloneStrings(t.Blockers)
		out.Tasks[i] = t
	}
	for i, m := range db.Memories {
		m.Tags = cloneStrings(m.Tags)
		out.Memories[i] = m
	}
	for name, tpl := range db.Templates {
		tpl.Sections = cloneStrings(tpl.Sections)
		out.Templates[name] = tpl
	}

	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneMilestones(m []Milestone) []Milestone {
	if m == nil {
		return nil
	}
	out := make([]Milestone, len(m))
	copy(out, m)
	return out
}
