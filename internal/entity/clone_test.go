package entity

import "testing"

func sampleDatabase() *Database {
	db := NewDatabase()
	db.Projects = append(db.Projects, Project{
		ID:      "proj_1",
		Name:    "Sample",
		Status:  StatusInProgress,
		TaskIDs: []string{"task_1"},
		Milestones: []Milestone{
			{Name: "v1", Completed: false},
		},
	})
	db.Tasks = append(db.Tasks, Task{
		ID:         "task_1",
		ProjectID:  "proj_1",
		Title:      "First",
		Priority:   PriorityHigh,
		Tags:       []string{"core"},
		SubtaskIDs: []string{},
		Notes:      []string{"note"},
	})
	db.Memories = append(db.Memories, Memory{
		ID:         "mem_1",
		Title:      "Decision",
		Content:    "chose yaml",
		Importance: ImportanceHigh,
		Tags:       []string{"design"},
	})
	db.Templates = map[string]Template{
		"t": {Name: "t", Sections: []string{"a", "b"}},
	}
	return db
}

func TestClone_Independence(t *testing.T) {
	orig := sampleDatabase()
	cp := orig.Clone()

	// Mutate every mutable substructure of the copy.
	cp.Meta.SessionCount = 99
	cp.Projects[0].Name = "changed"
	cp.Projects[0].TaskIDs[0] = "task_other"
	cp.Projects[0].Milestones[0].Completed = true
	cp.Tasks[0].Tags[0] = "changed"
	cp.Tasks[0].Notes = append(cp.Tasks[0].Notes, "extra")
	cp.Memories[0].Tags[0] = "changed"
	tpl := cp.Templates["t"]
	tpl.Sections[0] = "changed"
	cp.Templates["t"] = tpl

	if orig.Meta.SessionCount == 99 {
		t.Error("meta leaked into the original")
	}
	if orig.Projects[0].Name != "Sample" || orig.Projects[0].TaskIDs[0] != "task_1" {
		t.Error("project substructure leaked into the original")
	}
	if orig.Projects[0].Milestones[0].Completed {
		t.Error("milestone slice is shared")
	}
	if orig.Tasks[0].Tags[0] != "core" || len(orig.Tasks[0].Notes) != 1 {
		t.Error("task substructure leaked into the original")
	}
	if orig.Memories[0].Tags[0] != "design" {
		t.Error("memory tags are shared")
	}
	if orig.Templates["t"].Sections[0] != "a" {
		t.Error("template sections are shared")
	}
}

func TestClone_PreservesNilSlices(t *testing.T) {
	db := NewDatabase()
	db.Tasks = append(db.Tasks, Task{ID: "task_1", Title: "bare"})

	cp := db.Clone()
	if cp.Tasks[0].Tags != nil || cp.Tasks[0].SubtaskIDs != nil {
		t.Error("nil slices should stay nil so serialization is stable")
	}
}

func TestChangeSet(t *testing.T) {
	c := ChangedProjects | ChangedTasks

	if !c.Has(ChangedProjects) || !c.Has(ChangedTasks) {
		t.Error("Has should report set flags")
	}
	if c.Has(ChangedMemories) {
		t.Error("Has should not report unset flags")
	}
	if got := c.String(); got != "projects,tasks" {
		t.Errorf("String() = %q, want %q", got, "projects,tasks")
	}
	if got := ChangeSet(0).String(); got != "none" {
		t.Errorf("empty set String() = %q, want none", got)
	}
	if got := ChangedAll.String(); got != "meta,projects,tasks,memories,templates" {
		t.Errorf("ChangedAll String() = %q", got)
	}
}
