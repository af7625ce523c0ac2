package journal

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/cairnmcp/cairn/internal/integrity"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestNew_CreatesSchemaIdempotently(t *testing.T) {
	dir := t.TempDir()

	j, err := New(Config{DataDir: dir})
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Re-opening the same directory must not fail on existing tables.
	j2, err := New(Config{DataDir: dir})
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	defer j2.Close()
}

func TestNew_OpenFailure(t *testing.T) {
	orig := openDB
	openDB = func(driver, dsn string) (*sql.DB, error) {
		return nil, errors.New("boom")
	}
	defer func() { openDB = orig }()

	if _, err := New(Config{DataDir: t.TempDir()}); err == nil {
		t.Fatal("expected open failure to propagate")
	}
}

func TestRecordCommit_AndRecentActivity(t *testing.T) {
	j := newTestJournal(t)

	if err := j.RecordCommit("projects,tasks", 2, 5, 0); err != nil {
		t.Fatalf("RecordCommit: %v", err)
	}
	if err := j.RecordCommit("memories", 2, 5, 1); err != nil {
		t.Fatalf("RecordCommit: %v", err)
	}

	entries, err := j.RecentActivity(10)
	if err != nil {
		t.Fatalf("RecentActivity: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Kind != "commit" {
			t.Errorf("unexpected kind %q", e.Kind)
		}
	}
	// Both rows share a second-resolution timestamp, so just check the
	// rendered details are present.
	var seen []string
	for _, e := range entries {
		seen = append(seen, e.Detail)
	}
	joined := strings.Join(seen, "\n")
	if !strings.Contains(joined, "changed projects,tasks (2p/5t/0m)") {
		t.Errorf("missing rendered commit detail, got %q", joined)
	}
}

func TestRecordRepairs(t *testing.T) {
	j := newTestJournal(t)

	issues := []integrity.Issue{
		{Problem: "task task_1 references missing project \"proj_x\"", Repair: "reassigned to project proj_1"},
		{Problem: "project proj_2 has invalid status \"shipped\"", Repair: "reset status to planning"},
	}
	if err := j.RecordRepairs(issues); err != nil {
		t.Fatalf("RecordRepairs: %v", err)
	}

	entries, err := j.RecentActivity(10)
	if err != nil {
		t.Fatalf("RecentActivity: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 repair entries, got %d", len(entries))
	}
	if entries[0].Kind != "repair" {
		t.Errorf("kind = %q, want repair", entries[0].Kind)
	}
	if !strings.Contains(entries[0].Detail, " -> ") {
		t.Errorf("repair detail should pair problem and fix, got %q", entries[0].Detail)
	}
}

func TestRecordRepairs_EmptyIsNoop(t *testing.T) {
	j := newTestJournal(t)
	if err := j.RecordRepairs(nil); err != nil {
		t.Fatalf("empty RecordRepairs should succeed: %v", err)
	}
	entries, _ := j.RecentActivity(10)
	if len(entries) != 0 {
		t.Errorf("no rows expected, got %d", len(entries))
	}
}

func TestRecentActivity_Limit(t *testing.T) {
	j := newTestJournal(t)
	for i := 0; i < 5; i++ {
		if err := j.RecordCommit("meta", 0, 0, 0); err != nil {
			t.Fatalf("RecordCommit: %v", err)
		}
	}

	entries, err := j.RecentActivity(3)
	if err != nil {
		t.Fatalf("RecentActivity: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("limit not applied, got %d entries", len(entries))
	}

	// Non-positive limit falls back to the default.
	entries, err = j.RecentActivity(0)
	if err != nil {
		t.Fatalf("RecentActivity: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("default limit should return all 5, got %d", len(entries))
	}
}
