package schema

import (
	"strings"
	"unicode"

	"github.com/cairnmcp/cairn/internal/entity"
)

// CleanString strips control characters (newlines and tabs survive) and
// trims surrounding whitespace. Applied to every externally sourced
// string field before validation.
func CleanString(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func cleanStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = CleanString(s)
	}
	return out
}

// SanitizeProject returns a copy of p with all string fields cleaned.
func SanitizeProject(p entity.Project) entity.Project {
	p.Name = CleanString(p.Name)
	p.Description = CleanString(p.Description)
	for i := range p.Milestones {
		p.Milestones[i].Name = CleanString(p.Milestones[i].Name)
	}
	return p
}

// SanitizeTask returns a copy of t with all string fields cleaned.
func SanitizeTask(t entity.Task) entity.Task {
	t.Title = CleanString(t.Title)
	t.Tags = cleanStrings(t.Tags)
	t.Notes = cleanStrings(t.Notes)
	t.Blockers = cleanStrings(t.Blockers)
	return t
}

// SanitizeMemory returns a copy of m with all string fields cleaned.
func SanitizeMemory(m entity.Memory) entity.Memory {
	m.Category = CleanString(m.Category)
	m.Title = CleanString(m.Title)
	m.Content = CleanString(m.Content)
	m.Tags = cleanStrings(m.Tags)
	return m
}
