// Package templates provides the name-keyed planning scaffolds seeded
// into a fresh database and the renderer for session handoff summaries.
package templates

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/cairnmcp/cairn/internal/entity"
)

//go:embed handoff.md.tmpl
var files embed.FS

// Defaults returns the planning scaffolds a fresh database starts with.
func Defaults() map[string]entity.Template {
	return map[string]entity.Template{
		"feature_planning": {
			Name:        "feature_planning",
			Description: "Break a feature down before touching code",
			Sections: []string{
				"Goal — what changes for the user",
				"Approach — how, in two or three sentences",
				"Tasks — smallest shippable steps",
				"Risks — what could force a rethink",
				"Done when — observable completion criteria",
			},
		},
		"bug_investigation": {
			Name:        "bug_investigation",
			Description: "Structure for chasing a defect",
			Sections: []string{
				"Symptom — what is observed, exactly",
				"Reproduction — minimal steps",
				"Hypotheses — ranked, with how to falsify each",
				"Fix — change plus regression test",
			},
		},
		"refactor_plan": {
			Name:        "refactor_plan",
			Description: "Plan a behavior-preserving restructure",
			Sections: []string{
				"Target — what changes, what explicitly does not",
				"Safety net — tests that must stay green",
				"Steps — each independently revertable",
			},
		},
		"session_handoff": {
			Name:        "session_handoff",
			Description: "Hand context to the next session",
			Sections: []string{
				"Active project and status",
				"Open tasks by priority",
				"Blockers",
				"Critical memories",
				"Suggested next step",
			},
		},
	}
}

// HandoffData feeds the session handoff template.
type HandoffData struct {
	GeneratedAt      string
	Project          *entity.Project
	OpenTasks        []entity.Task
	BlockedTasks     []entity.Task
	CriticalMemories []entity.Memory
}

// Renderer renders markdown summaries from the embedded templates.
type Renderer struct {
	handoff *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	t, err := template.New("handoff.md.tmpl").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(files, "handoff.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("templates: parsing: %w", err)
	}
	return &Renderer{handoff: t}, nil
}

// RenderHandoff produces the session handoff summary.
func (r *Renderer) RenderHandoff(data HandoffData) (string, error) {
	var b strings.Builder
	if err := r.handoff.Execute(&b, data); err != nil {
		return "", fmt.Errorf("templates: rendering handoff: %w", err)
	}
	return b.String(), nil
}
