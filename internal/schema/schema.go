// Package schema validates single entities against structural, type,
// enum, and length/range rules.
//
// Validation is pure: it never mutates its input and returns a list of
// human-readable violation descriptions keyed by field. Sanitize must
// run before Validate on externally sourced input.
package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cairnmcp/cairn/internal/entity"
)

// Result is the outcome of validating one entity.
type Result struct {
	Valid  bool     `json:"is_valid"`
	Errors []string `json:"errors,omitempty"`
}

// validate is the shared validator instance. Structural rules (required,
// min/max, gte/lte, dive) live as struct tags on the entity types; enum
// membership is checked separately so messages can name the vocabulary.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report violations under the wire field name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateProject checks one project against the schema rules.
func ValidateProject(p entity.Project) Result {
	errs := structErrors(p)
	if !entity.ValidStatus(p.Status) {
		errs = append(errs, fmt.Sprintf("status: %q is not one of: planning, in_progress, blocked, completed, archived", p.Status))
	}
	return toResult(errs)
}

// ValidateTask checks one task against the schema rules.
func ValidateTask(t entity.Task) Result {
	errs := structErrors(t)
	if !entity.ValidPriority(t.Priority) {
		errs = append(errs, fmt.Sprintf("priority: %q is not one of: critical, high, medium, low", t.Priority))
	}
	return toResult(errs)
}

// ValidateMemory checks one memory against the schema rules.
func ValidateMemory(m entity.Memory) Result {
	errs := structErrors(m)
	if !entity.ValidImportance(m.Importance) {
		errs = append(errs, fmt.Sprintf("importance: %q is not one of: critical, high, medium, low", m.Importance))
	}
	return toResult(errs)
}

// ValidateDatabase validates every entity in the collections named by
// changed. Pass entity.ChangedAll for a full pass. The first violation
// list found is returned as an error naming the offending entity.
func ValidateDatabase(db *entity.Database, changed entity.ChangeSet) error {
	if changed.Has(entity.ChangedProjects) {
		for _, p := range db.Projects {
			if res := ValidateProject(p); !res.Valid {
				return fmt.Errorf("project %s: %s", p.ID, strings.Join(res.Errors, "; "))
			}
		}
	}
	if changed.Has(entity.ChangedTasks) {
		for _, t := range db.Tasks {
			if res := ValidateTask(t); !res.Valid {
				return fmt.Errorf("task %s: %s", t.ID, strings.Join(res.Errors, "; "))
			}
		}
	}
	if changed.Has(entity.ChangedMemories) {
		for _, m := range db.Memories {
			if res := ValidateMemory(m); !res.Valid {
				return fmt.Errorf("memory %s: %s", m.ID, strings.Join(res.Errors, "; "))
			}
		}
	}
	return nil
}

// structErrors runs the tag-driven validator and translates each
// violation into a "field: message" line.
func structErrors(v any) []string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, messageFor(fe))
	}
	return out
}

// messageFor renders a single field violation in plain language.
func messageFor(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", field)
	case "min":
		return fmt.Sprintf("%s: must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s: must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s: must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s: must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
	}
}

func toResult(errs []string) Result {
	return Result{Valid: len(errs) == 0, Errors: errs}
}
