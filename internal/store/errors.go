// Package store implements the serialized operation scheduler and the
// snapshot-isolation commit protocol around the single live database.
//
// All mutation runs through one FIFO queue drained by a dedicated
// goroutine; each mutation body operates on a deep copy of the live
// database and either commits it atomically (after guard, schema, and
// integrity checks pass) or discards it. The live database reference is
// replaced, never edited in place.
package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrShutdown rejects operations submitted or still queued during
// teardown. Dispatch with errors.Is.
var ErrShutdown = errors.New("store: shut down")

// ValidationError reports a field failing structural, type, range, or
// enum rules. Always recoverable by the caller correcting its input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "store: validation failed: " + e.Reason
}

// SizeLimitError reports a ceiling that would be exceeded by the
// candidate database or the pending queue. Exceeding any ceiling fails
// the whole commit, never a silent partial write.
type SizeLimitError struct {
	Resource string
	Limit    int64
	Actual   int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("store: %s limit exceeded: %d > %d", e.Resource, e.Actual, e.Limit)
}

// IntegrityError reports commit-time referential checks failing. Should
// not occur for well-formed callers — mutation bodies are expected to
// only reference entities they just validated — but guards against
// defects.
type IntegrityError struct {
	Problems []string
}

func (e *IntegrityError) Error() string {
	return "store: integrity check failed: " + strings.Join(e.Problems, "; ")
}
