package engine

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports per-field readiness failures on a gated action. The
// Fields map keys are wire field names, values are human-readable reasons.
type ValidationError struct {
	Fields map[string]string
}

func (e ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// missingFieldsError builds a ValidationError from a list of empty or
// unapproved field names.
func missingFieldsError(fields []string, reason string) error {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f] = reason
	}
	return ValidationError{Fields: m}
}

func fieldError(field, reason string) error {
	return ValidationError{Fields: map[string]string{field: reason}}
}

// ConflictError reports an action attempted against the wrong lifecycle state,
// such as advancing a completed package or re-requesting UAT.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string { return e.Reason }

func conflictf(format string, args ...any) error {
	return ConflictError{Reason: fmt.Sprintf(format, args...)}
}
