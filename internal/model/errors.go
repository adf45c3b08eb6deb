package model

import (
	"sort"
	"strings"
)

// FieldErrors maps a field name to its validation messages.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

func (fe FieldErrors) Any() bool {
	return len(fe) > 0
}

// Err returns nil when there are no field errors.
func (fe FieldErrors) Err() error {
	if !fe.Any() {
		return nil
	}
	return &ValidationError{Fields: fe}
}

// ValidationError carries per-field messages for a rejected payload.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "Validation failed: " + strings.Join(parts, "; ")
}
