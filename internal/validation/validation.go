// Package validation checks decoded JSON request bodies against explicit
// field schemas before they reach the services. A schema lists the allowed
// keys and a rule per key; rules both check and normalize values.
package validation

import (
	"fmt"
	"sort"
	"strings"
)

// FieldError describes one violated field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violation found in a body, sorted by field.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + " " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Rule validates a non-null value and returns its normalized form.
type Rule func(v any) (any, error)

// Schema describes the accepted keys of a JSON object.
type Schema struct {
	Fields   map[string]Rule
	Required []string
	// Ignored keys are dropped silently, such as columns the server owns.
	Ignored []string
	// Nullable allows explicit null values, which clear a column.
	Nullable bool
}

// Validate checks body and returns the accepted, normalized fields. It never
// stops at the first problem; all violations are reported together.
func (s Schema) Validate(body map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(body))
	var errs []FieldError
	add := func(field, msg string) { errs = append(errs, FieldError{Field: field, Message: msg}) }

	ignored := make(map[string]bool, len(s.Ignored))
	for _, k := range s.Ignored {
		ignored[k] = true
	}
	for key, v := range body {
		if ignored[key] {
			continue
		}
		rule, ok := s.Fields[key]
		if !ok {
			add(key, "is not allowed")
			continue
		}
		if v == nil {
			if !s.Nullable {
				add(key, "must not be null")
				continue
			}
			out[key] = nil
			continue
		}
		norm, err := rule(v)
		if err != nil {
			add(key, err.Error())
			continue
		}
		out[key] = norm
	}
	for _, key := range s.Required {
		if v, ok := body[key]; !ok || (v == nil && s.Nullable) {
			add(key, "is required")
		}
	}
	if len(errs) > 0 {
		sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
		return nil, &ValidationError{Errors: errs}
	}
	return out, nil
}

// Rename maps accepted keys onto storage column names. Keys without an entry
// are kept as they are.
func Rename(fields map[string]any, names map[string]string) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if col, ok := names[k]; ok {
			k = col
		}
		out[k] = v
	}
	return out
}

func errorf(format string, args ...any) error { return fmt.Errorf(format, args...) }
