package work

import (
	"fmt"
	"strings"
)

// Violation describes a single failed validation rule
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationError reports every invariant violated during construction or
// assignment. It is always raised locally, before any backend call.
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return fmt.Sprintf("invalid work: %s", strings.Join(msgs, "; "))
}

// Fields returns the names of the violated fields
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

func (e *ValidationError) add(field, format string, args ...interface{}) {
	e.Violations = append(e.Violations, Violation{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// orNil returns the error, or nil when no violation was recorded
func (e *ValidationError) orNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
