package schema

import (
	"fmt"
	"strings"
)

// ValidationError reports why a payload was rejected.
type ValidationError struct {
	Resource string
	Reasons  []string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid %s payload: %s", e.Resource, strings.Join(e.Reasons, "; "))
}

// ValidationReasons lists the individual violations.
func (e *ValidationError) ValidationReasons() []string {
	if e == nil {
		return nil
	}
	out := make([]string, len(e.Reasons))
	copy(out, e.Reasons)
	return out
}

// Result is either a parsed value (no reasons) or the reasons it was rejected.
type Result[T any] struct {
	Value    T
	Reasons  []string
	resource string
}

func ok[T any](resource string, value T) Result[T] {
	return Result[T]{Value: value, resource: resource}
}

func invalid[T any](resource string, reasons []string) Result[T] {
	return Result[T]{Reasons: reasons, resource: resource}
}

// OK reports whether the payload passed validation.
func (r Result[T]) OK() bool {
	return len(r.Reasons) == 0
}

// Unwrap returns the value or a *ValidationError.
func (r Result[T]) Unwrap() (T, error) {
	if !r.OK() {
		var zero T
		return zero, &ValidationError{Resource: r.resource, Reasons: r.Reasons}
	}
	return r.Value, nil
}
