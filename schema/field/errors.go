package field

import (
	"errors"
	"fmt"
	"strings"
)

// TypeMismatchError is returned when a value of an unsupported Go type is
// assigned to a property.
type TypeMismatchError struct {
	Property string   // Property kind, e.g. "Integer"
	Got      string   // Go type of the rejected value
	Accepted []string // Go types the property accepts
}

// Error returns the error string.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cypher: cannot assign a value of type %s to a %s property; valid types are: %s",
		e.Got, e.Property, strings.Join(e.Accepted, ", "))
}

// IsTypeMismatch returns true if the error is a TypeMismatchError.
func IsTypeMismatch(err error) bool {
	if err == nil {
		return false
	}
	var e *TypeMismatchError
	return errors.As(err, &e)
}

// RuleViolationError is returned when a value fails one of the rules
// declared on its property.
type RuleViolationError struct {
	Property string // Property name, empty for unnamed descriptors
	Rule     string // Rule that rejected the value
	Value    any
	Err      error // Optional cause reported by the rule
}

// Error returns the error string.
func (e *RuleViolationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cypher: value %v", e.Value)
	if e.Property != "" {
		fmt.Fprintf(&sb, " of property %q", e.Property)
	}
	fmt.Fprintf(&sb, " does not match the rule %q", e.Rule)
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *RuleViolationError) Unwrap() error {
	return e.Err
}

// IsRuleViolation returns true if the error is a RuleViolationError.
func IsRuleViolation(err error) bool {
	if err == nil {
		return false
	}
	var e *RuleViolationError
	return errors.As(err, &e)
}
