package cypher

import (
	"errors"
	"fmt"

	"github.com/syssam/cypher/schema/field"
)

// ErrAlreadyExecuted is returned when a query builder is executed twice.
var ErrAlreadyExecuted = errors.New("cypher: query already executed")

type (
	// TypeMismatchError is returned when a value of the wrong Go type is
	// assigned to a property.
	TypeMismatchError = field.TypeMismatchError
	// RuleViolationError is returned when a value fails a declared rule.
	RuleViolationError = field.RuleViolationError
)

// IsTypeMismatch returns true if the error is a TypeMismatchError.
func IsTypeMismatch(err error) bool { return field.IsTypeMismatch(err) }

// IsRuleViolation returns true if the error is a RuleViolationError.
func IsRuleViolation(err error) bool { return field.IsRuleViolation(err) }

// SchemaError represents an invalid schema declaration or an operation
// that does not fit the declared schema.
type SchemaError struct {
	Schema   string // Schema label
	Property string // Optional property name
	Msg      string
	Err      error // Optional underlying error
}

// Error returns the error string.
func (e *SchemaError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Property != "" {
		return fmt.Sprintf("cypher: schema %s: property %q: %s", e.Schema, e.Property, msg)
	}
	return fmt.Sprintf("cypher: schema %s: %s", e.Schema, msg)
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Err
}

// NewSchemaError returns a new SchemaError.
func NewSchemaError(schema, property, msg string) *SchemaError {
	return &SchemaError{Schema: schema, Property: property, Msg: msg}
}

// IsSchemaError returns true if the error is a SchemaError.
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}
	var e *SchemaError
	return errors.As(err, &e)
}

// MissingPropertyError is returned when a required property resolves to
// no value and has no default.
type MissingPropertyError struct {
	Schema   string
	Property string
}

// Error returns the error string.
func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("cypher: cannot initialize a %s without %q", e.Schema, e.Property)
}

// NewMissingPropertyError returns a new MissingPropertyError.
func NewMissingPropertyError(schema, property string) *MissingPropertyError {
	return &MissingPropertyError{Schema: schema, Property: property}
}

// IsMissingProperty returns true if the error is a MissingPropertyError.
func IsMissingProperty(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingPropertyError
	return errors.As(err, &e)
}

// PatternStateError is returned when a builder method is called in a state
// that does not allow it, e.g. two consecutive edges.
type PatternStateError struct {
	Op    string // Builder method
	State string // Builder state at the time of the call
	Msg   string // Optional detail
}

// Error returns the error string.
func (e *PatternStateError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("cypher: %s not allowed in state %s: %s", e.Op, e.State, e.Msg)
	}
	return fmt.Sprintf("cypher: %s not allowed in state %s", e.Op, e.State)
}

// NewPatternStateError returns a new PatternStateError.
func NewPatternStateError(op, state, msg string) *PatternStateError {
	return &PatternStateError{Op: op, State: state, Msg: msg}
}

// IsPatternState returns true if the error is a PatternStateError.
func IsPatternState(err error) bool {
	if err == nil {
		return false
	}
	var e *PatternStateError
	return errors.As(err, &e)
}

// UnboundVariableError is returned when a query references a variable the
// pattern never bound.
type UnboundVariableError struct {
	Variable string
	Op       string // Clause referencing the variable, e.g. "delete"
}

// Error returns the error string.
func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("cypher: %s references unbound variable %q", e.Op, e.Variable)
}

// NewUnboundVariableError returns a new UnboundVariableError.
func NewUnboundVariableError(op, variable string) *UnboundVariableError {
	return &UnboundVariableError{Op: op, Variable: variable}
}

// IsUnboundVariable returns true if the error is an UnboundVariableError.
func IsUnboundVariable(err error) bool {
	if err == nil {
		return false
	}
	var e *UnboundVariableError
	return errors.As(err, &e)
}

// AlreadyExecutedError is returned when Result is called more than once on
// the same builder.
type AlreadyExecutedError struct{}

// Error returns the error string.
func (AlreadyExecutedError) Error() string {
	return ErrAlreadyExecuted.Error()
}

// Is reports whether the target error matches AlreadyExecutedError.
// This allows errors.Is(err, ErrAlreadyExecuted) to return true.
func (AlreadyExecutedError) Is(err error) bool {
	return err == ErrAlreadyExecuted
}

// IsAlreadyExecuted returns true if the error is an AlreadyExecutedError.
func IsAlreadyExecuted(err error) bool {
	return errors.Is(err, ErrAlreadyExecuted)
}
