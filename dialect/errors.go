package dialect

import (
	"errors"
	"strings"
)

// errorCoder is an interface for backend errors that provide error codes.
type errorCoder interface {
	Code() string
}

// sqlStateError is an interface for errors that provide SQLSTATE codes.
// Implemented by: pq.Error, pgx.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23), raised by
// Apache AGE through unique indexes on label tables.
const (
	pgNotNullViolation = "23502"
	pgUniqueViolation  = "23505"
	pgCheckViolation   = "23514"
)

// Neo4j status code of schema constraint violations.
const neo4jConstraintViolation = "Neo.ClientError.Schema.ConstraintValidationFailed"

// IsConstraintError reports if the error resulted from a backend constraint
// violation. The error is classified, never translated: callers still get
// the original backend error.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if IsUniqueConstraintError(err) {
		return true
	}
	if code, ok := stateCode(err); ok {
		switch code {
		case pgNotNullViolation, pgCheckViolation:
			return true
		}
	}
	return containsAny(err.Error(),
		neo4jConstraintViolation,
		"violates check constraint",    // Postgres
		"violates not-null constraint", // Postgres
	)
}

// IsUniqueConstraintError reports if the error resulted from a uniqueness
// constraint violation, e.g. two nodes with the same unique-together
// properties.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := stateCode(err); ok && code == pgUniqueViolation {
		return true
	}
	msg := err.Error()
	if strings.Contains(msg, neo4jConstraintViolation) && strings.Contains(msg, "already exists") {
		return true
	}
	// Fallback to string matching for drivers that don't implement interfaces
	return containsAny(msg,
		"violates unique constraint", // Postgres
		"already exists with label",  // Neo4j
	)
}

// stateCode extracts a SQLSTATE code from the error chain.
func stateCode(err error) (string, bool) {
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState(), true
	}
	if e, ok := asError[errorCoder](err); ok {
		return e.Code(), true
	}
	return "", false
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
