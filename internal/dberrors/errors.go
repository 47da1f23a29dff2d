// Package dberrors defines the closed taxonomy of LemonDB error kinds
// (spec.md §7) as sentinel errors, so callers can test with errors.Is while
// every site still attaches its own context via fmt.Errorf("...: %w", ...).
// This replaces the original C++ exception hierarchy (Database.h / uexception.h)
// with plain Go values, per spec.md §9 "Exceptions for control flow".
package dberrors

import "errors"

// Schema errors.
var (
	ErrTableNameNotFound   = errors.New("table name not found")
	ErrDuplicatedTableName = errors.New("duplicated table name")
	ErrTableFieldNotFound  = errors.New("table field not found")
	ErrDuplicatedField     = errors.New("duplicated field name")
	ErrReservedFieldName   = errors.New("field name KEY is reserved")
)

// Row errors.
var (
	ErrConflictingKey = errors.New("conflicting key")
	ErrNotFoundKey    = errors.New("key not found")
	ErrArityMismatch  = errors.New("value count does not match table arity")
)

// Query errors.
var (
	ErrQueryBuilderMatchFailed = errors.New("no query builder matched")
	ErrIllFormedQuery          = errors.New("ill-formed query")
	ErrIllFormedQueryCondition = errors.New("ill-formed query condition")
	ErrWrongOperandCount       = errors.New("wrong operand count")
)

// I/O errors.
var (
	ErrCannotOpenFile     = errors.New("cannot open file")
	ErrMalformedTableFile = errors.New("malformed table file")
)

// Environment errors. These are fatal at the CLI boundary (SPEC_FULL.md A.2)
// and never flow through a query's execute.
var (
	ErrNegativeThreadCount = errors.New("negative thread count")
	ErrNoListenSource      = errors.New("no --listen source given in release mode")
)
