package musiclake

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error is a constant error value.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrUnknownColumn is returned when an operation names a column the table
	// does not have.
	ErrUnknownColumn = Error("unknown column")

	// ErrAmbiguousColumn is returned when an operation would produce two
	// columns with the same name.
	ErrAmbiguousColumn = Error("ambiguous column")

	// ErrDuplicateTitle is returned by a FactBuilder configured to reject
	// song catalogs in which a title appears more than once.
	ErrDuplicateTitle = Error("duplicate song title")
)

// SchemaViolation is returned when a raw value cannot be coerced to the type
// its column declares. It fails the whole run.
type SchemaViolation struct {
	Column string
	Value  interface{}
	Type   Type
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("schema violation: column '%s' value %#v (%T) is not %s", e.Column, e.Value, e.Value, e.Type)
}

// MissingField is returned when a raw event record lacks a field the event
// log extractor references. There is no per-record skip.
type MissingField struct {
	Field string
}

func (e *MissingField) Error() string {
	return fmt.Sprintf("missing field '%s'", e.Field)
}

// WriteFailure is returned when a table could not be persisted. Tables
// written by earlier stages are left as they are.
type WriteFailure struct {
	Path string
	Err  error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("writing '%s': %v", e.Path, e.Err)
}

// Unwrap returns the underlying storage error.
func (e *WriteFailure) Unwrap() error { return e.Err }

// IsSchemaViolation reports whether err was caused by a SchemaViolation.
func IsSchemaViolation(err error) bool {
	var target *SchemaViolation
	return errors.As(err, &target)
}

// IsMissingField reports whether err was caused by a MissingField.
func IsMissingField(err error) bool {
	var target *MissingField
	return errors.As(err, &target)
}

// IsWriteFailure reports whether err was caused by a WriteFailure.
func IsWriteFailure(err error) bool {
	var target *WriteFailure
	return errors.As(err, &target)
}
