package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the shftk domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrFormat is returned when a command table input has an unsupported
	// type, when an input string is not valid JSON, or when a fetched
	// schema document is not valid JSON.
	ErrFormat = errors.New("shftk: invalid command table format")

	// ErrValidation is returned when a normalized command table document
	// does not conform to its JSON Schema.
	ErrValidation = errors.New("shftk: command table validation failed")

	// ErrNetwork is returned when the command table schema cannot be
	// fetched from its configured URL.
	ErrNetwork = errors.New("shftk: schema fetch failed")

	// ErrOutOfRange is returned when a parameter value violates a bound
	// declared for its device node.
	ErrOutOfRange = errors.New("shftk: value out of range")

	// ErrInvalidValue is returned when a keyword or mapped value is not
	// among the options a device node accepts.
	ErrInvalidValue = errors.New("shftk: invalid value")

	// ErrNotWritable is returned when a set is attempted on a read-only node.
	ErrNotWritable = errors.New("shftk: node is not writable")

	// ErrNotReadable is returned when a get is attempted on a write-only node.
	ErrNotReadable = errors.New("shftk: node is not readable")

	// ErrDevice is returned when the instrument data server rejects a request.
	ErrDevice = errors.New("shftk: device error")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("shftk: invalid configuration")

	// ErrNotConnected is returned when an operation requires an open
	// data server connection and none exists.
	ErrNotConnected = errors.New("shftk: not connected")

	// ErrAlreadyConnected is returned when Connect is called twice on the
	// same session.
	ErrAlreadyConnected = errors.New("shftk: already connected")
)

// ValidationError describes a single schema violation found while
// validating a command table document. It wraps ErrValidation so
// errors.Is(err, ErrValidation) holds, and exposes the constraint that
// failed along with the offending location and value.
type ValidationError struct {
	// Constraint is the schema keyword that was violated, e.g. "required"
	// or "maximum".
	Constraint string

	// Field locates the offending value inside the document, e.g.
	// "table.0.waveform".
	Field string

	// Value is the offending value as reported by the validator.
	Value interface{}

	// Detail is the human-readable description of the violation.
	Detail string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s at %q: %s", ErrValidation, e.Constraint, e.Field, e.Detail)
}

// Is reports whether target matches the validation sentinel.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
