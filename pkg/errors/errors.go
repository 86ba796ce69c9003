// Package errors defines error types and utilities for structured query construction
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors that can occur while building or handing off queries
var (
	// ErrValueConversion is matched by every failure to turn an application value into a wire value
	ErrValueConversion = errors.New("value conversion failed")

	// ErrUnsupportedType is returned when the serializer has no mapping for a Go type
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidCursor is returned when a cursor token cannot be decoded
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidDefinition is returned when a declarative query document is malformed
	ErrInvalidDefinition = errors.New("invalid query definition")

	// ErrInvalidOperator is returned when an operator name cannot be resolved
	ErrInvalidOperator = errors.New("invalid query operator")

	// ErrTransport is returned when the transport collaborator rejects a query
	ErrTransport = errors.New("transport failed")
)

// Origin identifies which conversion path produced a ConversionError.
type Origin string

const (
	// OriginSerializer marks failures reported by the generic serializer.
	OriginSerializer Origin = "serializer"
	// OriginCustom marks failures reported by a caller-supplied converter.
	OriginCustom Origin = "custom"
)

// ConversionError wraps a failed value conversion. Callers match it with
// errors.Is(err, ErrValueConversion) regardless of Origin.
type ConversionError struct {
	Err    error
	Origin Origin
	Type   string
}

func (e *ConversionError) Error() string {
	if e == nil {
		return "structuredquery: value conversion failed"
	}

	origin := e.Origin
	if origin == "" {
		origin = OriginSerializer
	}

	subject := string(origin)
	if e.Type != "" {
		subject = fmt.Sprintf("%s, %s", origin, e.Type)
	}

	if e.Err == nil {
		return fmt.Sprintf("structuredquery: value conversion failed (%s)", subject)
	}
	return fmt.Sprintf("structuredquery: value conversion failed (%s): %v", subject, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConversionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is ErrValueConversion.
func (e *ConversionError) Is(target error) bool {
	return target == ErrValueConversion
}

// NewConversionError wraps err as a ConversionError. An error that already is
// a ConversionError is returned unchanged so nested conversions wrap once. When
// err adds context around an inner ConversionError, the result keeps the inner
// Origin and Type and carries the context in front of the inner cause.
func NewConversionError(origin Origin, typ string, err error) *ConversionError {
	if ce, ok := err.(*ConversionError); ok {
		return ce
	}

	var existing *ConversionError
	if errors.As(err, &existing) {
		wrapped := err
		if prefix, ok := strings.CutSuffix(err.Error(), existing.Error()); ok && existing.Err != nil {
			wrapped = fmt.Errorf("%s%w", prefix, existing.Err)
		}
		return &ConversionError{
			Origin: existing.Origin,
			Type:   existing.Type,
			Err:    wrapped,
		}
	}
	return &ConversionError{
		Origin: origin,
		Type:   typ,
		Err:    err,
	}
}

// QueryError represents a failed hand-off of a rendered query
type QueryError struct {
	Err        error
	Op         string
	Collection string
}

// Error implements the error interface
func (e *QueryError) Error() string {
	// Collection ids stay out of the message; they are available on the struct.
	return fmt.Sprintf("structuredquery: %s operation failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target error
func (e *QueryError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewQueryError creates a new QueryError
func NewQueryError(op, collection string, err error) *QueryError {
	return &QueryError{
		Op:         op,
		Collection: collection,
		Err:        err,
	}
}

// IsConversionError checks if an error is a value conversion failure
func IsConversionError(err error) bool {
	return errors.Is(err, ErrValueConversion)
}

// IsInvalidCursor checks if an error indicates a malformed cursor token
func IsInvalidCursor(err error) bool {
	return errors.Is(err, ErrInvalidCursor)
}

// IsInvalidDefinition checks if an error indicates a malformed query definition
func IsInvalidDefinition(err error) bool {
	return errors.Is(err, ErrInvalidDefinition)
}
