// Package errors provides standardized error handling for keystream
// components. It defines the sentinel errors and typed errors surfaced at
// the client boundary, plus helper functions for consistent wrapping and
// classification.
package errors

import (
	"errors"
	"fmt"
)

// Standard error variables for common conditions
var (
	// Resource lifecycle errors
	ErrClosed       = errors.New("resource already closed")
	ErrNotSoleOwner = errors.New("not the sole owner of the shared resource")

	// Codec errors
	ErrUnsupportedEncoding = errors.New("unsupported encoding for decode")

	// Engine errors
	ErrNoEngine      = errors.New("no messaging engine configured")
	ErrEngineClosed  = errors.New("messaging engine closed")
	ErrNotConnected  = errors.New("not connected to messaging engine")
	ErrQueryComplete = errors.New("query already completed")
)

// ConversionError reports an unsupported input or output type at a boundary
// conversion (value construction, key-expression construction, selector
// construction).
type ConversionError struct {
	From string // source Go type or encoding display name
	To   string // target type ("KeyExpr", "Value", "Selector", "int64", ...)
}

// Error implements the error interface
func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert type %q to a %s", e.From, e.To)
}

// NewConversion creates a ConversionError for an unsupported from/to pair.
func NewConversion(from, to string) *ConversionError {
	return &ConversionError{From: from, To: to}
}

// ParseError reports a malformed selector, value-selector or properties
// string. Token carries the offending fragment so callers can surface it.
type ParseError struct {
	Input  string
	Token  string
	Reason string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("parse %q: %s at %q", e.Input, e.Reason, e.Token)
	}
	return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
}

// NewParse creates a ParseError for input with the offending token.
func NewParse(input, token, reason string) *ParseError {
	return &ParseError{Input: input, Token: token, Reason: reason}
}

// EngineError wraps any failure surfaced by the external messaging engine.
// It is opaque beyond its message and always propagated to the caller of the
// operation that produced it.
type EngineError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying engine error
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Engine wraps err as an EngineError for the given operation. Returns nil
// when err is nil so call sites can wrap unconditionally.
func Engine(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Err: err}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// IsClosed reports whether err indicates an operation on a closed handle.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsNotSoleOwner reports whether err indicates a close attempted while other
// owners still hold the shared handle.
func IsNotSoleOwner(err error) bool {
	return errors.Is(err, ErrNotSoleOwner)
}

// IsUnsupportedEncoding reports whether err indicates a decode attempted on
// an encoding tag with no known decode rule.
func IsUnsupportedEncoding(err error) bool {
	return errors.Is(err, ErrUnsupportedEncoding)
}

// IsConversion reports whether err is a ConversionError.
func IsConversion(err error) bool {
	var ce *ConversionError
	return errors.As(err, &ce)
}

// IsParse reports whether err is a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsEngine reports whether err originated in the external messaging engine.
func IsEngine(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}
