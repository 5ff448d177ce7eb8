package veil

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrInvalidPolicy indicates a policy is malformed (unknown tag
	// modifier, non-positive fixed width, bad mask character).
	ErrInvalidPolicy = errors.New("invalid mask policy")

	// ErrPolicyMismatch indicates a policy is incompatible with its field's
	// type, e.g. Partial on a composite field without a fmt.Stringer
	// textual projection.
	ErrPolicyMismatch = errors.New("policy incompatible with field type")

	// ErrUnknownField indicates a registration option named a field the
	// shape's type does not have.
	ErrUnknownField = errors.New("unknown field")

	// ErrNotStruct indicates a shape was registered for a non-struct type.
	ErrNotStruct = errors.New("shape requires a struct type")

	// ErrNotInterface indicates a union was registered for a non-interface
	// type.
	ErrNotInterface = errors.New("union requires an interface type")

	// ErrAlreadyRegistered indicates a shape or union was registered twice
	// for the same type. Registered shapes are immutable; use Reset in
	// tests.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrUnknownVariant indicates a union value's concrete type has no
	// registered variant.
	ErrUnknownVariant = errors.New("unknown union variant")

	// ErrInvalidConfig indicates a toggle configuration document is
	// malformed.
	ErrInvalidConfig = errors.New("invalid toggle config")

	// ErrToggleResolved indicates an attempt to configure or disable the
	// toggle after its state was already resolved. The resolved state is
	// permanent for the process lifetime.
	ErrToggleResolved = errors.New("toggle already resolved")

	// ErrToggleAborted indicates toggle resolution reached an Abort
	// fallback: no rule matched and the configuration demands an explicit
	// redaction stance. This error is terminal; every subsequent render
	// observes it.
	ErrToggleAborted = errors.New("redaction stance unresolved")
)

// ConfigError represents a registration-time configuration error.
// It wraps a sentinel error with the shape and field that triggered it.
type ConfigError struct {
	Err   error  // Underlying sentinel error (ErrInvalidPolicy, etc.)
	Shape string // Shape name, if known
	Field string // Field or variant name that triggered the error
}

func (e *ConfigError) Error() string {
	if e.Shape != "" && e.Field != "" {
		return fmt.Sprintf("%s (field %s.%s)", e.Err.Error(), e.Shape, e.Field)
	}
	if e.Shape != "" {
		return fmt.Sprintf("%s (shape %s)", e.Err.Error(), e.Shape)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s (field %s)", e.Err.Error(), e.Field)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToggleError represents a failure during toggle resolution.
type ToggleError struct {
	Err      error  // Underlying sentinel error (ErrToggleAborted, etc.)
	Variable string // Environment variable involved, if any
}

func (e *ToggleError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("%s (variable %s)", e.Err.Error(), e.Variable)
	}
	return e.Err.Error()
}

func (e *ToggleError) Unwrap() error {
	return e.Err
}

// RenderError represents a render-time failure. Well-formed registered shapes
// never produce one; it surfaces unregistered union variants and propagated
// registration errors from lazily scanned types.
type RenderError struct {
	Err  error  // Underlying sentinel error (ErrUnknownVariant, etc.)
	Type string // Go type that failed to render
}

func (e *RenderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s (type %s)", e.Err.Error(), e.Type)
	}
	return e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// newConfigError creates a ConfigError for registration failures.
func newConfigError(sentinel error, shape, field string) error {
	return &ConfigError{
		Err:   sentinel,
		Shape: shape,
		Field: field,
	}
}

// newRenderError creates a RenderError for render failures.
func newRenderError(sentinel error, typeName string) error {
	return &RenderError{
		Err:  sentinel,
		Type: typeName,
	}
}
