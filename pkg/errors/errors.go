// Package errors defines the engine's typed error taxonomy.
//
// Every rejection the engine produces is one of the types below, carrying
// enough context (rule/behavior name, offending value, node/edge id) for a
// caller to build a user-facing diagnostic. The engine never swallows or
// defaults a failed mutation.
package errors

import (
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	// ErrorTypeStructural marks a rule violation: the proposed mutation would
	// break a declared structural invariant.
	ErrorTypeStructural ErrorType = "STRUCTURAL_VIOLATION"
	// ErrorTypeBehavior marks a failed value transformation: a custom
	// function or predicate raised an error, or a transform met an
	// unsupported value.
	ErrorTypeBehavior ErrorType = "BEHAVIOR_FAILURE"
	// ErrorTypeReferential marks an operation addressing a node or edge id
	// that does not exist.
	ErrorTypeReferential ErrorType = "REFERENTIAL"
	// ErrorTypeAttachConflict marks a rule/behavior attach that found
	// existing data it cannot reconcile under its retroactive policy.
	ErrorTypeAttachConflict ErrorType = "ATTACH_CONFLICT"
	// ErrorTypeValidation marks malformed input to the engine itself
	// (empty id, nil spec) rather than a governed-data failure.
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// EngineError is the custom error type for the engine.
type EngineError struct {
	Type    ErrorType
	Message string
	// Name is the rule or behavior involved, when one is.
	Name string
	// Resource identifies the offending node/edge id or value display form.
	Resource string
	Err      error
}

// Error implements the error interface
func (e *EngineError) Error() string {
	switch {
	case e.Name != "" && e.Resource != "":
		return fmt.Sprintf("%s: %s (%s, %s)", e.Type, e.Message, e.Name, e.Resource)
	case e.Name != "":
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Name)
	case e.Resource != "":
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Resource)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
}

// Unwrap allows errors.Is and errors.As to work
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Constructor functions for the engine's error kinds

// NewStructuralViolation creates a rule-violation error. ruleName is the
// declared rule that rejected the mutation, message describes the violated
// invariant, resource the offending node/edge id when one is known.
func NewStructuralViolation(ruleName, message, resource string) error {
	return &EngineError{
		Type:     ErrorTypeStructural,
		Message:  message,
		Name:     ruleName,
		Resource: resource,
	}
}

// NewBehaviorFailure creates a behavior error for behaviorName. err is the
// underlying callable failure, if any.
func NewBehaviorFailure(behaviorName, message string, err error) error {
	return &EngineError{
		Type:    ErrorTypeBehavior,
		Message: message,
		Name:    behaviorName,
		Err:     err,
	}
}

// NewReferential creates a missing-id error. resource names the absent
// node/edge id.
func NewReferential(message, resource string) error {
	return &EngineError{
		Type:     ErrorTypeReferential,
		Message:  message,
		Resource: resource,
	}
}

// NewAttachConflict creates an attach-rejection error for the named rule or
// behavior.
func NewAttachConflict(name, message string) error {
	return &EngineError{
		Type:    ErrorTypeAttachConflict,
		Message: message,
		Name:    name,
	}
}

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &EngineError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &EngineError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context, preserving its type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	if engineErr, ok := err.(*EngineError); ok {
		return &EngineError{
			Type:     engineErr.Type,
			Message:  fmt.Sprintf("%s: %s", message, engineErr.Message),
			Name:     engineErr.Name,
			Resource: engineErr.Resource,
			Err:      engineErr.Err,
		}
	}

	return &EngineError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	engineErr, ok := err.(*EngineError)
	return ok && engineErr.Type == t
}

// IsStructuralViolation checks if an error is a rule violation
func IsStructuralViolation(err error) bool {
	return isType(err, ErrorTypeStructural)
}

// IsBehaviorFailure checks if an error is a behavior failure
func IsBehaviorFailure(err error) bool {
	return isType(err, ErrorTypeBehavior)
}

// IsReferential checks if an error is a missing-id error
func IsReferential(err error) bool {
	return isType(err, ErrorTypeReferential)
}

// IsAttachConflict checks if an error is an attach conflict
func IsAttachConflict(err error) bool {
	return isType(err, ErrorTypeAttachConflict)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return isType(err, ErrorTypeInternal)
}

// RuleName extracts the rule/behavior name from an engine error, or "".
func RuleName(err error) string {
	if engineErr, ok := err.(*EngineError); ok {
		return engineErr.Name
	}
	return ""
}
