package item

import (
	"errors"
	"fmt"
)

var (
	// ErrOwnership is returned when an operation targets an item owned by
	// somebody else. Never retried.
	ErrOwnership = errors.New("item: not owned by caller")
	// ErrNotFound is returned when the target identifier no longer exists.
	ErrNotFound = errors.New("item: not found")
	// ErrTransient wraps network/backend failures during a write.
	ErrTransient = errors.New("item: transient backend failure")
	// ErrValidation marks input rejected locally before any remote call.
	ErrValidation = errors.New("item: validation failed")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("item: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Class buckets an error by how the view layer must react to it.
type Class int

const (
	ClassNone Class = iota
	ClassValidation
	ClassOwnership
	ClassNotFound
	ClassTransient
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassValidation:
		return "validation"
	case ClassOwnership:
		return "ownership"
	case ClassNotFound:
		return "not-found"
	default:
		return "transient"
	}
}

// Classify maps err onto the error taxonomy. Anything unrecognized is
// treated as transient.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrOwnership):
		return ClassOwnership
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	default:
		return ClassTransient
	}
}

// Transient wraps err as an ErrTransient unless it already belongs to another
// class.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	if Classify(err) != ClassTransient || errors.Is(err, ErrTransient) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Message renders err the way a screen shows it.
func Message(err error) string {
	switch Classify(err) {
	case ClassNone:
		return ""
	case ClassOwnership:
		return "permission denied: " + err.Error()
	case ClassTransient:
		return err.Error() + " (retry)"
	default:
		return err.Error()
	}
}
