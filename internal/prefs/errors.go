// Package prefs merges, caches, and persists layout preferences across
// scopes.
package prefs

import (
	"errors"
	"fmt"

	"github.com/panekit/panekit/pkg/models"
)

// PersistErrorKind classifies persistence failures.
type PersistErrorKind string

const (
	// PersistRetryable marks a transient failure worth retrying.
	PersistRetryable PersistErrorKind = "retryable"
	// PersistPermanent marks a failure retries cannot fix.
	PersistPermanent PersistErrorKind = "permanent"
)

// PersistError wraps a store failure with its classification. Persistence
// failures never touch in-memory layout state; callers decide between
// retrying and surfacing a notification based on the kind.
type PersistError struct {
	// Kind classifies the failure.
	Kind PersistErrorKind
	// Scope is the preference scope involved.
	Scope models.PreferenceScope
	// Op names the failed operation ("load" or "save").
	Op string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *PersistError) Error() string {
	return fmt.Sprintf("%s %s preference (%s): %v", e.Op, e.Scope, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PersistError) Unwrap() error {
	return e.Err
}

// Retryable wraps a cause as a transient persistence failure.
func Retryable(scope models.PreferenceScope, op string, err error) *PersistError {
	return &PersistError{Kind: PersistRetryable, Scope: scope, Op: op, Err: err}
}

// Permanent wraps a cause as a non-retryable persistence failure.
func Permanent(scope models.PreferenceScope, op string, err error) *PersistError {
	return &PersistError{Kind: PersistPermanent, Scope: scope, Op: op, Err: err}
}

// IsRetryable reports whether an error is a transient persistence
// failure. Unclassified errors count as retryable.
func IsRetryable(err error) bool {
	var pe *PersistError
	if errors.As(err, &pe) {
		return pe.Kind == PersistRetryable
	}
	return err != nil
}
