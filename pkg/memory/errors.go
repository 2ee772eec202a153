package memory

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvariantViolation is returned when source data lacks the fields
	// needed to identify a realm or memory.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrRealmNotFound is returned when a realm filter matches no realm.
	ErrRealmNotFound = errors.New("realm not found")

	// ErrCanceled is returned when an operation was aborted by its context.
	ErrCanceled = errors.New("operation canceled")
)

// Canceled wraps a context error as ErrCanceled. Other errors are returned
// unchanged.
func Canceled(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCanceled) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return err
}

// IsCanceled reports whether err stems from cancellation or a deadline.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
