package aidecmder

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/aide/pkg/feed"
	"github.com/papercomputeco/aide/pkg/memory"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitFetch     = 2
	ExitParse     = 3
	ExitInvariant = 4
	ExitCanceled  = 130
)

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	var (
		fetchErr *feed.FetchError
		parseErr *feed.ParseError
	)

	switch {
	case err == nil:
		return ExitOK
	case memory.IsCanceled(err):
		return ExitCanceled
	case errors.As(err, &fetchErr):
		return ExitFetch
	case errors.As(err, &parseErr):
		return ExitParse
	case errors.Is(err, memory.ErrInvariantViolation):
		return ExitInvariant
	default:
		return ExitFailure
	}
}

// ErrorMessage renders err as the one-line message printed to stderr.
func ErrorMessage(err error) string {
	switch ExitCode(err) {
	case ExitCanceled:
		return fmt.Sprintf("Canceled: %v", err)
	case ExitFetch:
		return fmt.Sprintf("Error fetching RSS feed: %v", err)
	case ExitParse:
		return fmt.Sprintf("Error parsing RSS feed: %v", err)
	case ExitInvariant:
		return fmt.Sprintf("Feed is missing identifying data: %v", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
