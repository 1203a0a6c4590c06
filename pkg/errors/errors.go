// Package errors carries the sentinel vocabulary shared across the codebase
// plus thin wrapping helpers, so call sites never need to import this package
// and the stdlib errors side by side.
package errors

import (
	"errors"
	"fmt"
)

// Storage and input sentinels. Repositories translate driver-level failures
// into these so services can match on them without knowing the backend.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternal      = errors.New("internal error")
)

// Optimization sentinels.
var (
	// ErrNoData flags a candle window empty or too short to score.
	ErrNoData = errors.New("no market data")

	// ErrConfigMissing flags a run started without a regime configuration.
	ErrConfigMissing = errors.New("regime config missing")

	// ErrInvalidRange flags a search space whose bounds cannot be sampled.
	ErrInvalidRange = errors.New("invalid parameter range")

	// ErrNoCompletedTrials flags a study where every trial failed or was
	// pruned, leaving nothing to pick a best from.
	ErrNoCompletedTrials = errors.New("no completed trials")
)

// Is reports whether err wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Wrap prefixes err with message, keeping it matchable with Is.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
