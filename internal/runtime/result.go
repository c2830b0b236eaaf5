// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrExecution is the sentinel wrapped by every execution failure.
	ErrExecution = errors.New("script execution failed")
	// ErrSpawnFailed is returned when the process could not be started.
	ErrSpawnFailed = errors.New("process could not be started")
	// ErrNonZeroExit is returned when the process ran and reported failure.
	ErrNonZeroExit = errors.New("process exited with non-zero status")
	// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
	ErrInvalidExitCode = errors.New("invalid exit code")
)

type (
	// ExitCode is a process exit status. Zero means success; anything
	// outside 0-255 is reported as spawn failure by the runtimes.
	ExitCode int

	// Result is the captured outcome of one spawned process.
	Result struct {
		// ExitCode is the exit status; meaningful only when Error is nil.
		ExitCode ExitCode
		// Error is set when the process could not be started or was killed.
		Error error
		// Output is the captured stdout.
		Output string
		// ErrOutput is the captured stderr.
		ErrOutput string
	}

	// SpawnFailedError reports a process that never ran to an exit status.
	SpawnFailedError struct {
		Cause error
	}

	// NonZeroExitError reports a process that ran but exited unsuccessfully.
	NonZeroExitError struct {
		Code ExitCode
	}

	// InvalidExitCodeError is returned when an ExitCode is outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// IsValid returns whether the ExitCode is a portable process status (0-255).
func (c ExitCode) IsValid() (bool, []error) {
	if c < 0 || c > 255 {
		return false, []error{&InvalidExitCodeError{Value: c}}
	}
	return true, nil
}

// Error implements the error interface for InvalidExitCodeError.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode for errors.Is() compatibility.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// String returns the decimal representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// Success reports whether the process ran and exited with status 0.
func (r *Result) Success() bool {
	return r.Error == nil && r.ExitCode.IsSuccess()
}

// Err classifies a failed result. It returns nil on success.
func (r *Result) Err() error {
	switch {
	case r.Error != nil:
		return &SpawnFailedError{Cause: r.Error}
	case !r.ExitCode.IsSuccess():
		return &NonZeroExitError{Code: r.ExitCode}
	default:
		return nil
	}
}

// Error implements the error interface for SpawnFailedError.
func (e *SpawnFailedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSpawnFailed, e.Cause)
}

// Is matches ErrExecution and ErrSpawnFailed.
func (e *SpawnFailedError) Is(target error) bool {
	return target == ErrExecution || target == ErrSpawnFailed
}

// Unwrap returns the underlying cause.
func (e *SpawnFailedError) Unwrap() error { return e.Cause }

// Error implements the error interface for NonZeroExitError.
func (e *NonZeroExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", ErrNonZeroExit, e.Code)
}

// Is matches ErrExecution and ErrNonZeroExit.
func (e *NonZeroExitError) Is(target error) bool {
	return target == ErrExecution || target == ErrNonZeroExit
}

// newSpawnError builds a Result for a process that could not be started.
func newSpawnError(err error) *Result {
	return &Result{ExitCode: 1, Error: err}
}
