// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
)

const (
	// RuntimeNative runs command lines through the host shell.
	RuntimeNative RuntimeMode = "native"
	// RuntimeVirtual runs command lines in the embedded mvdan/sh interpreter.
	RuntimeVirtual RuntimeMode = "virtual"
)

// ErrInvalidRuntimeMode is the sentinel error wrapped by InvalidRuntimeModeError.
var ErrInvalidRuntimeMode = errors.New("invalid runtime mode")

type (
	// RuntimeMode selects a Spawner implementation.
	//
	//nolint:revive // RuntimeMode is more descriptive than Mode for external callers
	RuntimeMode string

	// InvalidRuntimeModeError is returned when a RuntimeMode value is not recognized.
	InvalidRuntimeModeError struct {
		Value RuntimeMode
	}

	// Request describes one process to spawn.
	Request struct {
		// CommandLine is the full, already-quoted command line.
		CommandLine string
		// WorkDir is the process's current directory. Empty inherits ours.
		WorkDir string
	}

	// Spawner runs a command line to completion and captures its output.
	// Spawn blocks; callers that must not block run it on their own goroutine.
	Spawner interface {
		// Name returns the runtime name.
		Name() string
		// Spawn runs req and returns its captured result. It never returns nil.
		Spawn(ctx context.Context, req Request) *Result
	}
)

// New returns the Spawner for mode. shell overrides the native runtime's shell
// detection and is ignored by the virtual runtime.
func New(mode RuntimeMode, shell string) (Spawner, error) {
	switch mode {
	case RuntimeNative, "":
		return NewNativeRuntime(shell), nil
	case RuntimeVirtual:
		return NewVirtualRuntime(), nil
	default:
		return nil, &InvalidRuntimeModeError{Value: mode}
	}
}

// String returns the string representation of the RuntimeMode.
func (m RuntimeMode) String() string { return string(m) }

// IsValid returns whether the RuntimeMode is one of the defined modes,
// and a list of validation errors if it is not.
func (m RuntimeMode) IsValid() (bool, []error) {
	switch m {
	case RuntimeNative, RuntimeVirtual:
		return true, nil
	default:
		return false, []error{&InvalidRuntimeModeError{Value: m}}
	}
}

// Error implements the error interface for InvalidRuntimeModeError.
func (e *InvalidRuntimeModeError) Error() string {
	return fmt.Sprintf("invalid runtime mode %q (valid: native, virtual)", e.Value)
}

// Unwrap returns ErrInvalidRuntimeMode for errors.Is() compatibility.
func (e *InvalidRuntimeModeError) Unwrap() error { return ErrInvalidRuntimeMode }
