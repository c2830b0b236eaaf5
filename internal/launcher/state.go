// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"errors"
	"fmt"
)

const (
	// StateIdle is the state of an execution that has not started.
	StateIdle State = iota
	// StateValidatingExecutable checks that the program path exists.
	StateValidatingExecutable
	// StateAborted is terminal: the run stopped before a process was spawned.
	StateAborted
	// StateBuildingCommand captures the snapshot and resolves the command line.
	StateBuildingCommand
	// StateSpawning hands the command line to the runtime.
	StateSpawning
	// StateRunning waits for the child process to exit.
	StateRunning
	// StateCompletedSuccess means the process exited with status 0.
	StateCompletedSuccess
	// StateCompletedError means the process failed to start or exited non-zero.
	StateCompletedError
	// StateDispatching routes the result to the editor and notification surfaces.
	StateDispatching
	// StateDone is terminal: dispatch finished.
	StateDone
)

// ErrInvalidState is returned when a State value is not one of the defined states.
var ErrInvalidState = errors.New("invalid execution state")

type (
	// State is the lifecycle state of one execution.
	State int32

	// InvalidStateError is returned when a State value is not recognized.
	InvalidStateError struct {
		Value State
	}
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidatingExecutable:
		return "validating-executable"
	case StateAborted:
		return "aborted"
	case StateBuildingCommand:
		return "building-command"
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	case StateCompletedSuccess:
		return "completed-success"
	case StateCompletedError:
		return "completed-error"
	case StateDispatching:
		return "dispatching"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Validate returns an InvalidStateError for values outside the defined range.
func (s State) Validate() error {
	if s < StateIdle || s > StateDone {
		return &InvalidStateError{Value: s}
	}
	return nil
}

// IsTerminal reports whether no further transitions follow s.
func (s State) IsTerminal() bool {
	return s == StateAborted || s == StateDone
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid execution state %d", e.Value)
}

// Unwrap returns ErrInvalidState for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }
