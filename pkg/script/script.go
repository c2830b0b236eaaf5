// SPDX-License-Identifier: MPL-2.0

package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrInvalidID is the sentinel error wrapped by InvalidIDError.
	ErrInvalidID = errors.New("invalid script id")
	// ErrInvalidName is the sentinel error wrapped by InvalidNameError.
	ErrInvalidName = errors.New("invalid script name")
	// ErrInvalidScript is the sentinel error wrapped by InvalidScriptError.
	ErrInvalidScript = errors.New("invalid script")
)

type (
	// ID identifies a script. It is assigned once at creation and never reused.
	ID string

	// InvalidIDError is returned when an ID is empty or whitespace-only.
	InvalidIDError struct {
		Value ID
	}

	// Name is the unique, human-facing launch key of a script.
	Name string

	// InvalidNameError is returned when a Name is empty or whitespace-only.
	InvalidNameError struct {
		Value Name
	}

	// InvalidScriptError collects the field-level errors of a Script.
	// It wraps ErrInvalidScript for errors.Is() compatibility.
	InvalidScriptError struct {
		FieldErrors []error
	}

	// Argument is one templated command-line token.
	Argument struct {
		// Text is the raw literal; only meaningful for TemplateLiteral.
		Text string `json:"argument" yaml:"argument" toml:"argument" mapstructure:"argument"`
		// Template selects the value the argument resolves to.
		Template ArgumentTemplate `json:"template" yaml:"template" toml:"template" mapstructure:"template"`
	}

	// Script is a named, user-authored launch definition.
	Script struct {
		ID   ID   `json:"id" yaml:"id" toml:"id" mapstructure:"id"`
		Name Name `json:"name" yaml:"name" toml:"name" mapstructure:"name"`
		// ExternalProgram may start with "~"; it is expanded at execution time only.
		ExternalProgram string `json:"externalProgram" yaml:"externalProgram" toml:"externalProgram" mapstructure:"externalProgram"`
		// WorkingDirectory follows the same expansion rule as ExternalProgram.
		WorkingDirectory string `json:"currentWorkingDirectory" yaml:"currentWorkingDirectory" toml:"currentWorkingDirectory" mapstructure:"currentWorkingDirectory"`
		// Arguments are positional; order is significant.
		Arguments   []Argument    `json:"additional_args" yaml:"additional_args" toml:"additional_args" mapstructure:"additional_args"`
		Insertion   InsertionMode `json:"insert_handling" yaml:"insert_handling" toml:"insert_handling" mapstructure:"insert_handling"`
		DebugOutput bool          `json:"debug_output" yaml:"debug_output" toml:"debug_output" mapstructure:"debug_output"`
	}
)

// NewID returns a fresh random identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// New creates a default-valued Script with a fresh ID.
func New(name Name) Script {
	return Script{
		ID:        NewID(),
		Name:      name,
		Arguments: []Argument{},
		Insertion: InsertNone,
	}
}

// Literal is a shorthand for a TemplateLiteral argument.
func Literal(text string) Argument {
	return Argument{Text: text, Template: TemplateLiteral}
}

// Templated is a shorthand for an argument that reads from the context snapshot.
func Templated(t ArgumentTemplate) Argument {
	return Argument{Template: t}
}

// Clone returns a deep copy of the script so callers cannot alias the argument slice.
func (s Script) Clone() Script {
	out := s
	out.Arguments = make([]Argument, len(s.Arguments))
	copy(out.Arguments, s.Arguments)
	return out
}

// IsValid returns whether the Script has valid fields. The program path is not
// checked here because scripts are created empty and filled in afterwards.
func (s Script) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := s.ID.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := s.Name.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := s.Insertion.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for i, arg := range s.Arguments {
		if valid, fieldErrs := arg.Template.IsValid(); !valid {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Errorf("additional_args[%d]: %w", i, fe))
			}
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidScriptError{FieldErrors: errs}}
	}
	return true, nil
}

// String returns the string representation of the ID.
func (id ID) String() string { return string(id) }

// IsValid returns whether the ID is non-empty.
func (id ID) IsValid() (bool, []error) {
	if strings.TrimSpace(string(id)) == "" {
		return false, []error{&InvalidIDError{Value: id}}
	}
	return true, nil
}

// Error implements the error interface for InvalidIDError.
func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid script id %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidID for errors.Is() compatibility.
func (e *InvalidIDError) Unwrap() error { return ErrInvalidID }

// String returns the string representation of the Name.
func (n Name) String() string { return string(n) }

// IsValid returns whether the Name is non-blank.
func (n Name) IsValid() (bool, []error) {
	if strings.TrimSpace(string(n)) == "" {
		return false, []error{&InvalidNameError{Value: n}}
	}
	return true, nil
}

// Error implements the error interface for InvalidNameError.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid script name %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidName for errors.Is() compatibility.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// Error implements the error interface for InvalidScriptError.
func (e *InvalidScriptError) Error() string {
	return fmt.Sprintf("invalid script: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidScript for errors.Is() compatibility.
func (e *InvalidScriptError) Unwrap() error { return ErrInvalidScript }
