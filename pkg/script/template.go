// SPDX-License-Identifier: MPL-2.0

package script

import (
	"errors"
	"fmt"
)

const (
	// TemplateLiteral passes the argument text verbatim (after home-marker expansion).
	TemplateLiteral ArgumentTemplate = "argument"
	// TemplateVaultPath resolves to the vault root path.
	TemplateVaultPath ArgumentTemplate = "vault_path"
	// TemplateFilename resolves to the active file's base name.
	TemplateFilename ArgumentTemplate = "filename"
	// TemplateFilenamePath resolves to the directory containing the active file.
	TemplateFilenamePath ArgumentTemplate = "filename_path"
	// TemplateFilenameNoExt resolves to the active file's base name without extension.
	TemplateFilenameNoExt ArgumentTemplate = "filename_no_ext"
	// TemplateFilenameRelative resolves to the active file path relative to the vault.
	TemplateFilenameRelative ArgumentTemplate = "filename_rel"
	// TemplateFilenameFull resolves to the absolute path of the active file.
	TemplateFilenameFull ArgumentTemplate = "filename_full"
	// TemplateContextJSON resolves to the whole context snapshot encoded as JSON.
	TemplateContextJSON ArgumentTemplate = "json_struct"

	// InsertNone leaves the editor untouched.
	InsertNone InsertionMode = "none"
	// InsertStart inserts stdout at the captured cursor and leaves the cursor in place.
	InsertStart InsertionMode = "start"
	// InsertEnd inserts stdout at the captured cursor and moves the cursor past it.
	InsertEnd InsertionMode = "end"
)

var (
	// ErrInvalidArgumentTemplate is the sentinel error wrapped by InvalidArgumentTemplateError.
	ErrInvalidArgumentTemplate = errors.New("invalid argument template")
	// ErrInvalidInsertionMode is the sentinel error wrapped by InvalidInsertionModeError.
	ErrInvalidInsertionMode = errors.New("invalid insertion mode")

	allTemplates = []ArgumentTemplate{
		TemplateLiteral,
		TemplateVaultPath,
		TemplateFilename,
		TemplateFilenamePath,
		TemplateFilenameNoExt,
		TemplateFilenameRelative,
		TemplateFilenameFull,
		TemplateContextJSON,
	}

	allInsertionModes = []InsertionMode{InsertNone, InsertStart, InsertEnd}
)

type (
	// ArgumentTemplate selects which context value an Argument resolves to.
	ArgumentTemplate string

	// InvalidArgumentTemplateError is returned when an ArgumentTemplate value is not recognized.
	// It wraps ErrInvalidArgumentTemplate for errors.Is() compatibility.
	InvalidArgumentTemplateError struct {
		Value ArgumentTemplate
	}

	// InsertionMode controls where a script's stdout is written into the editor.
	InsertionMode string

	// InvalidInsertionModeError is returned when an InsertionMode value is not recognized.
	// It wraps ErrInvalidInsertionMode for errors.Is() compatibility.
	InvalidInsertionModeError struct {
		Value InsertionMode
	}
)

// Templates returns every defined ArgumentTemplate in declaration order.
func Templates() []ArgumentTemplate {
	out := make([]ArgumentTemplate, len(allTemplates))
	copy(out, allTemplates)
	return out
}

// InsertionModes returns every defined InsertionMode in declaration order.
func InsertionModes() []InsertionMode {
	out := make([]InsertionMode, len(allInsertionModes))
	copy(out, allInsertionModes)
	return out
}

// String returns the wire tag of the ArgumentTemplate.
func (t ArgumentTemplate) String() string { return string(t) }

// IsValid returns whether the ArgumentTemplate is one of the defined templates,
// and a list of validation errors if it is not.
func (t ArgumentTemplate) IsValid() (bool, []error) {
	switch t {
	case TemplateLiteral, TemplateVaultPath, TemplateFilename, TemplateFilenamePath,
		TemplateFilenameNoExt, TemplateFilenameRelative, TemplateFilenameFull, TemplateContextJSON:
		return true, nil
	default:
		return false, []error{&InvalidArgumentTemplateError{Value: t}}
	}
}

// UsesText reports whether the template reads Argument.Text.
func (t ArgumentTemplate) UsesText() bool { return t == TemplateLiteral }

// MarshalText implements encoding.TextMarshaler.
func (t ArgumentTemplate) MarshalText() ([]byte, error) {
	if ok, errs := t.IsValid(); !ok {
		return nil, errs[0]
	}
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown tags.
func (t *ArgumentTemplate) UnmarshalText(text []byte) error {
	parsed, err := ParseArgumentTemplate(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseArgumentTemplate converts a wire tag into an ArgumentTemplate.
func ParseArgumentTemplate(s string) (ArgumentTemplate, error) {
	t := ArgumentTemplate(s)
	if ok, errs := t.IsValid(); !ok {
		return "", errs[0]
	}
	return t, nil
}

// Error implements the error interface for InvalidArgumentTemplateError.
func (e *InvalidArgumentTemplateError) Error() string {
	return fmt.Sprintf("invalid argument template %q (valid: argument, vault_path, filename, filename_path, filename_no_ext, filename_rel, filename_full, json_struct)", e.Value)
}

// Unwrap returns ErrInvalidArgumentTemplate for errors.Is() compatibility.
func (e *InvalidArgumentTemplateError) Unwrap() error { return ErrInvalidArgumentTemplate }

// String returns the wire tag of the InsertionMode.
func (m InsertionMode) String() string { return string(m) }

// IsValid returns whether the InsertionMode is one of the defined modes,
// and a list of validation errors if it is not.
func (m InsertionMode) IsValid() (bool, []error) {
	switch m {
	case InsertNone, InsertStart, InsertEnd:
		return true, nil
	default:
		return false, []error{&InvalidInsertionModeError{Value: m}}
	}
}

// Inserts reports whether the mode writes stdout into the editor.
func (m InsertionMode) Inserts() bool { return m == InsertStart || m == InsertEnd }

// MarshalText implements encoding.TextMarshaler.
func (m InsertionMode) MarshalText() ([]byte, error) {
	if ok, errs := m.IsValid(); !ok {
		return nil, errs[0]
	}
	return []byte(m), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown tags.
func (m *InsertionMode) UnmarshalText(text []byte) error {
	parsed, err := ParseInsertionMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseInsertionMode converts a wire tag into an InsertionMode.
func ParseInsertionMode(s string) (InsertionMode, error) {
	m := InsertionMode(s)
	if ok, errs := m.IsValid(); !ok {
		return "", errs[0]
	}
	return m, nil
}

// Error implements the error interface for InvalidInsertionModeError.
func (e *InvalidInsertionModeError) Error() string {
	return fmt.Sprintf("invalid insertion mode %q (valid: none, start, end)", e.Value)
}

// Unwrap returns ErrInvalidInsertionMode for errors.Is() compatibility.
func (e *InvalidInsertionModeError) Unwrap() error { return ErrInvalidInsertionMode }
