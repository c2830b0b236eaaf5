// SPDX-License-Identifier: MPL-2.0

// Package snapshot captures the editor state a script run is resolved against.
//
// A Snapshot is taken once per execution, before the child process starts, and
// is passed by value through the pipeline. Nothing mutates it after capture,
// so edits made while a script runs never move the recorded insertion point.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrNoActiveEditor is returned by Capture when the provider reports no cursor.
// Execution is suppressed entirely in that case.
var ErrNoActiveEditor = errors.New("no active editor")

type (
	// Position is a zero-based (line, column) location in a text document.
	// Columns count runes.
	Position struct {
		Line   int `json:"line"`
		Column int `json:"ch"`
	}

	// Provider supplies the live editor and environment state.
	Provider interface {
		// VaultRoot returns the root directory of the open project.
		VaultRoot() (string, error)
		// ActiveFile returns the active file path relative to the vault root.
		ActiveFile() (string, bool)
		// Cursor returns the cursor of the focused editor, if there is one.
		Cursor() (Position, bool)
	}

	// Snapshot is the immutable set of context values captured for one execution.
	// The JSON field names are part of the contract with user scripts that read
	// the json_struct argument.
	Snapshot struct {
		VaultPath     string `json:"vaultPath"`
		Filename      string `json:"filename"`
		FilenamePath  string `json:"filenamePath"`
		FilenameNoExt string `json:"filenameNoExt"`
		FilenameRel   string `json:"filenameRel"`
		FilenameFull  string `json:"filenameFull"`
		EditorX       int    `json:"editorX"`
		EditorY       int    `json:"editorY"`
	}

	// Static is a Provider with fixed values.
	Static struct {
		Root      string
		File      string
		Position  Position
		HasCursor bool
	}
)

// Capture reads the provider once and derives every snapshot field.
func Capture(p Provider) (Snapshot, error) {
	root, err := p.VaultRoot()
	if err != nil {
		return Snapshot{}, fmt.Errorf("determine vault root: %w", err)
	}

	cursor, ok := p.Cursor()
	if !ok {
		return Snapshot{}, ErrNoActiveEditor
	}

	snap := Snapshot{
		VaultPath: root,
		EditorX:   cursor.Column,
		EditorY:   cursor.Line,
	}

	if rel, ok := p.ActiveFile(); ok && rel != "" {
		// Vault-relative paths use forward slashes regardless of platform.
		rel = filepath.ToSlash(rel)
		snap.FilenameRel = rel
		snap.Filename = path.Base(rel)
		snap.FilenameNoExt = trimExt(snap.Filename)
	}
	snap.FilenameFull = filepath.Join(root, filepath.FromSlash(snap.FilenameRel))
	snap.FilenamePath = filepath.Dir(snap.FilenameFull)

	return snap, nil
}

// trimExt drops the extension from name. A leading dot does not start an
// extension, so ".hidden" is kept whole.
func trimExt(name string) string {
	ext := path.Ext(name)
	if ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

// HasActiveFile reports whether an active file was captured.
func (s Snapshot) HasActiveFile() bool { return s.FilenameRel != "" }

// Cursor returns the captured cursor position.
func (s Snapshot) Cursor() Position {
	return Position{Line: s.EditorY, Column: s.EditorX}
}

// JSON encodes the snapshot as a single-line JSON object. HTML characters are
// not escaped so the payload survives shell quoting unchanged.
func (s Snapshot) JSON() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("encode context snapshot: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// IndentedJSON encodes the snapshot for debug logs.
func (s Snapshot) IndentedJSON() string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", s)
	}
	return string(data)
}

// String renders a position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Shift returns the position moved by n columns on the same line.
func (p Position) Shift(n int) Position {
	return Position{Line: p.Line, Column: p.Column + n}
}

// VaultRoot returns the configured root.
func (s Static) VaultRoot() (string, error) {
	if s.Root == "" {
		return "", errors.New("vault root is not set")
	}
	return s.Root, nil
}

// ActiveFile returns the configured file, if any.
func (s Static) ActiveFile() (string, bool) {
	return s.File, s.File != ""
}

// Cursor returns the configured position when HasCursor is set.
func (s Static) Cursor() (Position, bool) {
	return s.Position, s.HasCursor
}
