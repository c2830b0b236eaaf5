// SPDX-License-Identifier: MPL-2.0

// Package editor provides a file-backed text buffer with a cursor, used as
// the insertion target for script output outside a GUI editor.
package editor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/extlaunch/extlaunch/internal/snapshot"
)

// ErrNoPath is returned by Save on a buffer that was not opened from a file.
var ErrNoPath = errors.New("buffer has no file path")

// Buffer is a line-oriented document. Columns count runes. Positions passed
// to InsertAt and SetCursor are clamped to the document. Safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	path   string
	lines  [][]rune
	cursor snapshot.Position
	dirty  bool
}

// NewBuffer creates an in-memory buffer holding text.
func NewBuffer(text string) *Buffer {
	return &Buffer{lines: splitLines(text)}
}

// Open loads path into a buffer. A missing file yields an empty document
// that Save will create.
func Open(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	b := NewBuffer(string(data))
	b.path = path
	return b, nil
}

// Path returns the backing file path, if any.
func (b *Buffer) Path() string { return b.path }

// InsertAt inserts text at pos. Nothing is replaced.
func (b *Buffer) InsertAt(pos snapshot.Position, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if text == "" {
		return nil
	}
	pos = b.clamp(pos)

	line := b.lines[pos.Line]
	head := string(line[:pos.Column])
	tail := string(line[pos.Column:])

	inserted := splitLines(head + text + tail)
	lines := make([][]rune, 0, len(b.lines)+len(inserted)-1)
	lines = append(lines, b.lines[:pos.Line]...)
	lines = append(lines, inserted...)
	lines = append(lines, b.lines[pos.Line+1:]...)
	b.lines = lines
	b.dirty = true
	return nil
}

// SetCursor moves the cursor to pos, clamped to the document.
func (b *Buffer) SetCursor(pos snapshot.Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = b.clamp(pos)
	return nil
}

// Cursor returns the cursor position.
func (b *Buffer) Cursor() snapshot.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// LineCount returns the number of lines; an empty document has one.
func (b *Buffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// Dirty reports whether the buffer changed since it was opened or saved.
func (b *Buffer) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// String returns the document text.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text()
}

// Save writes the document back to its file through a temp file and rename.
func (b *Buffer) Save() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.path == "" {
		return ErrNoPath
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(b.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".extlaunch-edit-*")
	if err != nil {
		return fmt.Errorf("save %s: %w", b.path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(b.text()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save %s: %w", b.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", b.path, err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("save %s: %w", b.path, err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("save %s: %w", b.path, err)
	}
	b.dirty = false
	return nil
}

// clamp must be called with mu held.
func (b *Buffer) clamp(pos snapshot.Position) snapshot.Position {
	pos.Line = max(0, min(pos.Line, len(b.lines)-1))
	pos.Column = max(0, min(pos.Column, len(b.lines[pos.Line])))
	return pos
}

func (b *Buffer) text() string {
	parts := make([]string, len(b.lines))
	for i, l := range b.lines {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\n")
}

func splitLines(text string) [][]rune {
	raw := strings.Split(text, "\n")
	out := make([][]rune, len(raw))
	for i, l := range raw {
		out[i] = []rune(l)
	}
	return out
}
