// SPDX-License-Identifier: MPL-2.0

// Package dispatch routes the outcome of a script run to the editor, the
// notification area and the log surface.
package dispatch

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/extlaunch/extlaunch/internal/snapshot"
	"github.com/extlaunch/extlaunch/pkg/script"
)

type (
	// TextSink is the editor a script's output is written into.
	TextSink interface {
		// InsertAt inserts text at pos without replacing anything.
		InsertAt(pos snapshot.Position, text string) error
		// SetCursor moves the editor cursor.
		SetCursor(pos snapshot.Position) error
	}

	// Notifier shows short, transient messages.
	Notifier interface {
		Notify(msg string)
	}

	// LogSurface shows a persistent, detailed log.
	LogSurface interface {
		ShowLog(l Log)
	}

	// Log is one detailed log entry.
	Log struct {
		Script  script.Name
		IsError bool
		Elapsed time.Duration
		Detail  string
	}

	// Completion carries what the launcher knows about a finished run.
	Completion struct {
		Script script.Script
		// Cursor is the position captured before the process was spawned.
		Cursor  snapshot.Position
		Stdout  string
		Elapsed time.Duration
		// Detail is the rendered debug report.
		Detail string
	}

	// Dispatcher applies a script's insertion mode and reports the outcome.
	// Any collaborator may be nil.
	Dispatcher struct {
		sink     TextSink
		notifier Notifier
		logs     LogSurface
		logger   *slog.Logger
	}

	// NotifierFunc adapts a function to Notifier.
	NotifierFunc func(msg string)

	// LogSurfaceFunc adapts a function to LogSurface.
	LogSurfaceFunc func(l Log)
)

// New creates a Dispatcher.
func New(sink TextSink, notifier Notifier, logs LogSurface, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sink: sink, notifier: notifier, logs: logs, logger: logger}
}

// SuccessMessage is the notification shown after a successful run.
func SuccessMessage(name script.Name) string {
	return fmt.Sprintf("Script %s executed successfully", name)
}

// FailureMessage is the notification shown after a failed run.
func FailureMessage(name script.Name) string {
	return fmt.Sprintf("!!! Script %s not executed successfully", name)
}

// MissingProgramMessage is the notification shown when the program path does not exist.
func MissingProgramMessage(program string) string {
	return fmt.Sprintf("The external program %s does not exist.", program)
}

// Success inserts stdout for InsertStart and InsertEnd, moving the cursor
// past the inserted text for InsertEnd. The new column is the captured column
// plus the rune count of stdout, on the captured line, even when stdout
// spans several lines.
func (d *Dispatcher) Success(c Completion) error {
	var err error
	if c.Script.Insertion.Inserts() && d.sink != nil {
		err = d.insert(c)
	}

	d.notify(SuccessMessage(c.Script.Name))
	if c.Script.DebugOutput {
		d.show(Log{Script: c.Script.Name, Elapsed: c.Elapsed, Detail: c.Detail})
	}
	return err
}

// Failure reports a run that could not start or exited unsuccessfully.
// The editor is never touched.
func (d *Dispatcher) Failure(c Completion) {
	d.notify(FailureMessage(c.Script.Name))
	if c.Script.DebugOutput {
		d.show(Log{Script: c.Script.Name, IsError: true, Elapsed: c.Elapsed, Detail: c.Detail})
	}
}

// Aborted reports a run stopped because program is missing.
func (d *Dispatcher) Aborted(c Completion, program string) {
	d.notify(MissingProgramMessage(program))
	if c.Script.DebugOutput {
		d.show(Log{Script: c.Script.Name, IsError: true, Detail: c.Detail})
	}
}

func (d *Dispatcher) insert(c Completion) error {
	if err := d.sink.InsertAt(c.Cursor, c.Stdout); err != nil {
		d.logger.Error("failed to insert script output", "script", c.Script.Name, "position", c.Cursor.String(), "error", err)
		return fmt.Errorf("insert output: %w", err)
	}
	if c.Script.Insertion != script.InsertEnd {
		return nil
	}

	next := c.Cursor.Shift(utf8.RuneCountInString(c.Stdout))
	if err := d.sink.SetCursor(next); err != nil {
		d.logger.Error("failed to move cursor", "script", c.Script.Name, "position", next.String(), "error", err)
		return fmt.Errorf("move cursor: %w", err)
	}
	return nil
}

func (d *Dispatcher) notify(msg string) {
	if d.notifier != nil {
		d.notifier.Notify(msg)
	}
}

func (d *Dispatcher) show(l Log) {
	if d.logs != nil {
		d.logs.ShowLog(l)
	}
}

// Notify calls f(msg).
func (f NotifierFunc) Notify(msg string) { f(msg) }

// ShowLog calls f(l).
func (f LogSurfaceFunc) ShowLog(l Log) { f(l) }
