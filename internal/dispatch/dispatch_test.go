// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/extlaunch/extlaunch/internal/snapshot"
	"github.com/extlaunch/extlaunch/pkg/script"
)

type (
	insertion struct {
		pos  snapshot.Position
		text string
	}

	fakeSink struct {
		inserts   []insertion
		cursors   []snapshot.Position
		insertErr error
	}

	recorder struct {
		notes []string
		logs  []Log
	}
)

func (s *fakeSink) InsertAt(pos snapshot.Position, text string) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserts = append(s.inserts, insertion{pos, text})
	return nil
}

func (s *fakeSink) SetCursor(pos snapshot.Position) error {
	s.cursors = append(s.cursors, pos)
	return nil
}

func (r *recorder) Notify(msg string) { r.notes = append(r.notes, msg) }
func (r *recorder) ShowLog(l Log)     { r.logs = append(r.logs, l) }

func newDispatcher(sink TextSink, rec *recorder) *Dispatcher {
	return New(sink, rec, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func completion(mode script.InsertionMode, debug bool, stdout string) Completion {
	s := script.New("greet")
	s.Insertion = mode
	s.DebugOutput = debug
	return Completion{
		Script:  s,
		Cursor:  snapshot.Position{Line: 3, Column: 2},
		Stdout:  stdout,
		Elapsed: 1500 * time.Millisecond,
		Detail:  "detail",
	}
}

func TestSuccess_InsertionModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode        script.InsertionMode
		stdout      string
		wantInserts int
		wantCursor  *snapshot.Position
	}{
		{script.InsertNone, "hello", 0, nil},
		{script.InsertStart, "hello", 1, nil},
		{script.InsertEnd, "hello", 1, &snapshot.Position{Line: 3, Column: 7}},
		{script.InsertEnd, "héllo✓", 1, &snapshot.Position{Line: 3, Column: 8}},
		{script.InsertEnd, "", 1, &snapshot.Position{Line: 3, Column: 2}},
		// Multi-line output keeps the captured line.
		{script.InsertEnd, "a\nbc\n", 1, &snapshot.Position{Line: 3, Column: 7}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+tt.stdout, func(t *testing.T) {
			t.Parallel()

			sink := &fakeSink{}
			rec := &recorder{}
			err := newDispatcher(sink, rec).Success(completion(tt.mode, false, tt.stdout))
			if err != nil {
				t.Fatalf("Success() unexpected error: %v", err)
			}

			if len(sink.inserts) != tt.wantInserts {
				t.Fatalf("inserts = %d, want %d", len(sink.inserts), tt.wantInserts)
			}
			if tt.wantInserts > 0 {
				got := sink.inserts[0]
				if got.pos != (snapshot.Position{Line: 3, Column: 2}) || got.text != tt.stdout {
					t.Errorf("insert = %+v", got)
				}
			}
			switch {
			case tt.wantCursor == nil && len(sink.cursors) != 0:
				t.Errorf("cursor moved to %v, want untouched", sink.cursors)
			case tt.wantCursor != nil && (len(sink.cursors) != 1 || sink.cursors[0] != *tt.wantCursor):
				t.Errorf("cursors = %v, want [%v]", sink.cursors, *tt.wantCursor)
			}

			if len(rec.notes) != 1 || rec.notes[0] != "Script greet executed successfully" {
				t.Errorf("notes = %v", rec.notes)
			}
			if len(rec.logs) != 0 {
				t.Errorf("logs shown without debug output: %v", rec.logs)
			}
		})
	}
}

func TestSuccess_DebugLog(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	if err := newDispatcher(nil, rec).Success(completion(script.InsertEnd, true, "x")); err != nil {
		t.Fatal(err)
	}
	if len(rec.logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(rec.logs))
	}
	l := rec.logs[0]
	if l.IsError || l.Detail != "detail" || l.Elapsed != 1500*time.Millisecond || l.Script != "greet" {
		t.Errorf("log = %+v", l)
	}
}

func TestSuccess_SinkError(t *testing.T) {
	t.Parallel()

	boom := errors.New("read-only")
	sink := &fakeSink{insertErr: boom}
	rec := &recorder{}
	err := newDispatcher(sink, rec).Success(completion(script.InsertEnd, false, "x"))
	if !errors.Is(err, boom) {
		t.Errorf("Success() error = %v, want %v", err, boom)
	}
	if len(sink.cursors) != 0 {
		t.Error("cursor moved after failed insert")
	}
	if len(rec.notes) != 1 {
		t.Errorf("notes = %v, want success notification", rec.notes)
	}
}

func TestFailure(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	rec := &recorder{}
	newDispatcher(sink, rec).Failure(completion(script.InsertEnd, true, "ignored"))

	if len(sink.inserts) != 0 || len(sink.cursors) != 0 {
		t.Error("Failure() touched the editor")
	}
	if len(rec.notes) != 1 || rec.notes[0] != "!!! Script greet not executed successfully" {
		t.Errorf("notes = %v", rec.notes)
	}
	if len(rec.logs) != 1 || !rec.logs[0].IsError {
		t.Errorf("logs = %+v, want one error log", rec.logs)
	}
}

func TestAborted(t *testing.T) {
	t.Parallel()

	for _, debug := range []bool{false, true} {
		rec := &recorder{}
		sink := &fakeSink{}
		newDispatcher(sink, rec).Aborted(completion(script.InsertStart, debug, ""), "/nope/tool")

		if len(rec.notes) != 1 || rec.notes[0] != "The external program /nope/tool does not exist." {
			t.Errorf("debug=%v notes = %v", debug, rec.notes)
		}
		wantLogs := 0
		if debug {
			wantLogs = 1
		}
		if len(rec.logs) != wantLogs {
			t.Errorf("debug=%v logs = %d, want %d", debug, len(rec.logs), wantLogs)
		}
		if len(sink.inserts) != 0 {
			t.Error("Aborted() touched the editor")
		}
	}
}

func TestNilCollaborators(t *testing.T) {
	t.Parallel()

	d := New(nil, nil, nil, nil)
	if err := d.Success(completion(script.InsertEnd, true, "x")); err != nil {
		t.Errorf("Success() error = %v", err)
	}
	d.Failure(completion(script.InsertEnd, true, "x"))
	d.Aborted(completion(script.InsertEnd, true, "x"), "/p")
}

func TestFuncAdapters(t *testing.T) {
	t.Parallel()

	var got string
	var gotLog Log
	d := New(nil, NotifierFunc(func(m string) { got = m }), LogSurfaceFunc(func(l Log) { gotLog = l }), nil)
	d.Failure(completion(script.InsertNone, true, ""))
	if got == "" || !gotLog.IsError {
		t.Errorf("adapters not called: %q %+v", got, gotLog)
	}
}
