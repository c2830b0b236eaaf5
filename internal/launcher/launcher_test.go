// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	goruntime "runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/extlaunch/extlaunch/internal/dispatch"
	"github.com/extlaunch/extlaunch/internal/editor"
	"github.com/extlaunch/extlaunch/internal/resolve"
	"github.com/extlaunch/extlaunch/internal/runtime"
	"github.com/extlaunch/extlaunch/internal/snapshot"
	"github.com/extlaunch/extlaunch/internal/testutil"
	"github.com/extlaunch/extlaunch/pkg/fspath"
	"github.com/extlaunch/extlaunch/pkg/script"
)

type (
	fakeSpawner struct {
		mu       sync.Mutex
		requests []runtime.Request
		result   runtime.Result
		clock    *testutil.FakeClock
		advance  time.Duration
		gate     chan struct{}
	}

	surfaces struct {
		mu    sync.Mutex
		notes []string
		logs  []dispatch.Log
	}
)

func (f *fakeSpawner) Name() string { return "fake" }

func (f *fakeSpawner) Spawn(ctx context.Context, req runtime.Request) *runtime.Result {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.clock != nil {
		f.clock.Advance(f.advance)
	}
	res := f.result
	return &res
}

func (f *fakeSpawner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (s *surfaces) Notify(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, msg)
}

func (s *surfaces) ShowLog(l dispatch.Log) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fixture struct {
	buf      *editor.Buffer
	surf     *surfaces
	spawner  *fakeSpawner
	clock    *testutil.FakeClock
	launcher *Launcher
}

func newFixture(t *testing.T, exists bool, provider snapshot.Provider) *fixture {
	t.Helper()
	f := &fixture{
		buf:   editor.NewBuffer("Title\nword "),
		surf:  &surfaces{},
		clock: testutil.NewFakeClock(time.Time{}),
	}
	f.spawner = &fakeSpawner{clock: f.clock, advance: 61234 * time.Millisecond, result: runtime.Result{Output: "42"}}
	logger := quietLogger()
	f.launcher = New(Options{
		Provider:   provider,
		Spawner:    f.spawner,
		Dispatcher: dispatch.New(f.buf, f.surf, f.surf, logger),
		Expand:     fspath.StaticExpander("/home/u"),
		Exists:     func(string) bool { return exists },
		Clock:      f.clock,
		Logger:     logger,
	})
	return f
}

func activeNote() snapshot.Static {
	return snapshot.Static{
		Root:      "/vault",
		File:      "notes/today.md",
		Position:  snapshot.Position{Line: 1, Column: 5},
		HasCursor: true,
	}
}

func TestExecute_MissingExecutable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false, activeNote())
	s := script.New("count")
	s.ExternalProgram = "~/bin/missing"
	s.Insertion = script.InsertEnd
	s.DebugOutput = true

	out := f.launcher.Execute(context.Background(), s).Wait()

	if out.State != StateAborted {
		t.Errorf("State = %v, want aborted", out.State)
	}
	var missing *MissingExecutableError
	if !errors.As(out.Err, &missing) || missing.Program != "/home/u/bin/missing" {
		t.Errorf("Err = %v, want MissingExecutableError for expanded path", out.Err)
	}
	if f.spawner.calls() != 0 {
		t.Error("process spawned for missing executable")
	}
	if f.buf.Dirty() {
		t.Error("editor mutated for missing executable")
	}
	if len(f.surf.notes) != 1 || f.surf.notes[0] != "The external program /home/u/bin/missing does not exist." {
		t.Errorf("notes = %v", f.surf.notes)
	}
	if len(f.surf.logs) != 1 || !f.surf.logs[0].IsError {
		t.Errorf("logs = %+v, want one error log", f.surf.logs)
	}
}

func TestExecute_NoActiveEditorIsSilent(t *testing.T) {
	t.Parallel()

	p := activeNote()
	p.HasCursor = false
	f := newFixture(t, true, p)
	s := script.New("count")
	s.DebugOutput = true

	out := f.launcher.Execute(context.Background(), s).Wait()
	if !errors.Is(out.Err, snapshot.ErrNoActiveEditor) || out.State != StateAborted {
		t.Errorf("Outcome = %+v", out)
	}
	if f.spawner.calls() != 0 || len(f.surf.notes) != 0 || len(f.surf.logs) != 0 {
		t.Error("no-editor run produced side effects")
	}
}

func TestExecute_SuccessInsertsAtEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, activeNote())
	s := script.New("answer")
	s.ExternalProgram = "/bin/answer"
	s.WorkingDirectory = "~/work"
	s.Insertion = script.InsertEnd
	s.Arguments = []script.Argument{script.Templated(script.TemplateFilename), script.Literal("~/x")}

	out := f.launcher.Execute(context.Background(), s).Wait()
	if out.Err != nil {
		t.Fatalf("Err = %v", out.Err)
	}
	if out.State != StateDone {
		t.Errorf("State = %v, want done", out.State)
	}
	if out.Elapsed != 61234*time.Millisecond {
		t.Errorf("Elapsed = %v", out.Elapsed)
	}

	req := f.spawner.requests[0]
	if req.CommandLine != `"/bin/answer" "today.md" "/home/u/x"` {
		t.Errorf("CommandLine = %s", req.CommandLine)
	}
	if req.WorkDir != "/home/u/work" {
		t.Errorf("WorkDir = %q", req.WorkDir)
	}

	if got := f.buf.String(); got != "Title\nword 42" {
		t.Errorf("buffer = %q", got)
	}
	if got := f.buf.Cursor(); got != (snapshot.Position{Line: 1, Column: 7}) {
		t.Errorf("cursor = %v, want 1:7", got)
	}
	if len(f.surf.notes) != 1 || f.surf.notes[0] != "Script answer executed successfully" {
		t.Errorf("notes = %v", f.surf.notes)
	}
}

func TestExecute_SuccessDebugLog(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, activeNote())
	s := script.New("answer")
	s.ExternalProgram = "/bin/answer"
	s.DebugOutput = true

	_ = f.launcher.Execute(context.Background(), s).Wait()
	if len(f.surf.logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(f.surf.logs))
	}
	l := f.surf.logs[0]
	if l.IsError || l.Elapsed != 61234*time.Millisecond {
		t.Errorf("log = %+v", l)
	}
	for _, want := range []string{"Command: /bin/answer", "Full command: \"/bin/answer\"", "Execution time: 1m 1s 234ms", "stdout:\n42", `"filename": "today.md"`} {
		if !strings.Contains(l.Detail, want) {
			t.Errorf("detail missing %q:\n%s", want, l.Detail)
		}
	}
}

func TestExecute_FailureLeavesEditorUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, activeNote())
	f.spawner.result = runtime.Result{ExitCode: 2, Output: "partial", ErrOutput: "bad"}
	s := script.New("broken")
	s.ExternalProgram = "/bin/broken"
	s.Insertion = script.InsertStart
	s.DebugOutput = true

	out := f.launcher.Execute(context.Background(), s).Wait()
	if !errors.Is(out.Err, runtime.ErrNonZeroExit) {
		t.Errorf("Err = %v, want ErrNonZeroExit", out.Err)
	}
	if f.buf.Dirty() {
		t.Error("editor mutated on failure")
	}
	if len(f.surf.notes) != 1 || f.surf.notes[0] != "!!! Script broken not executed successfully" {
		t.Errorf("notes = %v", f.surf.notes)
	}
	if len(f.surf.logs) != 1 || !f.surf.logs[0].IsError || !strings.Contains(f.surf.logs[0].Detail, "Error: ") {
		t.Errorf("logs = %+v", f.surf.logs)
	}
}

func TestExecute_UnknownTemplateAborts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, activeNote())
	s := script.New("bad")
	s.Arguments = []script.Argument{{Template: "clipboard"}}

	out := f.launcher.Execute(context.Background(), s).Wait()
	if !errors.Is(out.Err, resolve.ErrUnknownTemplate) || out.State != StateAborted {
		t.Errorf("Outcome = %+v", out)
	}
	if f.spawner.calls() != 0 {
		t.Error("spawned with unresolvable arguments")
	}
}

func TestExecute_DoesNotBlockAndKeepsCapturedCursor(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, activeNote())
	f.spawner.gate = make(chan struct{})
	f.spawner.result = runtime.Result{Output: "!"}
	s := script.New("slow")
	s.Insertion = script.InsertStart

	e := f.launcher.Execute(context.Background(), s)
	if st := e.State(); st.IsTerminal() {
		t.Fatalf("State = %v before the process finished", st)
	}

	// Edits made while the process runs do not move the insertion point.
	_ = f.buf.InsertAt(snapshot.Position{Line: 0, Column: 0}, ">> ")
	close(f.spawner.gate)

	out := <-e.Done()
	if out.Err != nil {
		t.Fatal(out.Err)
	}
	if got := f.buf.String(); got != ">> Title\nword !" {
		t.Errorf("buffer = %q", got)
	}
	if _, ok := <-e.Done(); ok {
		t.Error("Done() delivered more than one outcome")
	}
	if e.Wait().State != StateDone {
		t.Error("Wait() after Done() lost the outcome")
	}
}

func TestExecute_IgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, activeNote())
	f.spawner.gate = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	e := f.launcher.Execute(ctx, script.New("x"))
	cancel()
	close(f.spawner.gate)
	if out := e.Wait(); out.Err != nil {
		t.Errorf("Err = %v, want completion despite cancel", out.Err)
	}
}

func TestExecute_Echo(t *testing.T) {
	if goruntime.GOOS == "windows" {
		t.Skip("skipping: requires /bin/echo")
	}
	t.Parallel()

	buf := editor.NewBuffer("")
	surf := &surfaces{}
	dir := t.TempDir()
	l := New(Options{
		Provider:   snapshot.Static{Root: dir, File: "note.md", HasCursor: true},
		Spawner:    runtime.NewNativeRuntime("/bin/sh"),
		Dispatcher: dispatch.New(buf, surf, surf, quietLogger()),
		Logger:     quietLogger(),
	})

	s := script.New("echo")
	s.ExternalProgram = "/bin/echo"
	s.WorkingDirectory = dir
	s.Insertion = script.InsertEnd
	s.Arguments = []script.Argument{script.Templated(script.TemplateFilename)}

	out := l.Execute(context.Background(), s).Wait()
	if out.Err != nil {
		t.Fatalf("Err = %v", out.Err)
	}
	if got := out.Command.Tokens(); len(got) != 2 || got[0] != "/bin/echo" || got[1] != `"note.md"` {
		t.Errorf("Tokens() = %q", got)
	}
	if buf.String() != "note.md\n" {
		t.Errorf("buffer = %q", buf.String())
	}
	if got := buf.Cursor(); got.Line != 0 {
		t.Errorf("cursor line = %d, want 0", got.Line)
	}
}

func TestFormatElapsed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m 0s 0ms"},
		{999 * time.Millisecond, "0m 0s 999ms"},
		{1999*time.Millisecond + 900*time.Microsecond, "0m 1s 999ms"},
		{61234 * time.Millisecond, "1m 1s 234ms"},
		{59*time.Minute + 59*time.Second, "59m 59s 0ms"},
		{61 * time.Minute, "1m 0s 0ms"},
		{75*time.Minute + 1500*time.Millisecond, "15m 1s 500ms"},
		{-time.Second, "0m 0s 0ms"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.d); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestState(t *testing.T) {
	t.Parallel()

	for s := StateIdle; s <= StateDone; s++ {
		if err := s.Validate(); err != nil {
			t.Errorf("%v.Validate() = %v", s, err)
		}
		if s.String() == "unknown" {
			t.Errorf("State(%d) has no name", s)
		}
		if s.IsTerminal() != (s == StateAborted || s == StateDone) {
			t.Errorf("%v.IsTerminal() = %v", s, s.IsTerminal())
		}
	}
	if err := State(42).Validate(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Validate() = %v, want ErrInvalidState", err)
	}
}
