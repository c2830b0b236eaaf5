// SPDX-License-Identifier: MPL-2.0

// Package launcher runs a script: it validates the program, captures the
// context snapshot, resolves the command line, spawns the process without
// blocking the caller, and hands the outcome to the dispatcher.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/extlaunch/extlaunch/internal/dispatch"
	"github.com/extlaunch/extlaunch/internal/resolve"
	"github.com/extlaunch/extlaunch/internal/runtime"
	"github.com/extlaunch/extlaunch/internal/snapshot"
	"github.com/extlaunch/extlaunch/pkg/fspath"
	"github.com/extlaunch/extlaunch/pkg/script"
)

// ErrMissingExecutable is the sentinel error wrapped by MissingExecutableError.
var ErrMissingExecutable = errors.New("external program does not exist")

type (
	// Clock supplies wall-clock time for elapsed-time measurement.
	Clock interface {
		Now() time.Time
		Since(t time.Time) time.Duration
	}

	// Options wires a Launcher's collaborators. Provider, Spawner and
	// Dispatcher are required.
	Options struct {
		Provider   snapshot.Provider
		Resolver   *resolve.Resolver
		Spawner    runtime.Spawner
		Dispatcher *dispatch.Dispatcher
		// Expand applies home-marker expansion to the program and working
		// directory. Nil leaves paths as written.
		Expand fspath.Expander
		// Exists reports whether the program path exists. Defaults to fspath.Exists.
		Exists func(path string) bool
		Clock  Clock
		Logger *slog.Logger
	}

	// Launcher starts executions. It holds no per-run state and is safe for
	// concurrent use.
	Launcher struct {
		provider   snapshot.Provider
		resolver   *resolve.Resolver
		spawner    runtime.Spawner
		dispatcher *dispatch.Dispatcher
		expand     fspath.Expander
		exists     func(string) bool
		clock      Clock
		logger     *slog.Logger
	}

	// Outcome is the final record of one execution.
	Outcome struct {
		// State is StateAborted or StateDone.
		State    State
		Script   script.Script
		Snapshot snapshot.Snapshot
		Command  resolve.Command
		Result   *runtime.Result
		Elapsed  time.Duration
		// Err is nil only for a run whose process exited 0 and whose output
		// was dispatched without error.
		Err error
	}

	// Execution tracks one run started by Execute.
	Execution struct {
		state    atomic.Int32
		done     chan Outcome
		finished chan struct{}
		once     sync.Once
		outcome  Outcome
		log      *slog.Logger
	}

	// MissingExecutableError is returned when the expanded program path does not exist.
	MissingExecutableError struct {
		Program string
	}

	realClock struct{}
)

// New creates a Launcher.
func New(opts Options) *Launcher {
	l := &Launcher{
		provider:   opts.Provider,
		resolver:   opts.Resolver,
		spawner:    opts.Spawner,
		dispatcher: opts.Dispatcher,
		expand:     opts.Expand,
		exists:     opts.Exists,
		clock:      opts.Clock,
		logger:     opts.Logger,
	}
	if l.expand == nil {
		l.expand = func(p string) string { return p }
	}
	if l.resolver == nil {
		l.resolver = resolve.New(l.expand)
	}
	if l.exists == nil {
		l.exists = fspath.Exists
	}
	if l.clock == nil {
		l.clock = realClock{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.dispatcher == nil {
		l.dispatcher = dispatch.New(nil, nil, nil, l.logger)
	}
	return l
}

// Execute validates s and spawns it. It returns once the process has been
// handed to the runtime, or immediately if a precondition fails. The child
// is not cancelled when ctx is; it always runs to completion.
func (l *Launcher) Execute(ctx context.Context, s script.Script) *Execution {
	log := l.logger.With("script", s.Name)
	e := newExecution(log)
	log.Debug("executing script", "id", s.ID)

	e.setState(StateValidatingExecutable)
	program := l.expand(s.ExternalProgram)
	if !l.exists(program) {
		err := &MissingExecutableError{Program: program}
		log.Warn("external program does not exist", "program", program)
		report := Report{Script: s, Program: program, WorkDir: s.WorkingDirectory, Err: err}
		l.dispatcher.Aborted(dispatch.Completion{Script: s, Detail: report.String()}, program)
		e.finish(Outcome{State: StateAborted, Script: s, Err: err})
		return e
	}

	e.setState(StateBuildingCommand)
	snap, err := snapshot.Capture(l.provider)
	if err != nil {
		if errors.Is(err, snapshot.ErrNoActiveEditor) {
			log.Info("no active editor, skipping execution")
		} else {
			log.Error("failed to capture context", "error", err)
			report := Report{Script: s, Program: program, Err: err}
			l.dispatcher.Failure(dispatch.Completion{Script: s, Detail: report.String()})
		}
		e.finish(Outcome{State: StateAborted, Script: s, Err: err})
		return e
	}

	workDir := l.expand(s.WorkingDirectory)
	cmd, err := l.resolver.Resolve(s, snap)
	if err != nil {
		log.Error("failed to resolve command line", "error", err)
		report := Report{Script: s, Program: program, WorkDir: workDir, Snapshot: &snap, Err: err}
		l.dispatcher.Failure(dispatch.Completion{Script: s, Cursor: snap.Cursor(), Detail: report.String()})
		e.finish(Outcome{State: StateAborted, Script: s, Snapshot: snap, Err: err})
		return e
	}
	log.Debug("command line resolved", "command", cmd.Line(), "workdir", workDir)

	e.setState(StateSpawning)
	req := runtime.Request{CommandLine: cmd.Line(), WorkDir: workDir}
	go l.run(context.WithoutCancel(ctx), e, s, snap, cmd, req, log)
	return e
}

func (l *Launcher) run(ctx context.Context, e *Execution, s script.Script, snap snapshot.Snapshot,
	cmd resolve.Command, req runtime.Request, log *slog.Logger,
) {
	e.setState(StateRunning)
	start := l.clock.Now()
	res := l.spawner.Spawn(ctx, req)
	elapsed := l.clock.Since(start)

	out := Outcome{State: StateDone, Script: s, Snapshot: snap, Command: cmd, Result: res, Elapsed: elapsed}
	report := Report{
		Script:   s,
		Program:  cmd.Program,
		WorkDir:  req.WorkDir,
		Snapshot: &snap,
		Command:  &cmd,
		Elapsed:  elapsed,
		Result:   res,
		Err:      res.Err(),
	}
	completion := dispatch.Completion{
		Script:  s,
		Cursor:  snap.Cursor(),
		Stdout:  res.Output,
		Elapsed: elapsed,
		Detail:  report.String(),
	}

	if out.Err = res.Err(); out.Err != nil {
		e.setState(StateCompletedError)
		log.Error("script failed", "error", out.Err, "elapsed", FormatElapsed(elapsed))
		e.setState(StateDispatching)
		l.dispatcher.Failure(completion)
	} else {
		e.setState(StateCompletedSuccess)
		log.Debug("script finished", "elapsed", FormatElapsed(elapsed), "stdout_bytes", len(res.Output))
		e.setState(StateDispatching)
		out.Err = l.dispatcher.Success(completion)
	}

	e.finish(out)
}

func newExecution(log *slog.Logger) *Execution {
	return &Execution{
		log:      log,
		done:     make(chan Outcome, 1),
		finished: make(chan struct{}),
	}
}

// State returns the current state.
func (e *Execution) State() State { return State(e.state.Load()) }

// Done delivers the Outcome once and is then closed.
func (e *Execution) Done() <-chan Outcome { return e.done }

// Wait blocks until the execution reaches a terminal state.
func (e *Execution) Wait() Outcome {
	<-e.finished
	return e.outcome
}

func (e *Execution) setState(s State) {
	e.state.Store(int32(s))
	e.log.Debug("state changed", "state", s)
}

func (e *Execution) finish(out Outcome) {
	e.once.Do(func() {
		e.outcome = out
		e.setState(out.State)
		close(e.finished)
		e.done <- out
		close(e.done)
	})
}

// Error implements the error interface for MissingExecutableError.
func (e *MissingExecutableError) Error() string {
	return fmt.Sprintf("external program %s does not exist", e.Program)
}

// Unwrap returns ErrMissingExecutable for errors.Is() compatibility.
func (e *MissingExecutableError) Unwrap() error { return ErrMissingExecutable }

func (realClock) Now() time.Time                  { return time.Now() }
func (realClock) Since(t time.Time) time.Duration { return time.Since(t) }
