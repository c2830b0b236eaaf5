// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/extlaunch/extlaunch/internal/dispatch"
	"github.com/extlaunch/extlaunch/internal/editor"
	"github.com/extlaunch/extlaunch/internal/issue"
	"github.com/extlaunch/extlaunch/internal/launcher"
	"github.com/extlaunch/extlaunch/internal/resolve"
	"github.com/extlaunch/extlaunch/internal/runtime"
	"github.com/extlaunch/extlaunch/internal/snapshot"
	"github.com/extlaunch/extlaunch/internal/watch"
	"github.com/extlaunch/extlaunch/pkg/fspath"
	"github.com/extlaunch/extlaunch/pkg/script"
)

type (
	runFlagValues struct {
		file    string
		line    int
		column  int
		vault   string
		runtime string
		dryRun  bool
		watch   []string
	}

	// runTarget is the note a run reads its context from and writes into.
	// An empty path is a scratch buffer.
	runTarget struct {
		vault string
		path  string
		rel   string
	}
)

func newRunCommand(app *App) *cobra.Command {
	flags := &runFlagValues{}
	runCmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a script against a note",
		Long: `Run a script against a note.

The note given by --file is the active file and --line/--column the cursor,
both zero-based. Output is inserted according to the script's insertion mode
and the note is saved. Without --file the run uses an empty scratch buffer
and prints it to stdout when the script inserted into it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd.Context(), app, flags, args[0])
		},
	}
	runCmd.Flags().StringVar(&flags.file, "file", "", "active note (relative to the working directory)")
	runCmd.Flags().IntVar(&flags.line, "line", 0, "cursor line, zero-based")
	runCmd.Flags().IntVar(&flags.column, "column", 0, "cursor column in characters, zero-based")
	runCmd.Flags().StringVar(&flags.vault, "vault", "", "vault root (default from config)")
	runCmd.Flags().StringVar(&flags.runtime, "runtime", "", "runtime override: native or virtual")
	runCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the resolved command line without running it")
	runCmd.Flags().StringSliceVar(&flags.watch, "watch", nil, "re-run when vault files matching these globs change")
	runCmd.MarkFlagsMutuallyExclusive("dry-run", "watch")
	return runCmd
}

func runScript(ctx context.Context, app *App, flags *runFlagValues, name string) error {
	sess, err := app.openSession(ctx)
	if err != nil {
		return err
	}
	return sess.close(runInSession(ctx, app, sess, flags, name))
}

func runInSession(ctx context.Context, app *App, sess *session, flags *runFlagValues, name string) error {
	found, err := app.findScript(sess, name)
	if err != nil {
		return err
	}

	vault := flags.vault
	if vault == "" {
		vault = sess.cfg.VaultRoot
	}
	target, err := newRunTarget(sess.expand(vault), flags.file)
	if err != nil {
		return err
	}
	provider := snapshot.Static{
		Root:      target.vault,
		File:      target.rel,
		Position:  snapshot.Position{Line: flags.line, Column: flags.column},
		HasCursor: true,
	}

	if flags.dryRun {
		return printDryRun(app, sess, found, provider)
	}

	mode := sess.cfg.Runtime
	if flags.runtime != "" {
		mode = runtime.RuntimeMode(flags.runtime)
	}
	spawner, err := runtime.New(mode, sess.cfg.Shell)
	if err != nil {
		return app.explain(issue.NewErrorContext().
			WithOperation("select runtime").
			WithResource(string(mode)).
			WithSuggestion("Use --runtime native or --runtime virtual").
			WithIssue(issue.InvalidRuntimeModeId).
			Wrap(err).
			BuildError())
	}

	once := func(ctx context.Context) error {
		buf, openErr := target.open()
		if openErr != nil {
			return openErr
		}
		l := launcher.New(launcher.Options{
			Provider:   provider,
			Spawner:    spawner,
			Dispatcher: dispatch.New(buf, &terminalNotifier{w: app.stderr}, &terminalLogView{w: app.stderr}, sess.logger),
			Expand:     sess.expand,
			Logger:     sess.logger,
		})
		out := l.Execute(ctx, found).Wait()
		if flushErr := target.flush(app, buf); flushErr != nil {
			return flushErr
		}
		return app.outcomeError(out)
	}

	if len(flags.watch) == 0 {
		return once(ctx)
	}
	return watchScript(ctx, app, sess, found, target, flags.watch, once)
}

// newRunTarget resolves vault and file to absolute paths. The file must live
// inside the vault.
func newRunTarget(vault, file string) (*runTarget, error) {
	absVault, err := filepath.Abs(vault)
	if err != nil {
		return nil, fmt.Errorf("resolve vault %q: %w", vault, err)
	}
	if !fspath.IsDir(absVault) {
		return nil, fmt.Errorf("vault %s is not a directory", absVault)
	}
	t := &runTarget{vault: absVault}
	if file == "" {
		return t, nil
	}

	absFile, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolve file %q: %w", file, err)
	}
	rel, err := filepath.Rel(absVault, absFile)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("file %s is outside the vault %s", absFile, absVault)
	}
	t.path = absFile
	t.rel = filepath.ToSlash(rel)
	return t, nil
}

// open reads the note from disk, or returns an empty scratch buffer.
func (t *runTarget) open() (*editor.Buffer, error) {
	if t.path == "" {
		return editor.NewBuffer(""), nil
	}
	return editor.Open(t.path)
}

// flush saves a modified note, or prints a modified scratch buffer.
func (t *runTarget) flush(app *App, buf *editor.Buffer) error {
	if !buf.Dirty() {
		return nil
	}
	if t.path == "" {
		fmt.Fprint(app.stdout, buf.String())
		return nil
	}
	return buf.Save()
}

func printDryRun(app *App, sess *session, s script.Script, provider snapshot.Provider) error {
	snap, err := snapshot.Capture(provider)
	if err != nil {
		return err
	}
	cmd, err := resolve.New(sess.expand).Resolve(s, snap)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.stdout, cmd.Line())
	if app.verbose {
		fmt.Fprintf(app.stderr, "%s: %s\n", CmdStyle.Render("working directory"), sess.expand(s.WorkingDirectory))
		fmt.Fprintf(app.stderr, "%s: %s\n", CmdStyle.Render("insert"), s.Insertion)
	}
	if !fspath.Exists(cmd.Program) {
		fmt.Fprintf(app.stderr, "%s %s\n", WarningStyle.Render("!"), dispatch.MissingProgramMessage(cmd.Program))
	}
	return nil
}

// outcomeError maps a finished execution to the command's error and exit code.
func (a *App) outcomeError(out launcher.Outcome) error {
	if out.Err == nil {
		return nil
	}

	var nonZero *runtime.NonZeroExitError
	switch {
	case errors.Is(out.Err, launcher.ErrMissingExecutable):
		return &ExitError{Code: 1, Err: a.explain(issue.NewErrorContext().
			WithOperation("run script").
			WithResource(string(out.Script.Name)).
			WithSuggestion("Set an existing program with 'extlaunch script set --program'").
			WithIssue(issue.ExecutableNotFoundId).
			Wrap(out.Err).
			BuildError())}
	case errors.As(out.Err, &nonZero):
		return &ExitError{Code: int(nonZero.Code), Err: a.explain(issue.NewErrorContext().
			WithOperation("run script").
			WithResource(string(out.Script.Name)).
			WithSuggestion("Enable debug output with 'extlaunch script set --debug' to see stderr").
			WithIssue(issue.ScriptExecutionFailedId).
			Wrap(out.Err).
			BuildError())}
	default:
		return &ExitError{Code: 1, Err: out.Err}
	}
}

func watchScript(ctx context.Context, app *App, sess *session, s script.Script, target *runTarget,
	include []string, once func(context.Context) error,
) error {
	fmt.Fprintf(app.stderr, "%s Watch mode: initial run of %s\n", CmdStyle.Render("→"), s.Name)
	if err := once(ctx); err != nil {
		fmt.Fprintf(app.stderr, "%s Run failed: %v\n", WarningStyle.Render("!"), err)
	}

	var skip []string
	if target.path != "" {
		skip = append(skip, target.path)
	}
	w, err := watch.New(watch.Options{
		Root:    target.vault,
		Include: include,
		Skip:    skip,
		Logger:  sess.logger,
		Trigger: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(app.stderr, "%s %d change(s), re-running %s\n", CmdStyle.Render("→"), len(changed), s.Name)
			if err := once(ctx); err != nil {
				fmt.Fprintf(app.stderr, "%s Run failed: %v\n", WarningStyle.Render("!"), err)
			}
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	fmt.Fprintf(app.stderr, "%s Watching %s (Ctrl+C to stop)\n", CmdStyle.Render("→"), target.vault)
	return w.Run(ctx)
}
