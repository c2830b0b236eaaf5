// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/extlaunch/extlaunch/internal/config"
	"github.com/extlaunch/extlaunch/internal/issue"
	"github.com/extlaunch/extlaunch/internal/registry"
	"github.com/extlaunch/extlaunch/internal/store"
	"github.com/extlaunch/extlaunch/pkg/fspath"
	"github.com/extlaunch/extlaunch/pkg/script"
)

// persistTimeout bounds the final registry flush of a command.
const persistTimeout = 10 * time.Second

type (
	// App wires the CLI's shared dependencies. Every command handler receives it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
		flags  rootFlagValues
		// verbose is resolved from the flag and ui.verbose once config is loaded.
		verbose bool
		style   string
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// session is the per-command state: loaded config, logger and registry.
	session struct {
		cfg       *config.Config
		logger    *slog.Logger
		expand    fspath.Expander
		file      store.File
		registry  *registry.Registry
		persister *store.Persister
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		style:  "dark",
	}, nil
}

// loadConfig loads configuration honoring --config and applies the UI settings.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	a.verbose = a.flags.verbose
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, err
	}
	a.verbose = a.verbose || cfg.UI.Verbose
	if cfg.UI.ColorScheme == config.ColorSchemeLight {
		a.style = "light"
	}
	return cfg, nil
}

// newLogger returns a slog.Logger backed by charmbracelet/log on stderr.
func (a *App) newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.Log.Level.SlogLevel()
	if a.verbose {
		level = slog.LevelDebug
	}
	handler := charmlog.NewWithOptions(a.stderr, charmlog.Options{
		Prefix:          config.AppName,
		Level:           charmlog.Level(level),
		ReportTimestamp: a.verbose,
		TimeFormat:      time.TimeOnly,
	})
	return slog.New(handler)
}

// openSession loads config and the registry. Callers must close the session
// so pending registry writes reach disk.
func (a *App) openSession(ctx context.Context) (*session, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, a.explain(err)
	}
	logger := a.newLogger(cfg)

	expand, err := fspath.HomeExpander()
	if err != nil {
		return nil, err
	}

	file := store.File{Path: expand(cfg.RegistryFile)}
	scripts, err := file.Load()
	if err != nil {
		return nil, a.explain(issue.NewErrorContext().
			WithOperation("load script registry").
			WithResource(file.Path).
			WithSuggestion("Fix the reported field or move the file aside").
			WithIssue(issue.RegistryLoadFailedId).
			Wrap(err).
			BuildError())
	}
	logger.Debug("registry loaded", "path", file.Path, "scripts", len(scripts))

	persister := store.NewPersister(file, logger)
	reg := registry.New(persister)
	reg.Load(scripts)

	return &session{
		cfg:       cfg,
		logger:    logger,
		expand:    expand,
		file:      file,
		registry:  reg,
		persister: persister,
	}, nil
}

// close flushes pending registry writes. A write error is returned only when
// err is nil so the command's own error wins.
func (s *session) close(err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if closeErr := s.persister.Close(ctx); closeErr != nil {
		if err == nil {
			return fmt.Errorf("save script registry %s: %w", s.file.Path, closeErr)
		}
		s.logger.Error("save script registry", "path", s.file.Path, "err", closeErr)
	}
	return err
}

// findScript looks a script up by name.
func (a *App) findScript(s *session, name string) (script.Script, error) {
	found, err := s.registry.FindByName(script.Name(name))
	if err != nil {
		return script.Script{}, a.explain(issue.NewErrorContext().
			WithOperation("find script").
			WithResource(name).
			WithSuggestion("Run 'extlaunch script list' to see registered scripts").
			WithIssue(issue.ScriptNotFoundId).
			Wrap(err).
			BuildError())
	}
	return found, nil
}

// explain prints the suggestions attached to err and, in verbose mode, the
// error chain and catalog entry. It returns err unchanged.
func (a *App) explain(err error) error {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return err
	}
	if a.verbose {
		fmt.Fprintln(a.stderr, WarningStyle.Render("! ")+formatErrorForDisplay(ae, true))
		if entry := issue.Get(ae.Issue); entry != nil {
			if rendered, renderErr := entry.Render(a.style); renderErr == nil {
				fmt.Fprint(a.stderr, rendered)
			}
		}
		return err
	}
	for _, s := range ae.Suggestions {
		fmt.Fprintln(a.stderr, SubtitleStyle.Render("  • "+s))
	}
	return err
}
