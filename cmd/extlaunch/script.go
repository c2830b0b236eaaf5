// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/extlaunch/extlaunch/internal/issue"
	"github.com/extlaunch/extlaunch/internal/registry"
	"github.com/extlaunch/extlaunch/pkg/script"
)

// scriptSetFlags are the field overrides accepted by `script set`.
type scriptSetFlags struct {
	program string
	cwd     string
	insert  string
	debug   bool
	rename  string
}

// newScriptCommand creates the `extlaunch script` command tree.
func newScriptCommand(app *App) *cobra.Command {
	scriptCmd := &cobra.Command{
		Use:     "script",
		Aliases: []string{"scripts"},
		Short:   "Manage registered scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	scriptCmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Register a new script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(s *session) error {
				return createScript(app, s, args[0])
			})
		},
	})

	scriptCmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered scripts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(s *session) error {
				listScripts(app.stdout, s.registry.List())
				return nil
			})
		},
	})

	scriptCmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show a script's settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(s *session) error {
				found, err := app.findScript(s, args[0])
				if err != nil {
					return err
				}
				showScript(app.stdout, found)
				return nil
			})
		},
	})

	scriptCmd.AddCommand(&cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a script",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(s *session) error {
				found, err := app.findScript(s, args[0])
				if err != nil {
					return err
				}
				if err := s.registry.Remove(found.ID); err != nil {
					return err
				}
				fmt.Fprintf(app.stdout, "%s Removed script %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(string(found.Name)))
				return nil
			})
		},
	})

	scriptCmd.AddCommand(newScriptSetCommand(app))
	scriptCmd.AddCommand(newScriptArgCommand(app))

	return scriptCmd
}

func newScriptSetCommand(app *App) *cobra.Command {
	flags := &scriptSetFlags{}
	setCmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Change a script's settings",
		Long: `Change a script's settings. Only the flags given are applied.

Insertion modes:
  none   leave the note untouched
  start  insert stdout at the cursor, keep the cursor before it
  end    insert stdout at the cursor, move the cursor after it`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(s *session) error {
				return setScript(cmd, app, s, args[0], flags)
			})
		},
	}
	setCmd.Flags().StringVar(&flags.program, "program", "", "external program path (a leading ~ is expanded at run time)")
	setCmd.Flags().StringVar(&flags.cwd, "cwd", "", "working directory for the program")
	setCmd.Flags().StringVar(&flags.insert, "insert", "", "insertion mode: none, start or end")
	setCmd.Flags().BoolVar(&flags.debug, "debug", false, "show the debug log after every run")
	setCmd.Flags().StringVar(&flags.rename, "rename", "", "new script name")
	return setCmd
}

func newScriptArgCommand(app *App) *cobra.Command {
	argCmd := &cobra.Command{
		Use:   "arg",
		Short: "Edit a script's arguments",
		Long: `Edit a script's arguments. Arguments are passed to the program in order.

Templates:
  argument         the literal text given
  vault_path       the vault root
  filename         the active note's file name
  filename_path    the directory of the active note
  filename_no_ext  the file name without its extension
  filename_rel     the note path relative to the vault
  filename_full    the absolute note path
  json_struct      the whole context as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	argCmd.AddCommand(&cobra.Command{
		Use:   "add <name> <template> [text]",
		Short: "Append an argument",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(s *session) error {
				tmpl, err := script.ParseArgumentTemplate(args[1])
				if err != nil {
					return err
				}
				arg := script.Templated(tmpl)
				if len(args) == 3 {
					if !tmpl.UsesText() {
						return fmt.Errorf("template %s takes no text; use %s for literal text", tmpl, script.TemplateLiteral)
					}
					arg = script.Literal(args[2])
				}
				return editArguments(app, s, args[0], func(in []script.Argument) ([]script.Argument, error) {
					return append(in, arg), nil
				})
			})
		},
	})

	argCmd.AddCommand(&cobra.Command{
		Use:   "remove <name> <index>",
		Short: "Remove the argument at a zero-based index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[1], err)
			}
			return withSession(cmd, app, func(s *session) error {
				return editArguments(app, s, args[0], func(in []script.Argument) ([]script.Argument, error) {
					if idx < 0 || idx >= len(in) {
						return nil, fmt.Errorf("index %d out of range: script has %d argument(s)", idx, len(in))
					}
					return append(in[:idx], in[idx+1:]...), nil
				})
			})
		},
	})

	argCmd.AddCommand(&cobra.Command{
		Use:   "clear <name>",
		Short: "Remove every argument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(s *session) error {
				return editArguments(app, s, args[0], func([]script.Argument) ([]script.Argument, error) {
					return nil, nil
				})
			})
		},
	})

	return argCmd
}

// withSession opens a session, runs fn and flushes the registry.
func withSession(cmd *cobra.Command, app *App, fn func(*session) error) error {
	s, err := app.openSession(cmd.Context())
	if err != nil {
		return err
	}
	return s.close(fn(s))
}

func createScript(app *App, s *session, name string) error {
	created, err := s.registry.Create(script.Name(name))
	if errors.Is(err, registry.ErrDuplicateName) {
		return app.explain(issue.NewErrorContext().
			WithOperation("create script").
			WithResource(name).
			WithSuggestion("Pick another name, or edit the existing script with 'extlaunch script set'").
			WithIssue(issue.DuplicateScriptNameId).
			Wrap(err).
			BuildError())
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "%s Created script %s %s\n",
		SuccessStyle.Render("✓"), CmdStyle.Render(string(created.Name)), SubtitleStyle.Render("("+string(created.ID)+")"))
	return nil
}

func setScript(cmd *cobra.Command, app *App, s *session, name string, flags *scriptSetFlags) error {
	found, err := app.findScript(s, name)
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	if changed("program") {
		found.ExternalProgram = flags.program
	}
	if changed("cwd") {
		found.WorkingDirectory = flags.cwd
	}
	if changed("insert") {
		mode, parseErr := script.ParseInsertionMode(flags.insert)
		if parseErr != nil {
			return parseErr
		}
		found.Insertion = mode
	}
	if changed("debug") {
		found.DebugOutput = flags.debug
	}
	if changed("rename") {
		newName := script.Name(strings.TrimSpace(flags.rename))
		if ok, errs := newName.IsValid(); !ok {
			return errs[0]
		}
		if other, findErr := s.registry.FindByName(newName); findErr == nil && other.ID != found.ID {
			s.logger.Warn("another script already uses this name", "name", newName)
		}
		found.Name = newName
	}

	if err := s.registry.Update(found.ID, found); err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "%s Updated script %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(string(found.Name)))
	return nil
}

func editArguments(app *App, s *session, name string, edit func([]script.Argument) ([]script.Argument, error)) error {
	found, err := app.findScript(s, name)
	if err != nil {
		return err
	}
	args, err := edit(found.Arguments)
	if err != nil {
		return err
	}
	found.Arguments = args
	if err := s.registry.Update(found.ID, found); err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "%s %s now has %d argument(s)\n",
		SuccessStyle.Render("✓"), CmdStyle.Render(string(found.Name)), len(found.Arguments))
	return nil
}

func listScripts(w io.Writer, scripts []script.Script) {
	if len(scripts) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("No scripts registered. Create one with 'extlaunch script create <name>'."))
		return
	}
	fmt.Fprintln(w, TitleStyle.Render("Scripts"))
	for _, s := range scripts {
		program := s.ExternalProgram
		if program == "" {
			program = SubtitleStyle.Render("(no program)")
		}
		fmt.Fprintf(w, "  %s %s %s\n", CmdStyle.Render(string(s.Name)), program,
			SubtitleStyle.Render(fmt.Sprintf("[insert: %s, args: %d]", s.Insertion, len(s.Arguments))))
	}
}

func showScript(w io.Writer, s script.Script) {
	field := func(key, value string) {
		if value == "" {
			value = SubtitleStyle.Render("(not set)")
		}
		fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render(key), value)
	}

	fmt.Fprintln(w, TitleStyle.Render(string(s.Name)))
	field("id", string(s.ID))
	field("program", s.ExternalProgram)
	field("working directory", s.WorkingDirectory)
	field("insert", string(s.Insertion))
	field("debug output", strconv.FormatBool(s.DebugOutput))

	fmt.Fprintf(w, "%s:\n", CmdStyle.Render("arguments"))
	if len(s.Arguments) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none)"))
	}
	for i, a := range s.Arguments {
		if a.Template.UsesText() {
			fmt.Fprintf(w, "  %d. %s %q\n", i, a.Template, a.Text)
			continue
		}
		fmt.Fprintf(w, "  %d. %s\n", i, a.Template)
	}
}
