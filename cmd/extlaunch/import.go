// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/extlaunch/extlaunch/internal/issue"
	"github.com/extlaunch/extlaunch/internal/store"
)

func newImportCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <data.json>",
		Short: "Import scripts from a plugin settings file",
		Long: `Import scripts from a plugin settings file (data.json).

Each imported script is registered under a new id. Scripts whose names are
already registered are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(s *session) error {
				return importScripts(app, s, args[0])
			})
		},
	}
}

func importScripts(app *App, s *session, path string) error {
	imported, err := store.Import(path)
	if err != nil {
		return app.explain(issue.NewErrorContext().
			WithOperation("import scripts").
			WithResource(path).
			WithSuggestion("Point at the plugin's data.json file").
			WithIssue(issue.ImportFailedId).
			Wrap(err).
			BuildError())
	}

	var added, skipped int
	for _, in := range imported {
		created, createErr := s.registry.Create(in.Name)
		if createErr != nil {
			s.logger.Warn("skipping script", "name", in.Name, "err", createErr)
			skipped++
			continue
		}
		in.ID = created.ID
		in.Name = created.Name
		if err := s.registry.Update(created.ID, in); err != nil {
			return err
		}
		added++
	}

	fmt.Fprintf(app.stdout, "%s Imported %d script(s)", SuccessStyle.Render("✓"), added)
	if skipped > 0 {
		fmt.Fprint(app.stdout, WarningStyle.Render(fmt.Sprintf(", skipped %d", skipped)))
	}
	fmt.Fprintln(app.stdout)
	return nil
}
