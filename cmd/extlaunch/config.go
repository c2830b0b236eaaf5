// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/extlaunch/extlaunch/internal/config"
)

// newConfigCommand creates the `extlaunch config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage extlaunch configuration",
		Long: `Manage extlaunch configuration.

Configuration is stored in:
  - Linux: ~/.config/extlaunch/config.cue
  - macOS: ~/Library/Application Support/extlaunch/config.cue
  - Windows: %APPDATA%\extlaunch\config.cue

A config.cue in the working directory is used when the platform file is
missing. EXTLAUNCH_* environment variables override file values, for
example EXTLAUNCH_RUNTIME=virtual or EXTLAUNCH_LOG_LEVEL=debug.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.explain(err)
			}
			showConfig(app, cfg)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.flags.configPath != "" {
				fmt.Fprintln(app.stdout, app.flags.configPath)
				return nil
			}
			path, err := config.FilePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.explain(err)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(app *App, cfg *config.Config) {
	w := app.stdout
	key := CmdStyle.Render
	value := SuccessStyle.Render

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if cfg.Source != "" {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), cfg.Source)
	} else {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", key("registry_file"), value(cfg.RegistryFile))
	fmt.Fprintf(w, "%s: %s\n", key("vault_root"), value(cfg.VaultRoot))
	fmt.Fprintf(w, "%s: %s\n", key("runtime"), value(string(cfg.Runtime)))
	shell := cfg.Shell
	if shell == "" {
		shell = SubtitleStyle.Render("(auto-detect)")
	} else {
		shell = value(shell)
	}
	fmt.Fprintf(w, "%s: %s\n", key("shell"), shell)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", value(string(cfg.UI.ColorScheme)))
	fmt.Fprintf(w, "  verbose: %s\n", value(strconv.FormatBool(cfg.UI.Verbose)))
	fmt.Fprintf(w, "%s:\n", key("log"))
	fmt.Fprintf(w, "  level: %s\n", value(string(cfg.Log.Level)))
}
