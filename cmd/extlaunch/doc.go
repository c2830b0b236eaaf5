// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the extlaunch CLI.
//
// The command tree manages the script registry (script, import), runs
// scripts against a note or a scratch buffer (run) and inspects the
// configuration (config). Every handler receives an *App, which owns the
// output writers and the config provider.
package cmd
