// SPDX-License-Identifier: MPL-2.0

// Package runtime spawns resolved command lines as child processes.
//
// Two runtimes are available:
//   - native: the command line is handed to the host shell with "-c"
//     (cmd /C or PowerShell -Command on Windows).
//   - virtual: the command line is parsed and interpreted in-process by
//     mvdan.cc/sh, so no host shell is required; external programs are still
//     executed as real processes.
//
// Both capture stdout and stderr in full and report the exit status. Neither
// applies a timeout: a spawned process runs to natural completion.
package runtime
