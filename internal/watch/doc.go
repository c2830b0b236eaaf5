// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a script when files in a vault change.
//
// A Watcher registers every non-ignored directory under a root with fsnotify,
// filters events through doublestar include and ignore globs, and coalesces
// bursts of events into one trigger call after a quiet period. A trigger that
// is still running when the next burst settles is not re-entered; the burst is
// retried after another quiet period instead.
package watch
