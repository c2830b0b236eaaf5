// SPDX-License-Identifier: MPL-2.0

// Package script defines the launch definitions managed by extlaunch.
//
// A Script names an external program, the working directory it runs in, and
// an ordered list of templated arguments. Templates are resolved against a
// context snapshot at execution time (see internal/resolve); nothing in this
// package performs I/O or expands paths.
//
// The enum types (ArgumentTemplate, InsertionMode) are closed: unknown wire
// tags are rejected when decoding rather than silently defaulted.
package script
