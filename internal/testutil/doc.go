// SPDX-License-Identifier: MPL-2.0

// Package testutil holds test helpers that fail the test on setup errors:
// environment and home directory overrides, file fixtures, and a manually
// advanced clock.
package testutil
