// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing errors: ActionableError carries the
// failed operation, the resource involved and fix-it suggestions, and the
// Issue catalog holds longer Markdown guidance rendered with glamour.
package issue
