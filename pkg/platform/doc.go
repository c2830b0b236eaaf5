// SPDX-License-Identifier: MPL-2.0

// Package platform holds OS name constants and detects application sandboxes
// that need an escape hatch to start programs on the host.
package platform
