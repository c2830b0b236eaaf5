// SPDX-License-Identifier: MPL-2.0

// Package fspath provides the small set of path helpers shared by the
// resolver and the launcher: home-marker expansion and existence checks.
//
// Expansion is deliberately split into a pure function (ExpandHome) and an
// Expander bound to the process's home directory, so the template resolver can
// stay free of I/O.
package fspath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeMarker is the leading path element replaced by the user's home directory.
const HomeMarker = "~"

// Expander expands a leading home marker in a path.
type Expander func(path string) string

// ExpandHome replaces a leading "~" in path with home. Paths without the marker
// are returned unchanged. The remainder after the marker is joined to home, so
// "~/notes" and "~notes" both land inside the home directory.
func ExpandHome(path, home string) string {
	if !strings.HasPrefix(path, HomeMarker) {
		return path
	}
	return filepath.Join(home, path[len(HomeMarker):])
}

// StaticExpander returns an Expander that uses a fixed home directory.
func StaticExpander(home string) Expander {
	return func(path string) string {
		return ExpandHome(path, home)
	}
}

// HomeExpander returns an Expander bound to the current user's home directory.
func HomeExpander() (Expander, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return StaticExpander(home), nil
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// IsDir reports whether path names an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
