// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// builtinIgnores are always excluded. They cover vault metadata, VCS metadata,
// editor swap files and the temporary files extlaunch writes while saving.
var builtinIgnores = []string{
	"**/.git/**",
	"**/.obsidian/**",
	"**/.trash/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/.extlaunch-*",
}

// filter decides whether a path relative to the watch root is interesting.
type filter struct {
	include []string
	ignore  []string
	skip    map[string]struct{}
}

func newFilter(include, ignore, skip []string) (*filter, error) {
	if err := checkGlobs("include", include); err != nil {
		return nil, err
	}
	if err := checkGlobs("ignore", ignore); err != nil {
		return nil, err
	}

	f := &filter{
		include: slices.Clone(include),
		ignore:  append(slices.Clone(builtinIgnores), ignore...),
		skip:    make(map[string]struct{}, len(skip)),
	}
	for _, rel := range skip {
		f.skip[filepath.ToSlash(filepath.Clean(rel))] = struct{}{}
	}
	return f, nil
}

// ignored reports whether rel matches an ignore glob. Directories are also
// tested with a trailing slash so "dir/**" style globs prune them.
func (f *filter) ignored(rel string, dir bool) bool {
	p := filepath.ToSlash(rel)
	if anyMatch(f.ignore, p) {
		return true
	}
	return dir && anyMatch(f.ignore, p+"/")
}

// accepts reports whether a file event on rel should schedule a trigger.
func (f *filter) accepts(rel string) bool {
	p := filepath.ToSlash(rel)
	if _, ok := f.skip[p]; ok {
		return false
	}
	if f.ignored(p, false) {
		return false
	}
	return len(f.include) == 0 || anyMatch(f.include, p)
}

func anyMatch(globs []string, p string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, p); err == nil && ok {
			return true
		}
	}
	return false
}

func checkGlobs(kind string, globs []string) error {
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return &InvalidPatternError{Kind: kind, Pattern: g}
		}
	}
	return nil
}

// BuiltinIgnores returns a copy of the globs every Watcher ignores.
func BuiltinIgnores() []string {
	return slices.Clone(builtinIgnores)
}

// InvalidPatternError is returned by New for a malformed glob.
type InvalidPatternError struct {
	Kind    string
	Pattern string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("watch: invalid %s pattern %q", e.Kind, e.Pattern)
}

// Unwrap returns ErrInvalidPattern.
func (e *InvalidPatternError) Unwrap() error { return ErrInvalidPattern }
