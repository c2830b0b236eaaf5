// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	// ConfigLoadFailedId covers unreadable or invalid config.cue files.
	ConfigLoadFailedId Id = iota + 1
	// RegistryLoadFailedId covers unreadable or invalid registry files.
	RegistryLoadFailedId
	// ScriptNotFoundId is raised when a script name matches nothing.
	ScriptNotFoundId
	// DuplicateScriptNameId is raised when creating a script whose name is taken.
	DuplicateScriptNameId
	// ExecutableNotFoundId is raised when a script's program path does not exist.
	ExecutableNotFoundId
	// ScriptExecutionFailedId is raised when a process fails or exits non-zero.
	ScriptExecutionFailedId
	// InvalidRuntimeModeId is raised for an unknown runtime setting.
	InvalidRuntimeModeId
	// ImportFailedId is raised when a plugin data.json cannot be imported.
	ImportFailedId
)

type (
	// Id identifies a catalog entry.
	//
	//nolint:revive // Id mirrors the exported constant names
	Id int

	// MarkdownMsg is Markdown guidance text.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	//
	//nolint:revive // matches the established name
	HttpLink string

	// Issue is one catalog entry.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

var (
	render = glamour.Render

	issues = map[Id]*Issue{}
)

func register(i *Issue) *Issue {
	issues[i.id] = i
	return i
}

func init() {
	register(&Issue{id: ConfigLoadFailedId, mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Print the defaults and compare:
~~~
$ extlaunch config dump
~~~
- Show which file was loaded:
~~~
$ extlaunch config path
~~~
- Valid values: ` + "`runtime`" + ` is "native" or "virtual", ` + "`ui.color_scheme`" + ` is "auto", "dark" or "light", ` + "`log.level`" + ` is "debug", "info", "warn" or "error".`})

	register(&Issue{id: RegistryLoadFailedId, mdMsg: `
# Failed to load the script registry!

The registry file exists but could not be decoded.

## Things you can try:
- The error above names the field that failed validation; fix it by hand.
- Argument templates must be one of: argument, vault_path, filename, filename_path,
  filename_no_ext, filename_rel, filename_full, json_struct.
- Insertion modes must be one of: none, start, end.
- Point ` + "`registry_file`" + ` at a different file to start fresh.`})

	register(&Issue{id: ScriptNotFoundId, mdMsg: `
# Script not found!

No script with that name is registered.

## Things you can try:
~~~
$ extlaunch script list
$ extlaunch script create "<name>" --program /path/to/tool
~~~`})

	register(&Issue{id: DuplicateScriptNameId, mdMsg: `
# Script name already exists!

Script names are unique. Pick another name or edit the existing script:
~~~
$ extlaunch script set "<name>" --program /path/to/tool
~~~`})

	register(&Issue{id: ExecutableNotFoundId, mdMsg: `
# External program does not exist!

The script's program path, after expanding a leading "~", does not exist.

## Things you can try:
- Use an absolute path; the program is not looked up on PATH.
- Check the path with:
~~~
$ extlaunch script show "<name>"
~~~`})

	register(&Issue{id: ScriptExecutionFailedId, mdMsg: `
# Script execution failed!

The process could not be started or exited with a non-zero status.
No output was inserted.

## Things you can try:
- Re-run with debug output to see the full command line, working directory
  and captured stderr:
~~~
$ extlaunch script set "<name>" --debug
~~~
- Check that the working directory exists.`})

	register(&Issue{id: InvalidRuntimeModeId, mdMsg: `
# Invalid runtime!

Available runtimes:
- **native**: the host shell (sh -c, cmd /C or PowerShell -Command)
- **virtual**: the built-in POSIX interpreter`})

	register(&Issue{id: ImportFailedId, mdMsg: `
# Import failed!

The plugin settings file could not be read. It is usually found at
` + "`<vault>/.obsidian/plugins/<plugin-id>/data.json`" + ` and holds a ` + "`scripts`" + ` list.

Scripts whose names already exist are skipped, not overwritten.`})
}

// Id returns the entry's identifier.
func (i *Issue) Id() Id { return i.id }

// MarkdownMsg returns the raw Markdown text.
func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

// DocLinks returns a copy of the documentation links.
func (i *Issue) DocLinks() []HttpLink { return slices.Clone(i.docLinks) }

// Render renders the entry for the terminal with the given glamour style.
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 {
		md += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue { return issues[id] }
