// SPDX-License-Identifier: MPL-2.0

// Package resolve turns a script definition and a context snapshot into a
// concrete command line.
//
// Resolution is a pure function of its inputs: the home directory is injected
// through an fspath.Expander and no filesystem access happens here. Every
// resolved value is quoted as a JSON string literal. That guards against
// embedded spaces and quotes, not against shell metacharacters; it is not a
// security boundary.
package resolve

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/extlaunch/extlaunch/internal/snapshot"
	"github.com/extlaunch/extlaunch/pkg/fspath"
	"github.com/extlaunch/extlaunch/pkg/script"
)

// ErrUnknownTemplate is the sentinel error wrapped by UnknownTemplateError.
var ErrUnknownTemplate = errors.New("unknown argument template")

type (
	// Resolver expands argument templates against a snapshot.
	Resolver struct {
		expand fspath.Expander
	}

	// Token is one resolved argument.
	Token struct {
		// Template is the kind the token was resolved from.
		Template script.ArgumentTemplate
		// Value is the unquoted resolved value.
		Value string
		// Quoted is Value encoded as a JSON string literal.
		Quoted string
	}

	// Command is a fully resolved command line.
	Command struct {
		// Program is the executable path after home-marker expansion.
		Program string
		// QuotedProgram is Program encoded as a JSON string literal.
		QuotedProgram string
		// Args are the resolved arguments in script order.
		Args []Token
	}

	// UnknownTemplateError is returned when an argument carries a template
	// kind the resolver does not handle.
	UnknownTemplateError struct {
		Index    int
		Template script.ArgumentTemplate
	}
)

// New creates a Resolver. A nil expander leaves home markers untouched.
func New(expand fspath.Expander) *Resolver {
	if expand == nil {
		expand = func(p string) string { return p }
	}
	return &Resolver{expand: expand}
}

// Resolve builds the command line for s against snap. It is deterministic:
// the same inputs always yield the same tokens.
func (r *Resolver) Resolve(s script.Script, snap snapshot.Snapshot) (Command, error) {
	program := r.expand(s.ExternalProgram)
	cmd := Command{
		Program:       program,
		QuotedProgram: Quote(program),
		Args:          make([]Token, 0, len(s.Arguments)),
	}

	for i, arg := range s.Arguments {
		value, keep, err := r.value(arg, snap)
		if err != nil {
			var unknown *UnknownTemplateError
			if errors.As(err, &unknown) {
				unknown.Index = i
			}
			return Command{}, err
		}
		if !keep {
			continue
		}
		cmd.Args = append(cmd.Args, Token{
			Template: arg.Template,
			Value:    value,
			Quoted:   Quote(value),
		})
	}

	return cmd, nil
}

// value selects the resolved value for arg. keep is false when the token is
// omitted from the command line.
func (r *Resolver) value(arg script.Argument, snap snapshot.Snapshot) (string, bool, error) {
	switch arg.Template {
	case script.TemplateVaultPath:
		return snap.VaultPath, true, nil
	case script.TemplateFilename:
		return snap.Filename, true, nil
	case script.TemplateFilenamePath:
		return snap.FilenamePath, true, nil
	case script.TemplateFilenameNoExt:
		return snap.FilenameNoExt, true, nil
	case script.TemplateFilenameRelative:
		return snap.FilenameRel, snap.HasActiveFile(), nil
	case script.TemplateFilenameFull:
		return snap.FilenameFull, true, nil
	case script.TemplateContextJSON:
		payload, err := snap.JSON()
		if err != nil {
			return "", false, err
		}
		return payload, true, nil
	case script.TemplateLiteral:
		return r.expand(arg.Text), true, nil
	default:
		return "", false, &UnknownTemplateError{Template: arg.Template}
	}
}

// Tokens returns the program path followed by the quoted arguments.
func (c Command) Tokens() []string {
	out := make([]string, 0, len(c.Args)+1)
	out = append(out, c.Program)
	for _, a := range c.Args {
		out = append(out, a.Quoted)
	}
	return out
}

// Line returns the shell command line: the quoted program followed by the
// space-joined quoted arguments.
func (c Command) Line() string {
	if len(c.Args) == 0 {
		return c.QuotedProgram
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.Quoted
	}
	return c.QuotedProgram + " " + strings.Join(parts, " ")
}

// Quote encodes s as a JSON string literal without HTML escaping.
func Quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// Error implements the error interface for UnknownTemplateError.
func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("additional_args[%d]: unknown argument template %q", e.Index, e.Template)
}

// Unwrap returns ErrUnknownTemplate for errors.Is() compatibility.
func (e *UnknownTemplateError) Unwrap() error { return ErrUnknownTemplate }
