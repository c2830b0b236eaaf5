// SPDX-License-Identifier: MPL-2.0

// Package store reads and writes the script registry file. The encoding
// is chosen from the file extension; CUE is the default.
package store

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/extlaunch/extlaunch/internal/cueutil"
	"github.com/extlaunch/extlaunch/pkg/script"
)

const (
	// FormatCUE is the default registry encoding.
	FormatCUE Format = "cue"
	// FormatJSON matches the plugin data.json layout.
	FormatJSON Format = "json"
	// FormatYAML encodes the registry as YAML.
	FormatYAML Format = "yaml"
	// FormatTOML encodes the registry as TOML.
	FormatTOML Format = "toml"

	// DefaultFileName is the registry file created in the config directory.
	DefaultFileName = "scripts.cue"
)

var (
	//go:embed registry_schema.cue
	registrySchema []byte

	// ErrUnsupportedFormat is returned for registry files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported registry file format")
	// ErrInvalidRegistry wraps every decoding or validation failure.
	ErrInvalidRegistry = errors.New("invalid registry file")
)

type (
	// Format names a registry encoding.
	Format string

	// File is a registry file on disk.
	File struct {
		Path string
	}

	// document is the on-disk root shared by every encoding.
	document struct {
		Scripts []script.Script `json:"scripts" yaml:"scripts" toml:"scripts"`
	}

	// DecodeError reports a registry file that could not be decoded.
	DecodeError struct {
		Path  string
		Cause error
	}
)

// FormatFor returns the encoding implied by path's extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads the registry. A missing file is an empty registry.
func (f File) Load() ([]script.Script, error) {
	format, err := FormatFor(f.Path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []script.Script{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	scripts, err := Decode(format, data, f.Path)
	if err != nil {
		return nil, &DecodeError{Path: f.Path, Cause: err}
	}
	return scripts, nil
}

// Save writes scripts atomically, creating parent directories as needed.
func (f File) Save(scripts []script.Script) error {
	format, err := FormatFor(f.Path)
	if err != nil {
		return err
	}
	data, err := Encode(format, scripts)
	if err != nil {
		return err
	}
	return writeAtomic(f.Path, data)
}

// Decode parses data in the given format and validates every script.
// filename only labels errors.
func Decode(format Format, data []byte, filename string) ([]script.Script, error) {
	var doc document
	switch format {
	case FormatCUE:
		res, err := cueutil.ParseAndDecode[document](registrySchema, data, "#Registry",
			cueutil.WithFilename(filename))
		if err != nil {
			return nil, err
		}
		doc = *res.Value
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return normalize(doc.Scripts)
}

// Encode renders scripts in the given format.
func Encode(format Format, scripts []script.Script) ([]byte, error) {
	doc := document{Scripts: scripts}
	if doc.Scripts == nil {
		doc.Scripts = []script.Script{}
	}

	switch format {
	case FormatCUE:
		return GenerateCUE(scripts)
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "\t")
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatTOML:
		return toml.Marshal(doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// GenerateCUE renders scripts as a CUE registry file.
func GenerateCUE(scripts []script.Script) ([]byte, error) {
	doc := document{Scripts: scripts}
	if doc.Scripts == nil {
		doc.Scripts = []script.Script{}
	}
	body, err := cueutil.Encode(doc)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("// extlaunch script registry\n// Edit with `extlaunch script` or by hand.\n\n")
	buf.Write(trimBraces(body))
	return buf.Bytes(), nil
}

// Error implements the error interface for DecodeError.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Cause)
}

// Unwrap returns the decoding cause.
func (e *DecodeError) Unwrap() error { return e.Cause }

// Is matches ErrInvalidRegistry.
func (e *DecodeError) Is(target error) bool { return target == ErrInvalidRegistry }

// normalize fills zero-valued optional fields and validates each script.
func normalize(scripts []script.Script) ([]script.Script, error) {
	out := make([]script.Script, 0, len(scripts))
	seen := make(map[script.ID]bool, len(scripts))
	var errs []error
	for i, s := range scripts {
		if s.Arguments == nil {
			s.Arguments = []script.Argument{}
		}
		if s.Insertion == "" {
			s.Insertion = script.InsertNone
		}
		for j := range s.Arguments {
			if s.Arguments[j].Template == "" {
				s.Arguments[j].Template = script.TemplateLiteral
			}
		}
		if ok, fieldErrs := s.IsValid(); !ok {
			errs = append(errs, fmt.Errorf("scripts[%d]: %w", i, errors.Join(fieldErrs...)))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("scripts[%d]: duplicate id %q", i, s.ID))
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// trimBraces strips the outer struct braces from an encoded CUE value so the
// file reads as top-level fields.
func trimBraces(src []byte) []byte {
	s := bytes.TrimSpace(src)
	if len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}' {
		s = s[1 : len(s)-1]
	}
	lines := strings.Split(strings.Trim(string(s), "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, "\t")
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".extlaunch-registry-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close registry: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("set registry permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	renamed = true
	return nil
}
