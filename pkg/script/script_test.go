// SPDX-License-Identifier: MPL-2.0

package script

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s := New("format note")

	if s.Name != "format note" {
		t.Errorf("Name = %q, want %q", s.Name, "format note")
	}
	if valid, errs := s.ID.IsValid(); !valid {
		t.Errorf("expected generated ID to be valid, got %v", errs)
	}
	if s.ExternalProgram != "" || s.WorkingDirectory != "" {
		t.Errorf("expected empty program and working directory, got %q / %q", s.ExternalProgram, s.WorkingDirectory)
	}
	if len(s.Arguments) != 0 {
		t.Errorf("expected no arguments, got %d", len(s.Arguments))
	}
	if s.Insertion != InsertNone {
		t.Errorf("Insertion = %q, want %q", s.Insertion, InsertNone)
	}
	if s.DebugOutput {
		t.Error("expected DebugOutput to be false")
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	t.Parallel()

	seen := make(map[ID]struct{})
	for range 200 {
		id := New("x").ID
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestClone_DoesNotAliasArguments(t *testing.T) {
	t.Parallel()

	s := New("a")
	s.Arguments = append(s.Arguments, Literal("one"), Templated(TemplateFilename))

	c := s.Clone()
	c.Arguments[0].Text = "changed"

	if s.Arguments[0].Text != "one" {
		t.Errorf("original argument mutated through clone: %q", s.Arguments[0].Text)
	}
}

func TestArgumentTemplate_IsValid(t *testing.T) {
	t.Parallel()

	for _, tmpl := range Templates() {
		if valid, errs := tmpl.IsValid(); !valid {
			t.Errorf("%q: expected valid, got %v", tmpl, errs)
		}
	}

	valid, errs := ArgumentTemplate("filename_ext").IsValid()
	if valid {
		t.Fatal("expected unknown template to be invalid")
	}
	if !errors.Is(errs[0], ErrInvalidArgumentTemplate) {
		t.Errorf("expected ErrInvalidArgumentTemplate, got %v", errs[0])
	}
}

func TestInsertionMode_Inserts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode InsertionMode
		want bool
	}{
		{InsertNone, false},
		{InsertStart, true},
		{InsertEnd, true},
	}
	for _, tt := range tests {
		if got := tt.mode.Inserts(); got != tt.want {
			t.Errorf("%q.Inserts() = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestScript_JSONWireShape(t *testing.T) {
	t.Parallel()

	s := Script{
		ID:               "abc",
		Name:             "echo",
		ExternalProgram:  "~/bin/tool",
		WorkingDirectory: "~",
		Arguments:        []Argument{Literal("--flag"), Templated(TemplateFilenameFull)},
		Insertion:        InsertEnd,
		DebugOutput:      true,
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := string(data)
	for _, key := range []string{`"externalProgram":"~/bin/tool"`, `"currentWorkingDirectory":"~"`, `"additional_args":[`, `"insert_handling":"end"`, `"debug_output":true`, `"template":"filename_full"`} {
		if !strings.Contains(got, key) {
			t.Errorf("encoded script missing %s: %s", key, got)
		}
	}

	var back Script
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(back.Arguments) != 2 || back.Arguments[0].Text != "--flag" || back.Arguments[1].Template != TemplateFilenameFull {
		t.Errorf("argument order not preserved: %+v", back.Arguments)
	}
}

func TestScript_UnmarshalRejectsUnknownTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "unknown template",
			input:   `{"id":"1","name":"a","additional_args":[{"argument":"","template":"filename_ext"}],"insert_handling":"none"}`,
			wantErr: ErrInvalidArgumentTemplate,
		},
		{
			name:    "unknown insertion",
			input:   `{"id":"1","name":"a","additional_args":[],"insert_handling":"middle"}`,
			wantErr: ErrInvalidInsertionMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var s Script
			err := json.Unmarshal([]byte(tt.input), &s)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Unmarshal error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestScript_IsValid(t *testing.T) {
	t.Parallel()

	s := New("ok")
	if valid, errs := s.IsValid(); !valid {
		t.Fatalf("expected new script to be valid, got %v", errs)
	}

	s.Name = "   "
	s.Arguments = []Argument{{Template: "bogus"}}
	valid, errs := s.IsValid()
	if valid {
		t.Fatal("expected script with blank name and bad template to be invalid")
	}
	var scriptErr *InvalidScriptError
	if !errors.As(errs[0], &scriptErr) {
		t.Fatalf("expected InvalidScriptError, got %T", errs[0])
	}
	if len(scriptErr.FieldErrors) != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", len(scriptErr.FieldErrors), scriptErr.FieldErrors)
	}
	if !errors.Is(errs[0], ErrInvalidScript) {
		t.Error("expected errors.Is(err, ErrInvalidScript)")
	}
}
