// SPDX-License-Identifier: MPL-2.0

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/extlaunch/extlaunch/pkg/script"
)

// legacyNoExt is the tag older plugin versions wrote for the extensionless file name.
const legacyNoExt = "filename_ext"

type (
	pluginSettings struct {
		Scripts []pluginScript `json:"scripts"`
	}

	pluginScript struct {
		ID                      string           `json:"id"`
		Name                    string           `json:"name"`
		ExternalProgram         string           `json:"externalProgram"`
		CurrentWorkingDirectory string           `json:"currentWorkingDirectory"`
		AdditionalArgs          []pluginArgument `json:"additional_args"`
		InsertHandling          string           `json:"insert_handling"`
		DebugOutput             bool             `json:"debug_output"`
	}

	pluginArgument struct {
		Argument string `json:"argument"`
		Template string `json:"template"`
	}
)

// Import reads a plugin data.json file. Unknown top-level keys are ignored,
// scripts with no id get a fresh one, and the legacy "filename_ext" tag is
// read as filename_no_ext.
func Import(path string) ([]script.Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plugin settings: %w", err)
	}
	scripts, err := DecodePluginSettings(data)
	if err != nil {
		return nil, &DecodeError{Path: path, Cause: err}
	}
	return scripts, nil
}

// DecodePluginSettings converts the plugin's settings JSON into scripts.
func DecodePluginSettings(data []byte) ([]script.Script, error) {
	var settings pluginSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}

	out := make([]script.Script, 0, len(settings.Scripts))
	var errs []error
	for i, ps := range settings.Scripts {
		s, err := ps.toScript()
		if err != nil {
			errs = append(errs, fmt.Errorf("scripts[%d]: %w", i, err))
			continue
		}
		out = append(out, s)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return normalize(out)
}

func (ps pluginScript) toScript() (script.Script, error) {
	s := script.Script{
		ID:               script.ID(ps.ID),
		Name:             script.Name(ps.Name),
		ExternalProgram:  ps.ExternalProgram,
		WorkingDirectory: ps.CurrentWorkingDirectory,
		Arguments:        make([]script.Argument, 0, len(ps.AdditionalArgs)),
		Insertion:        script.InsertNone,
		DebugOutput:      ps.DebugOutput,
	}
	if s.ID == "" {
		s.ID = script.NewID()
	}

	if ps.InsertHandling != "" {
		mode, err := script.ParseInsertionMode(ps.InsertHandling)
		if err != nil {
			return script.Script{}, err
		}
		s.Insertion = mode
	}

	for j, pa := range ps.AdditionalArgs {
		tag := pa.Template
		switch tag {
		case "":
			tag = string(script.TemplateLiteral)
		case legacyNoExt:
			tag = string(script.TemplateFilenameNoExt)
		}
		t, err := script.ParseArgumentTemplate(tag)
		if err != nil {
			return script.Script{}, fmt.Errorf("additional_args[%d]: %w", j, err)
		}
		s.Arguments = append(s.Arguments, script.Argument{Text: pa.Argument, Template: t})
	}
	return s, nil
}
