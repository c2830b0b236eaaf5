// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// VirtualRuntime interprets command lines with the embedded mvdan/sh shell.
type VirtualRuntime struct{}

// NewVirtualRuntime creates a virtual runtime.
func NewVirtualRuntime() *VirtualRuntime {
	return &VirtualRuntime{}
}

// Name returns the runtime name.
func (r *VirtualRuntime) Name() string { return string(RuntimeVirtual) }

// Spawn parses req.CommandLine as a POSIX shell program and runs it.
func (r *VirtualRuntime) Spawn(ctx context.Context, req Request) *Result {
	prog, err := syntax.NewParser().Parse(strings.NewReader(req.CommandLine), "command")
	if err != nil {
		return newSpawnError(fmt.Errorf("failed to parse command line: %w", err))
	}

	workDir := req.WorkDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return newSpawnError(err)
		}
	}

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.Dir(workDir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, &stdout, &stderr),
	)
	if err != nil {
		return newSpawnError(fmt.Errorf("failed to create interpreter: %w", err))
	}

	result := &Result{}
	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			result.ExitCode = ExitCode(status)
		} else {
			result = newSpawnError(err)
		}
	}
	result.Output = stdout.String()
	result.ErrOutput = stderr.String()
	return result
}
