// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"github.com/extlaunch/extlaunch/pkg/platform"
)

// ErrNoShell is returned when no host shell can be located.
var ErrNoShell = errors.New("no shell found")

// NativeRuntime hands command lines to the host shell.
type NativeRuntime struct {
	// Shell overrides shell detection when non-empty.
	Shell string
	// Sandbox routes the shell to the host when the process is sandboxed.
	Sandbox platform.Sandbox
}

// NewNativeRuntime creates a native runtime for the detected sandbox. An
// empty shell selects the platform default at spawn time.
func NewNativeRuntime(shell string) *NativeRuntime {
	return &NativeRuntime{Shell: shell, Sandbox: platform.DetectSandbox()}
}

// Name returns the runtime name.
func (r *NativeRuntime) Name() string { return string(RuntimeNative) }

// Spawn runs req.CommandLine through the shell and waits for it to exit.
func (r *NativeRuntime) Spawn(ctx context.Context, req Request) *Result {
	shell, err := r.shell()
	if err != nil {
		return newSpawnError(err)
	}

	argv := append([]string{shell}, shellArgs(shell)...)
	argv = platform.HostCommand(r.Sandbox, req.WorkDir, append(argv, req.CommandLine))
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if r.Sandbox == platform.SandboxNone {
		cmd.Dir = req.WorkDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := extractExitCode(cmd.Run())
	result.Output = stdout.String()
	result.ErrOutput = stderr.String()
	return result
}

func (r *NativeRuntime) shell() (string, error) {
	if r.Shell != "" {
		return r.Shell, nil
	}

	if goruntime.GOOS == platform.Windows {
		for _, name := range []string{"pwsh", "powershell"} {
			if p, err := exec.LookPath(name); err == nil {
				return p, nil
			}
		}
		return exec.LookPath("cmd")
	}

	if sh := os.Getenv("SHELL"); sh != "" {
		return sh, nil
	}
	for _, name := range []string{"bash", "sh"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrNoShell
}

func shellArgs(shell string) []string {
	base := strings.TrimSuffix(filepath.Base(shell), ".exe")
	switch base {
	case "cmd":
		return []string{"/C"}
	case "powershell", "pwsh":
		return []string{"-NoProfile", "-Command"}
	default:
		return []string{"-c"}
	}
}

// extractExitCode maps an exec error onto a Result. Exit statuses outside
// 0-255 (signals report -1) are treated as the process failing to complete.
func extractExitCode(err error) *Result {
	if err == nil {
		return &Result{}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := ExitCode(exitErr.ExitCode())
		if ok, _ := code.IsValid(); !ok {
			return newSpawnError(fmt.Errorf("process terminated abnormally: %w", err))
		}
		return &Result{ExitCode: code}
	}

	return newSpawnError(err)
}
