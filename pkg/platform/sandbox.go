// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"os"
	"sync"
)

const (
	// SandboxNone means programs run directly on the host.
	SandboxNone Sandbox = ""
	// SandboxFlatpak means the process runs inside a Flatpak; host programs
	// are reached through flatpak-spawn.
	SandboxFlatpak Sandbox = "flatpak"

	flatpakInfo  = "/.flatpak-info"
	flatpakSpawn = "flatpak-spawn"
)

// Sandbox identifies the application sandbox the process runs in.
type Sandbox string

// detected is computed on first use. detectFrom must not panic: OnceValue
// would re-panic on every later call.
var detected = sync.OnceValue(func() Sandbox {
	return detectFrom(statFile)
})

// DetectSandbox returns the sandbox of the current process. The result is cached.
func DetectSandbox() Sandbox {
	return detected()
}

// HostCommand rewrites argv so it runs on the host from inside sb. workDir is
// the host working directory; it is passed explicitly because the sandbox's
// own working directory does not carry over. Outside a sandbox argv is
// returned unchanged.
func HostCommand(sb Sandbox, workDir string, argv []string) []string {
	if sb != SandboxFlatpak {
		return argv
	}
	out := make([]string, 0, len(argv)+3)
	out = append(out, flatpakSpawn, "--host")
	if workDir != "" {
		out = append(out, "--directory="+workDir)
	}
	return append(out, argv...)
}

func detectFrom(stat func(string) error) Sandbox {
	if err := stat(flatpakInfo); err == nil {
		return SandboxFlatpak
	}
	return SandboxNone
}

func statFile(path string) error {
	_, err := os.Stat(path)
	return err
}
