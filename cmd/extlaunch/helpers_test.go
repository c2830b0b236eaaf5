// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/extlaunch/extlaunch/internal/testutil"
)

// lockedBuffer is written by the launcher goroutine and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

type cliFixture struct {
	app        *App
	stdout     *lockedBuffer
	stderr     *lockedBuffer
	configPath string
	vault      string
	registry   string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	dir := t.TempDir()
	f := &cliFixture{
		stdout:     &lockedBuffer{},
		stderr:     &lockedBuffer{},
		configPath: filepath.Join(dir, "config.cue"),
		vault:      filepath.Join(dir, "vault"),
		registry:   filepath.Join(dir, "scripts.json"),
	}
	testutil.MustMkdirAll(t, f.vault)
	testutil.MustWriteFile(t, f.configPath, fmt.Sprintf(
		"registry_file: %q\nvault_root: %q\nshell: \"/bin/sh\"\nlog: level: \"error\"\n", f.registry, f.vault))

	app, err := NewApp(Dependencies{Stdout: f.stdout, Stderr: f.stderr})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	f.app = app
	return f
}

// run executes one CLI invocation with the fixture's config.
func (f *cliFixture) run(t *testing.T, args ...string) error {
	t.Helper()
	f.stdout.Reset()
	f.stderr.Reset()
	root := NewRootCommand(f.app)
	root.SetArgs(append([]string{"--config", f.configPath}, args...))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func (f *cliFixture) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	if err := f.run(t, args...); err != nil {
		t.Fatalf("extlaunch %v: %v\nstderr: %s", args, err, f.stderr.String())
	}
	return f.stdout.String()
}
