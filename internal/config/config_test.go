// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"

	"github.com/extlaunch/extlaunch/internal/issue"
	"github.com/extlaunch/extlaunch/internal/runtime"
	"github.com/extlaunch/extlaunch/internal/testutil"
)

func load(t *testing.T, opts LoadOptions) (*Config, error) {
	t.Helper()
	return NewProvider().Load(context.Background(), opts)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Runtime != runtime.RuntimeNative || cfg.UI.ColorScheme != ColorSchemeAuto ||
		cfg.UI.Verbose || cfg.Log.Level != LogLevelWarn {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if ok, errs := cfg.IsValid(); !ok {
		t.Errorf("defaults invalid: %v", errs)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfgDir := t.TempDir()
	work := t.TempDir()

	cfg, err := load(t, LoadOptions{ConfigDirPath: cfgDir, WorkDir: work})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty", cfg.Source)
	}
	if cfg.RegistryFile != filepath.Join(cfgDir, DefaultRegistryFileName) {
		t.Errorf("RegistryFile = %q", cfg.RegistryFile)
	}
	if cfg.VaultRoot != work {
		t.Errorf("VaultRoot = %q, want %q", cfg.VaultRoot, work)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	cfgDir := t.TempDir()
	path := filepath.Join(cfgDir, "config.cue")
	testutil.MustWriteFile(t, path, `
runtime: "virtual"
vault_root: "/notes"
registry_file: "/data/scripts.yaml"
ui: verbose: true
log: level: "debug"
`)

	cfg, err := load(t, LoadOptions{ConfigDirPath: cfgDir, WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Source != path {
		t.Errorf("Source = %q, want %q", cfg.Source, path)
	}
	if cfg.Runtime != runtime.RuntimeVirtual || cfg.VaultRoot != "/notes" ||
		cfg.RegistryFile != "/data/scripts.yaml" || !cfg.UI.Verbose || cfg.Log.Level != LogLevelDebug {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("unset nested key lost its default: %q", cfg.UI.ColorScheme)
	}
}

func TestLoad_LocalFallback(t *testing.T) {
	work := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(work, "config.cue"), `shell: "/bin/zsh"`)

	cfg, err := load(t, LoadOptions{ConfigDirPath: t.TempDir(), WorkDir: work})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Shell != "/bin/zsh" {
		t.Errorf("Shell = %q", cfg.Shell)
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	cfgDir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), `runtime: "container"`)

	_, err := load(t, LoadOptions{ConfigDirPath: cfgDir, WorkDir: t.TempDir()})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("Load() error = %v, want ActionableError", err)
	}
	if ae.Issue != issue.ConfigLoadFailedId || !strings.Contains(err.Error(), "runtime") {
		t.Errorf("error = %v", err)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	cfgDir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), `container_engine: "podman"`)

	if _, err := load(t, LoadOptions{ConfigDirPath: cfgDir, WorkDir: t.TempDir()}); err == nil {
		t.Error("Load() accepted a key outside the schema")
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := load(t, LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Load() error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	defer testutil.MustSetenv(t, "EXTLAUNCH_RUNTIME", "virtual")()
	defer testutil.MustSetenv(t, "EXTLAUNCH_UI_VERBOSE", "true")()

	cfg, err := load(t, LoadOptions{ConfigDirPath: t.TempDir(), WorkDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Runtime != runtime.RuntimeVirtual || !cfg.UI.Verbose {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	defer testutil.MustSetenv(t, "EXTLAUNCH_LOG_LEVEL", "loud")()

	_, err := load(t, LoadOptions{ConfigDirPath: t.TempDir(), WorkDir: t.TempDir()})
	if !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("Load() error = %v, want ErrInvalidLogLevel", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	cfgDir := t.TempDir()
	SetConfigDirOverride(cfgDir)
	t.Cleanup(Reset)

	want := DefaultConfig()
	want.Runtime = runtime.RuntimeVirtual
	want.Shell = `/opt/my "shell"`
	want.UI.ColorScheme = ColorSchemeDark
	if err := Save(want); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	got, err := load(t, LoadOptions{WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() after Save: %v", err)
	}
	if got.Runtime != want.Runtime || got.Shell != want.Shell || got.UI.ColorScheme != ColorSchemeDark {
		t.Errorf("round trip = %+v", got)
	}
	if got.RegistryFile != filepath.Join(cfgDir, DefaultRegistryFileName) {
		t.Errorf("commented-out registry_file should keep the default, got %q", got.RegistryFile)
	}
}

func TestCreateDefaultConfig_DoesNotOverwrite(t *testing.T) {
	cfgDir := t.TempDir()
	SetConfigDirOverride(cfgDir)
	t.Cleanup(Reset)

	path := filepath.Join(cfgDir, "config.cue")
	testutil.MustWriteFile(t, path, `runtime: "virtual"`)

	got, err := CreateDefaultConfig()
	if err != nil || got != path {
		t.Fatalf("CreateDefaultConfig() = %q, %v", got, err)
	}
	if content := testutil.MustReadFile(t, path); content != `runtime: "virtual"` {
		t.Errorf("existing config overwritten: %q", content)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	if goruntime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME applies on Linux")
	}
	defer testutil.MustSetenv(t, "XDG_CONFIG_HOME", "/tmp/xdg")()

	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("ConfigDir() = %q", dir)
	}
}

func TestTypes_IsValid(t *testing.T) {
	t.Parallel()

	if ok, _ := ColorScheme("neon").IsValid(); ok {
		t.Error("neon accepted")
	}
	if ok, _ := LogLevel("trace").IsValid(); ok {
		t.Error("trace accepted")
	}

	cfg := DefaultConfig()
	cfg.UI.ColorScheme = "neon"
	cfg.Runtime = "wasm"
	ok, errs := cfg.IsValid()
	if ok || len(errs) != 1 {
		t.Fatalf("IsValid() = %v, %v", ok, errs)
	}
	if !errors.Is(errs[0], ErrInvalidConfig) || !errors.Is(errs[0], ErrInvalidColorScheme) ||
		!errors.Is(errs[0], runtime.ErrInvalidRuntimeMode) {
		t.Errorf("error %v does not match all sentinels", errs[0])
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	t.Parallel()

	if LogLevelDebug.SlogLevel().String() != "DEBUG" || LogLevel("").SlogLevel().String() != "WARN" {
		t.Error("SlogLevel mapping wrong")
	}
}
