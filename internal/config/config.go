// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/extlaunch/extlaunch/internal/cueutil"
	"github.com/extlaunch/extlaunch/internal/issue"
	"github.com/extlaunch/extlaunch/pkg/platform"
)

const (
	// AppName names the config directory.
	AppName = "extlaunch"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "EXTLAUNCH"
	// DefaultRegistryFileName is the registry created in the config directory.
	DefaultRegistryFileName = "scripts.cue"
)

var (
	//go:embed config_schema.cue
	configSchema string

	// ErrConfigNotFound is returned when an explicit config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")
)

// ConfigDir returns the platform config directory for extlaunch.
//
//nolint:revive // ConfigDir reads better than Dir at call sites
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var base string
	switch goruntime.GOOS {
	case platform.Windows:
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, AppName), nil
}

// FilePath returns the config.cue path inside ConfigDir.
func FilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()
	v.SetDefault("registry_file", d.RegistryFile)
	v.SetDefault("vault_root", d.VaultRoot)
	v.SetDefault("runtime", string(d.Runtime))
	v.SetDefault("shell", d.Shell)
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("log.level", string(d.Log.Level))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load config canceled: %w", err)
	}

	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		workDir = wd
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		cfgDir = dir
	}

	v := newViper()
	source, err := pickSource(opts, cfgDir, workDir)
	if err != nil {
		return nil, err
	}
	if source != "" {
		if err := loadCUEIntoViper(v, source); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(source).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Compare with 'extlaunch config dump'").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Source = source

	if cfg.RegistryFile == "" {
		cfg.RegistryFile = filepath.Join(cfgDir, DefaultRegistryFileName)
	}
	if cfg.VaultRoot == "" {
		cfg.VaultRoot = workDir
	}

	// Environment overrides bypass the CUE schema.
	if ok, errs := cfg.IsValid(); !ok {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check EXTLAUNCH_* environment variables").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}
	return &cfg, nil
}

// pickSource returns the config file to load, or "" for defaults only.
func pickSource(opts LoadOptions, cfgDir, workDir string) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'extlaunch config init' to create the default file").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(ErrConfigNotFound).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	name := ConfigFileName + "." + ConfigFileExt
	for _, candidate := range []string{filepath.Join(cfgDir, name), filepath.Join(workDir, name)} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// loadCUEIntoViper validates path against #Config and merges it into v.
// Fields are optional, so values need not be concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", err)
	}

	user := ctx.CompileBytes(data, cue.Filename(path))
	if err := user.Err(); err != nil {
		return cueutil.FormatError(err, path)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var values map[string]any
	if err := unified.Decode(&values); err != nil {
		return cueutil.FormatError(err, path)
	}
	if err := v.MergeConfigMap(values); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config.cue unless one exists, and
// returns its path.
func CreateDefaultConfig() (string, error) {
	path, err := FilePath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}
	return path, writeFile(path, GenerateCUE(DefaultConfig()))
}

// Save writes cfg to config.cue in ConfigDir.
func Save(cfg *Config) error {
	path, err := FilePath()
	if err != nil {
		return err
	}
	return writeFile(path, GenerateCUE(cfg))
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as a config.cue file. Empty path settings are
// written as comments so the computed defaults stay in effect.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// extlaunch configuration\n")
	sb.WriteString("// Environment variables prefixed with EXTLAUNCH_ override these values.\n\n")

	writeOptional(&sb, "registry_file", cfg.RegistryFile, "<config dir>/"+DefaultRegistryFileName)
	writeOptional(&sb, "vault_root", cfg.VaultRoot, "current directory")
	fmt.Fprintf(&sb, "runtime: %q\n", cfg.Runtime)
	writeOptional(&sb, "shell", cfg.Shell, "auto-detect")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	return sb.String()
}

func writeOptional(sb *strings.Builder, key, value, fallback string) {
	if value == "" {
		fmt.Fprintf(sb, "// %s: %q // default: %s\n", key, "", fallback)
		return
	}
	fmt.Fprintf(sb, "%s: %q\n", key, value)
}
