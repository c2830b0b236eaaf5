// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions selects where configuration is read from.
	LoadOptions struct {
		// ConfigFilePath forces a specific file; it must exist.
		ConfigFilePath string
		// ConfigDirPath replaces the platform config directory.
		ConfigDirPath string
		// WorkDir is where ./config.cue is looked for and the default
		// vault root. Empty means the process working directory.
		WorkDir string
	}

	// Provider loads configuration.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// NewProvider returns the file-backed Provider.
func NewProvider() Provider { return fileProvider{} }

// Load reads configuration from the requested source.
func (fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return loadWithOptions(ctx, opts)
}
