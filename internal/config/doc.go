// SPDX-License-Identifier: MPL-2.0

// Package config loads extlaunch settings with Viper, using CUE as the file
// format.
//
// The file is config.cue in the platform config directory
// ($XDG_CONFIG_HOME/extlaunch, ~/Library/Application Support/extlaunch or
// %APPDATA%\extlaunch), or ./config.cue when that is absent. It is validated
// against the embedded config_schema.cue before being merged over defaults.
// EXTLAUNCH_* environment variables override file values; nested keys use
// underscores (EXTLAUNCH_UI_VERBOSE).
package config
