// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/grove/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/grove/config.cue on macOS, %APPDATA%\grove\config.cue
// on Windows). The package provides type-safe configuration access and covers default
// shell selection, log level, confirmation behavior, UI settings, and watch mode tuning.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations.
package config
