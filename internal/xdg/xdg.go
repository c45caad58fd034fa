// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

// Package xdg resolves XDG Base Directory paths for campauth.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "campauth"

// ConfigDir returns the campauth config directory.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ExistingConfigFile returns ConfigFile when it is a regular file, otherwise "".
func ExistingConfigFile() string {
	path := ConfigFile()
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}
