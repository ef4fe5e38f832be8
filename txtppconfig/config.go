// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package txtppconfig loads an optional txtpp.toml project configuration,
// the generalization of ninja's hardcoded build options (ninja.go's
// options struct only ever comes from flags) to a discoverable project
// file, in the shape AbdelazizMoustafa10m-Raven/internal/config loads
// raven.toml.
package txtppconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the txtpp project configuration file.
const FileName = "txtpp.toml"

// Config holds the project-level defaults a txtpp.toml may set.
// internal/run merges them with CLI flags: a set threads or shell flag
// takes precedence, and recursive is on if either the flag or the file
// turns it on.
type Config struct {
	Threads         int    `toml:"threads"`
	Shell           string `toml:"shell"`
	Recursive       bool   `toml:"recursive"`
	TrailingNewline *bool  `toml:"trailing_newline"`
	Extension       string `toml:"extension"`
}

// Default returns a Config populated with txtpp's built-in defaults:
// trailing_newline true and extension "txtpp", so a project with no
// txtpp.toml behaves identically to one with an explicit default file.
func Default() Config {
	t := true
	return Config{
		Threads:         4,
		Recursive:       false,
		TrailingNewline: &t,
		Extension:       "txtpp",
	}
}

// Find walks up from startDir looking for FileName, stopping at the
// filesystem root. Returns "" with a nil error if none is found.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Load parses the TOML file at path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// TrailingNewlineOrDefault reports c.TrailingNewline, defaulting to true
// when unset (a bare Config{} zero value, as opposed to one built via
// Default or Load).
func (c Config) TrailingNewlineOrDefault() bool {
	if c.TrailingNewline == nil {
		return true
	}
	return *c.TrailingNewline
}
