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

// Package txtpplog wraps charmbracelet/log for txtpp's CLI: a single
// global level configured once from -q/-v, and per-package loggers
// carrying a component prefix, replacing ninja's line_printer.go
// (which assumed a single progress line rather than
// leveled, component-tagged log lines).
package txtpplog

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger is re-exported so callers need not import charmbracelet/log
// themselves just to hold onto a value returned by New.
type Logger = log.Logger

const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

// Setup configures the global logging defaults. Call once during CLI
// startup, before any New. If both verbose and quiet are set, quiet
// wins, so scripted invocations can always force --quiet to silence
// build chatter.
func Setup(verbose, quiet bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	if quiet {
		level = log.ErrorLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(false)
}

// New creates a logger prefixed with component, inheriting the level and
// output Setup configured.
func New(component string) *log.Logger {
	return log.WithPrefix(component)
}

// SetOutput overrides the default logger's output, for tests that want
// to capture log lines.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}
