// Copyright 2012 Google Inc. All Rights Reserved.
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

// Package shell runs a Run directive's command line through the user's
// shell and captures its standard output, the way ninja's
// subprocess.go spawns a build command, simplified to a single
// synchronous call since a file's directives already execute one at a
// time (concurrency comes from running whole files in parallel, not
// subprocesses within one).
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Shell runs a shell command line synchronously and returns its standard
// output.
type Shell struct {
	path string
}

// New returns a Shell that invokes shellPath to run commands. An empty
// shellPath defaults to "bash" on Windows and "/bin/sh" everywhere else,
// mirroring ninja's default in subprocess.go/subprocess_posix.go.
func New(shellPath string) *Shell {
	if shellPath == "" {
		if runtime.GOOS == "windows" {
			shellPath = "bash"
		} else {
			shellPath = "/bin/sh"
		}
	}
	return &Shell{path: shellPath}
}

// Run executes command in dir with env merged on top of the current
// process environment, returning its standard output. Standard error is
// captured only to annotate a non-zero exit status; it never reaches the
// returned output.
func (s *Shell) Run(ctx context.Context, command, dir string, env map[string]string) (string, error) {
	flag := "-c"
	if runtime.GOOS == "windows" && s.path == "bash" {
		flag = "-c"
	}
	cmd := exec.CommandContext(ctx, s.path, flag, command)
	cmd.Dir = dir
	cmd.Env = mergeEnv(os.Environ(), env)

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running %q via %s: %w: %s", command, s.path, err, errOut.String())
	}
	return out.String(), nil
}

func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	merged := make([]string, len(base), len(base)+len(overrides))
	copy(merged, base)
	for k, v := range overrides {
		merged = append(merged, k+"="+v)
	}
	return merged
}
