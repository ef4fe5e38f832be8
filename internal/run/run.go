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

// Package run wires an Options value into a configured Scheduler and
// drives one of its three modes (or the "graph" diagnostic), the
// generalization of ninja.go's realMain (config+options -> Builder.Build)
// to txtpp's build/clean/verify/graph quartet.
package run

import (
	"context"
	"errors"
	"os"

	"github.com/txtpp/txtpp"
	"github.com/txtpp/txtpp/scan"
	"github.com/txtpp/txtpp/shell"
	"github.com/txtpp/txtpp/txtppconfig"
	"github.com/txtpp/txtpp/txtpplog"
)

// Options holds every flag the CLI accepts, shared across subcommands.
type Options struct {
	Quiet     bool
	Verbose   bool
	Recursive bool
	Threads   int
	Shell     string
	DryRun    bool
	Inputs    []string
}

type scanAdapter struct{}

func (scanAdapter) Scan(dir txtpp.AbsPath, recursive bool, ext string) (txtpp.Directory, error) {
	return scan.Scan(dir, recursive, ext)
}

// resolved bundles everything derived from Options plus an on-disk
// txtpp.toml before a Scheduler can run.
type resolved struct {
	cfg   txtppconfig.Config
	shell *shell.Shell
}

func prepare(opts *Options) (resolved, error) {
	txtpplog.Setup(opts.Verbose, opts.Quiet)

	cwd, err := os.Getwd()
	if err != nil {
		return resolved{}, err
	}

	cfg := txtppconfig.Default()
	if path, err := txtppconfig.Find(cwd); err != nil {
		return resolved{}, err
	} else if path != "" {
		cfg, err = txtppconfig.Load(path)
		if err != nil {
			return resolved{}, err
		}
	}

	shellPath := opts.Shell
	if shellPath == "" {
		shellPath = cfg.Shell
	}

	return resolved{cfg: cfg, shell: shell.New(shellPath)}, nil
}

func (r resolved) schedulerConfig(opts *Options, mode txtpp.Mode) txtpp.SchedulerConfig {
	threads := opts.Threads
	if threads <= 0 {
		threads = r.cfg.Threads
	}
	return txtpp.SchedulerConfig{
		Threads:         threads,
		Mode:            mode,
		Recursive:       opts.Recursive || r.cfg.Recursive,
		TrailingNewline: r.cfg.TrailingNewlineOrDefault(),
		Extension:       r.cfg.Extension,
	}
}

func (r resolved) run(ctx context.Context, opts *Options, mode txtpp.Mode) (*txtpp.Scheduler, error) {
	sched := txtpp.NewScheduler(r.shell, scanAdapter{}, r.schedulerConfig(opts, mode))
	cwd, err := os.Getwd()
	if err != nil {
		return sched, err
	}
	err = sched.Run(ctx, cwd, opts.Inputs)
	return sched, err
}

func summarize(l *txtpplog.Logger, verb string, sched *txtpp.Scheduler) {
	done, total := sched.Progress()
	l.Infof("%s: %d/%d tasks processed", verb, done, total)
}

// Build runs the default build action: preprocess every resolved input,
// writing (or, with Options.DryRun, only reporting) output.
func Build(ctx context.Context, opts *Options) error {
	r, err := prepare(opts)
	if err != nil {
		return err
	}
	log := txtpplog.New("build")
	mode := txtpp.ModeBuild
	verb := "build"
	if opts.DryRun {
		mode = txtpp.ModeDryRun
		verb = "dry run"
	}
	sched, err := r.run(ctx, opts, mode)
	summarize(log, verb, sched)
	return err
}

// Clean removes every generated output and temp file reachable from the
// resolved inputs.
func Clean(ctx context.Context, opts *Options) error {
	r, err := prepare(opts)
	if err != nil {
		return err
	}
	log := txtpplog.New("clean")
	sched, err := r.run(ctx, opts, txtpp.ModeClean)
	summarize(log, "clean", sched)
	return err
}

// Verify checks that every resolved input's existing output matches what
// a fresh build would produce. Output files are only read; temp
// directives still write their targets.
func Verify(ctx context.Context, opts *Options) error {
	r, err := prepare(opts)
	if err != nil {
		return err
	}
	log := txtpplog.New("verify")
	sched, err := r.run(ctx, opts, txtpp.ModeVerify)
	summarize(log, "verify", sched)
	return err
}

// Graph resolves every input's dependencies and renders the resulting
// graph as graphviz DOT. A cycle is reported in the graph itself rather
// than as a failure, since a cycle is exactly the thing this diagnostic
// exists to surface.
func Graph(ctx context.Context, opts *Options) (string, error) {
	r, err := prepare(opts)
	if err != nil {
		return "", err
	}
	sched, err := r.run(ctx, opts, txtpp.ModeDryRun)
	if err != nil {
		var domainErr *txtpp.Error
		if !errors.As(err, &domainErr) || domainErr.Kind != txtpp.KindCircularDependency {
			return "", err
		}
	}
	return sched.Graph().DOT(), nil
}
