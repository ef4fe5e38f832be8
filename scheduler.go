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

package txtpp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/txtpp/txtpp/txtpplog"
)

// Scanner lists the reserved-extension inputs and subdirectories directly
// within dir. It is the scheduler's only dependency on the filesystem scan
// side, mirroring how Shell is its only dependency on subprocess
// execution (txtpp/scan provides the real implementation).
type Scanner interface {
	Scan(dir AbsPath, recursive bool, ext string) (Directory, error)
}

// SchedulerConfig holds the Scheduler's run parameters, all sourced from
// CLI flags or the config file.
type SchedulerConfig struct {
	Threads         int
	Mode            Mode
	Recursive       bool
	TrailingNewline bool
	// Extension is the reserved extension token marking a template file.
	// Empty defaults to ReservedExt ("txtpp").
	Extension string
}

type taskKind int

const (
	taskScan taskKind = iota
	taskPreprocess
)

func taskKindName(k taskKind) string {
	if k == taskScan {
		return "scan"
	}
	return "preprocess"
}

type task struct {
	kind      taskKind
	dir       AbsPath
	file      AbsPath
	firstPass bool
}

type taskResult struct {
	task task
	dir  Directory
	pp   PpResult
	err  error
}

// Scheduler is the parallel build driver: a
// bounded worker pool scans directories and preprocesses files, reporting
// results through a single channel the main loop drains to mutate the
// dependency graph and decide what to submit next. Grounded on ninja's
// Plan/Builder split in build.go, rebuilt on errgroup the way
// internal/prd/worker.go's ScatterOrchestrator bounds its own worker pool.
type Scheduler struct {
	shell Shell
	scan  Scanner
	cfg   SchedulerConfig
	log   *txtpplog.Logger

	graph     *DependencyGraph
	scheduled map[string]struct{}

	total    int
	done     int
	hasError bool
	firstErr error
}

// NewScheduler returns a Scheduler ready to Run. Threads <= 0 is treated
// as 1.
func NewScheduler(shell Shell, scan Scanner, cfg SchedulerConfig) *Scheduler {
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	if cfg.Extension == "" {
		cfg.Extension = ReservedExt
	}
	return &Scheduler{
		shell:     shell,
		scan:      scan,
		cfg:       cfg,
		log:       txtpplog.New("scheduler"),
		graph:     NewDependencyGraph(),
		scheduled: map[string]struct{}{},
	}
}

// taskLabel names t's path for a log line: the directory of a scan task,
// the file of a preprocess task.
func taskLabel(t task) string {
	if t.kind == taskScan {
		return t.dir.Display()
	}
	return t.file.Display()
}

// Progress reports (completed, total) task counts so a caller can render a
// status line; total grows as scans and dependency resolution discover
// more work, the way ninja's StatusPrinter reads Plan counts that
// change over the course of a build.
func (s *Scheduler) Progress() (done, total int) {
	return s.done, s.total
}

// Graph returns the dependency graph accumulated by Run, for diagnostics
// such as the "txtpp graph" subcommand's DOT dump.
func (s *Scheduler) Graph() *DependencyGraph {
	return s.graph
}

// Run resolves inputs and drives the scheduler to
// completion: submit, drain results, mutate the dependency graph, submit
// more, until every submitted task has reported back. baseDir is used
// only for display-relative path formatting in later log output.
func (s *Scheduler) Run(ctx context.Context, baseDir string, inputs []string) error {
	results := make(chan taskResult)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Threads)

	// submit is only ever called from this goroutine: once synchronously
	// below to seed the initial inputs, and thereafter from the single
	// result-draining loop. That keeps the concurrency contract from
	// that contract intact: worker goroutines communicate only through
	// results, this goroutine alone mutates the graph and counters.
	submit := func(t task) {
		if s.hasError {
			return
		}
		s.total++
		s.log.Debug("scheduled", "kind", taskKindName(t.kind), "path", taskLabel(t))
		go g.Go(func() error {
			results <- s.execute(gctx, t)
			return nil
		})
	}

	for _, in := range inputs {
		t, err := s.resolveInput(baseDir, in)
		if err != nil {
			return err
		}
		if s.tryMarkScheduled(t) {
			submit(t)
		}
	}

	for s.done < s.total {
		r := <-results
		s.done++
		s.log.Debug("finished", "kind", taskKindName(r.task.kind), "path", taskLabel(r.task))
		if s.hasError {
			continue // draining: a fatal error already stopped new scheduling
		}
		if err := s.handleResult(r, submit); err != nil {
			s.log.Error("task failed", "path", taskLabel(r.task), "error", err)
			s.recordError(err)
		}
	}
	g.Wait()

	if s.hasError {
		return s.firstErr
	}
	if remaining := s.graph.TakeRemaining(); len(remaining) > 0 {
		return s.cycleError(remaining)
	}
	return nil
}

func (s *Scheduler) recordError(err error) {
	if !s.hasError {
		s.hasError = true
		s.firstErr = err
	}
}

// resolveInput resolves one CLI-supplied path: a directory becomes a scan
// task, a reserved-extension file becomes a first-pass preprocess task,
// and a bare name with a reserved-extension sibling resolves to that
// sibling; anything else is an error.
func (s *Scheduler) resolveInput(baseDir, in string) (task, error) {
	abs, err := filepath.Abs(in)
	if err != nil {
		return task{}, newError(KindPathResolution, in, 0, "resolving input: %w", err)
	}
	if info, statErr := os.Stat(abs); statErr == nil {
		if info.IsDir() {
			p, err := NewAbsPath(abs, baseDir)
			if err != nil {
				return task{}, err
			}
			return task{kind: taskScan, dir: p, firstPass: true}, nil
		}
		if IsTemplate(abs, s.cfg.Extension) {
			p, err := NewAbsPath(abs, baseDir)
			if err != nil {
				return task{}, err
			}
			return task{kind: taskPreprocess, file: p, firstPass: true}, nil
		}
	}
	sibling := abs + "." + s.cfg.Extension
	if _, err := os.Stat(sibling); err == nil {
		p, err := NewAbsPath(sibling, baseDir)
		if err != nil {
			return task{}, err
		}
		return task{kind: taskPreprocess, file: p, firstPass: true}, nil
	}
	return task{}, newError(KindPathResolution, in, 0, "not a directory, a %s template, or a name with a %s sibling", s.cfg.Extension, s.cfg.Extension)
}

// tryMarkScheduled applies the first-pass dedup rule: first-pass tasks are
// recorded in the scheduled set and skipped on a repeat; second-pass
// tasks are never deduped.
func (s *Scheduler) tryMarkScheduled(t task) bool {
	if !t.firstPass {
		return true
	}
	key := "f:" + t.file.String()
	if t.kind == taskScan {
		key = "d:" + t.dir.String()
	}
	if _, exists := s.scheduled[key]; exists {
		return false
	}
	s.scheduled[key] = struct{}{}
	return true
}

func (s *Scheduler) execute(ctx context.Context, t task) taskResult {
	if t.kind == taskScan {
		dir, err := s.scan.Scan(t.dir, s.cfg.Recursive, s.cfg.Extension)
		return taskResult{task: t, dir: dir, err: err}
	}
	res, err := RunPreprocess(s.shell, t.file, s.cfg.Mode, t.firstPass, s.cfg.TrailingNewline, s.cfg.Extension)
	return taskResult{task: t, pp: res, err: err}
}

// handleResult applies one task's outcome to the schedule: scan results enqueue their
// discovered inputs (and subdirectories, if recursive); a PpResult with
// dependencies either enqueues the newly-discovered live deps or, if none
// were live, resubmits the same file as a second pass; a dependency-free
// PpResult notifies the graph and enqueues every vertex it unblocks.
func (s *Scheduler) handleResult(r taskResult, submit func(task)) error {
	if r.err != nil {
		return r.err
	}
	switch r.task.kind {
	case taskScan:
		for _, f := range r.dir.Inputs {
			t := task{kind: taskPreprocess, file: f, firstPass: true}
			if s.tryMarkScheduled(t) {
				submit(t)
			}
		}
		if s.cfg.Recursive {
			for _, d := range r.dir.SubDirs {
				t := task{kind: taskScan, dir: d, firstPass: true}
				if s.tryMarkScheduled(t) {
					submit(t)
				}
			}
		}
	case taskPreprocess:
		if r.pp.HasDeps() {
			if s.graph.AddDependency(r.task.file, r.pp.Deps) {
				for _, dep := range r.pp.Deps {
					t := task{kind: taskPreprocess, file: dep, firstPass: true}
					if s.tryMarkScheduled(t) {
						submit(t)
					}
				}
			} else {
				submit(task{kind: taskPreprocess, file: r.task.file, firstPass: false})
			}
		} else {
			for _, u := range s.graph.NotifyFinish(r.task.file) {
				submit(task{kind: taskPreprocess, file: u, firstPass: false})
			}
		}
	}
	return nil
}

func (s *Scheduler) cycleError(remaining map[AbsPath][]AbsPath) error {
	var b strings.Builder
	b.WriteString("dependency cycle: ")
	first := true
	for depender, deps := range remaining {
		if !first {
			b.WriteString("; ")
		}
		first = false
		names := make([]string, len(deps))
		for i, d := range deps {
			names[i] = d.Display()
		}
		fmt.Fprintf(&b, "%s waits on [%s]", depender.Display(), strings.Join(names, ", "))
	}
	return newError(KindCircularDependency, "", 0, "%s", b.String())
}
