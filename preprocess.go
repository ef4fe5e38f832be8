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
	"os"
	"path/filepath"
	"strings"

	"github.com/txtpp/txtpp/txtpplog"
)

var preprocessLog = txtpplog.New("preprocess")

// Shell runs a directive's Run command synchronously in dir, with env
// merged over the process environment, and returns its standard output.
type Shell interface {
	Run(ctx context.Context, command, dir string, env map[string]string) (string, error)
}

// PpResult is the outcome of one scheduled pass over a template file.
// Deps is non-nil only when the pass stopped early to report unresolved
// include dependencies (PpMode CollectDeps); Ok passes carry a nil Deps.
type PpResult struct {
	Input AbsPath
	Deps  []AbsPath
}

// HasDeps reports whether this result represents a first-pass file that
// must be rescheduled once every dependency in Deps has finished.
func (r PpResult) HasDeps() bool {
	return r.Deps != nil
}

type ppModeKind int

const (
	ppFirstPassExecute ppModeKind = iota
	ppExecute
	ppCollectDeps
)

type ppMode struct {
	kind ppModeKind
	deps []AbsPath
}

func (m ppMode) isExecute() bool {
	return m.kind == ppFirstPassExecute || m.kind == ppExecute
}

// Preprocessor drives one template file line by line through the
// directive state machine, producing output through an IOCtx and
// deferred substitutions through a TagState.
type Preprocessor struct {
	shell     Shell
	inputFile AbsPath
	mode      Mode
	ext       string

	trailingNewline bool

	ctx          *IOCtx
	curDirective *Directive
	tagState     *TagState
	ppMode       ppMode
}

// RunPreprocess preprocesses input under mode. isFirstPass selects
// whether an include directive naming an unbuilt dependency may suspend
// this pass early (PpMode FirstPassExecute) or must read straight
// through (PpMode Execute). trailingNewline governs whether a final
// input line lacking its own terminator gets a synthesized one. ext is
// the reserved extension token, so an include target's template sibling
// resolves against the same token this pass was invoked with.
func RunPreprocess(shell Shell, input AbsPath, mode Mode, isFirstPass, trailingNewline bool, ext string) (PpResult, error) {
	ctx, err := NewIOCtx(input, mode, ext)
	if err != nil {
		return PpResult{}, err
	}
	kind := ppExecute
	if isFirstPass {
		kind = ppFirstPassExecute
	}
	p := &Preprocessor{
		shell:           shell,
		inputFile:       input,
		mode:            mode,
		ext:             ext,
		trailingNewline: trailingNewline,
		ctx:             ctx,
		tagState:        NewTagState(),
		ppMode:          ppMode{kind: kind},
	}
	return p.runInternal()
}

type iterKind int

const (
	iterBreak iterKind = iota
	iterLineTaken
	iterNone
	iterExecute
)

type iterResult struct {
	kind       iterKind
	line       string
	terminated bool
	directive  Directive
	carry      *string
}

func (p *Preprocessor) runInternal() (PpResult, error) {
	for {
		line, ok := p.ctx.NextLine()
		var lineOpt *string
		if ok {
			lineOpt = &line
		}
		terminated := ok && p.ctx.LastLineTerminated()

		res, err := p.iterateDirective(lineOpt, terminated)
		if err != nil {
			if p.mode == ModeClean {
				res = iterResult{kind: iterNone, line: "", terminated: true}
			} else {
				preprocessLog.Error("directive failed", "file", p.ctx.InputPath, "line", p.ctx.CurLine, "error", err)
				return PpResult{}, err
			}
		}

		var toWrite *string
		switch res.kind {
		case iterBreak:
			return p.finish()
		case iterLineTaken:
			// consumed into the in-progress directive; nothing to write
		case iterNone:
			text := res.line
			if p.ppMode.isExecute() {
				text = p.tagState.InjectTags(text, p.ctx.LineEnding, res.terminated || p.trailingNewline)
			}
			toWrite = &text
		case iterExecute:
			w, err := p.handleExecute(res)
			if err != nil {
				preprocessLog.Error("directive failed", "file", p.ctx.InputPath, "line", p.ctx.CurLine, "error", err)
				return PpResult{}, err
			}
			toWrite = w
		}

		if p.ppMode.isExecute() && toWrite != nil {
			if err := p.ctx.WriteOutput(*toWrite); err != nil {
				return PpResult{}, err
			}
		}
	}
}

func (p *Preprocessor) finish() (PpResult, error) {
	if p.ppMode.kind == ppCollectDeps {
		return PpResult{Input: p.inputFile, Deps: p.ppMode.deps}, nil
	}
	if p.mode != ModeClean {
		if name, ok := p.tagState.Listening(); ok {
			return PpResult{}, p.ctx.MakeError(KindDirective, "tag %q was created but never written", name)
		}
		if stored := p.tagState.StoredNames(); len(stored) > 0 {
			return PpResult{}, p.ctx.MakeError(KindDirective, "tag(s) %s were written but never used", strings.Join(stored, ", "))
		}
	}
	if err := p.ctx.Done(); err != nil {
		return PpResult{}, err
	}
	return PpResult{Input: p.inputFile}, nil
}

// iterateDirective is the "iterate" transition of the directive state machine.
func (p *Preprocessor) iterateDirective(line *string, terminated bool) (iterResult, error) {
	if line == nil {
		if p.curDirective != nil {
			d := *p.curDirective
			p.curDirective = nil
			return iterResult{kind: iterExecute, directive: d}, nil
		}
		return iterResult{kind: iterBreak}, nil
	}

	if p.curDirective == nil {
		d, ok := detectDirective(*line)
		if !ok {
			return iterResult{kind: iterNone, line: *line, terminated: terminated}, nil
		}
		p.curDirective = &d
		return iterResult{kind: iterLineTaken}, nil
	}

	if p.curDirective.addLine(*line) {
		if p.curDirective.requiresNonEmptyPrefix() && p.curDirective.Prefix == "" {
			return iterResult{}, p.ctx.MakeError(KindDirective, "multi-line directive must have a prefix")
		}
		return iterResult{kind: iterLineTaken}, nil
	}
	done := *p.curDirective
	p.curDirective = nil
	l := *line
	return iterResult{kind: iterExecute, directive: done, carry: &l, terminated: terminated}, nil
}

// handleExecute is Step B for the Execute transition: it runs the
// directive, reconciles its output against the tag state, folds in any
// carried line, and returns the text (if any) to emit this iteration.
func (p *Preprocessor) handleExecute(res iterResult) (*string, error) {
	d := res.directive
	rawOutput, hasOutput, err := p.executeDirective(d)
	if err != nil {
		return nil, err
	}

	var directiveOutput *string
	if hasOutput {
		if p.tagState.TryStore(rawOutput) {
			// captured by a listening tag; nothing emitted here
		} else {
			rawTerminated := strings.HasSuffix(rawOutput, "\n")
			formatted := p.formatDirectiveOutput(d.Whitespaces, splitLines(rawOutput), rawTerminated || p.trailingNewline)
			directiveOutput = &formatted
		}
	}

	carry := res.carry
	if carry != nil {
		if d2, ok := detectDirective(*carry); ok {
			p.curDirective = &d2
			carry = nil
		}
	}
	if p.ppMode.isExecute() && carry != nil {
		injected := p.tagState.InjectTags(*carry, p.ctx.LineEnding, res.terminated || p.trailingNewline)
		carry = &injected
	}

	switch {
	case carry != nil && directiveOutput != nil:
		combined := *directiveOutput + *carry
		return &combined, nil
	case carry != nil:
		return carry, nil
	case directiveOutput != nil:
		return directiveOutput, nil
	default:
		return nil, nil
	}
}

// executeDirective runs d's side effects and returns its raw output, if
// any, per the per-kind semantics of each directive. In Clean mode only
// Temp directives do anything (remove their target), and errors are
// swallowed: a clean pass best-efforts its way through a template that
// may no longer be fully valid.
func (p *Preprocessor) executeDirective(d Directive) (string, bool, error) {
	if p.mode == ModeClean {
		_ = p.executeInCleanMode(d)
		return "", false, nil
	}

	proceed, err := p.executeInCollectDepsMode(d)
	if err != nil {
		return "", false, err
	}
	if !proceed {
		return "", false, nil
	}

	switch d.Kind {
	case KindEmpty:
		return "", false, nil

	case KindRun:
		command := strings.Join(d.Args, " ")
		env := map[string]string{"TXTPP_FILE": p.ctx.InputPath}
		out, err := p.shell.Run(context.Background(), command, p.ctx.WorkDir.String(), env)
		if err != nil {
			return "", false, p.ctx.MakeError(KindDirective, "failed to run command %q: %w", command, err)
		}
		return out, true, nil

	case KindInclude:
		arg := firstArg(d.Args)
		includePath := resolveAgainst(p.ctx.WorkDir.String(), arg)
		content, err := os.ReadFile(includePath)
		if err != nil {
			return "", false, p.ctx.MakeError(KindDirective, "could not read include file %q: %w", includePath, err)
		}
		return string(content), true, nil

	case KindTemp:
		if err := p.executeDirectiveTemp(d.Args, false); err != nil {
			return "", false, err
		}
		return "", false, nil

	case KindTag:
		name := firstArg(d.Args)
		if err := p.tagState.Create(name); err != nil {
			return "", false, p.ctx.MakeError(KindDirective, "could not create tag %q: %w", name, err)
		}
		return "", false, nil

	case KindWrite:
		rest := d.Args
		if len(rest) > 0 {
			rest = rest[1:]
		}
		return strings.Join(rest, "\n"), true, nil

	default:
		return "", false, nil
	}
}

func (p *Preprocessor) executeInCleanMode(d Directive) error {
	if d.Kind == KindTemp {
		return p.executeDirectiveTemp(d.Args, true)
	}
	return nil
}

// executeInCollectDepsMode implements the two-pass dependency-discovery
// rule: an include directive whose target is produced by
// another template is captured as a dependency instead of executed,
// while the run is still in FirstPassExecute or CollectDeps. It reports
// proceed=false when the directive was fully handled here (an include
// dependency was captured) and the caller should not fall through to the
// normal per-kind switch.
func (p *Preprocessor) executeInCollectDepsMode(d Directive) (bool, error) {
	if p.ppMode.kind == ppExecute {
		return true, nil
	}
	if d.Kind != KindInclude {
		return true, nil
	}

	arg := firstArg(d.Args)
	includePath := resolveAgainst(p.ctx.WorkDir.String(), arg)
	srcPath, ok := templateSourceFor(includePath, p.ext)
	if !ok {
		return true, nil
	}

	dep, err := NewAbsPath(srcPath, p.ctx.WorkDir.Display())
	if err != nil {
		return false, p.ctx.MakeError(KindDirective, "could not resolve include dependency %q: %w", srcPath, err)
	}

	switch p.ppMode.kind {
	case ppCollectDeps:
		p.ppMode.deps = append(p.ppMode.deps, dep)
	case ppFirstPassExecute:
		p.ppMode = ppMode{kind: ppCollectDeps, deps: []AbsPath{dep}}
	}
	return false, nil
}

func (p *Preprocessor) executeDirectiveTemp(args []string, isClean bool) error {
	if len(args) == 0 {
		return p.ctx.MakeError(KindDirective, "invalid temp directive: no export file path specified")
	}
	exportFile := args[0]
	if isClean {
		return p.ctx.WriteTempFile(exportFile, "")
	}
	hasTrailingNewline := len(args) > 1
	contents := p.formatDirectiveOutput("", args[1:], hasTrailingNewline)
	return p.ctx.WriteTempFile(exportFile, contents)
}

// formatDirectiveOutput prefixes every line of raw output with
// whitespaces, joins them with the file's line ending, and appends one
// final line ending iff hasTrailingNewline.
func (p *Preprocessor) formatDirectiveOutput(whitespaces string, lines []string, hasTrailingNewline bool) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteString(p.ctx.LineEnding)
		}
		b.WriteString(whitespaces)
		b.WriteString(line)
	}
	if hasTrailingNewline {
		b.WriteString(p.ctx.LineEnding)
	}
	return b.String()
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func resolveAgainst(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

// templateSourceFor reports whether outputPath would be produced by
// another template file (outputPath with ext appended).
func templateSourceFor(outputPath, ext string) (string, bool) {
	if IsTemplate(outputPath, ext) {
		return "", false
	}
	candidate := outputPath + "." + ext
	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return "", false
	}
	return candidate, true
}

// splitLines splits s into lines the way Rust's str::lines() does: a
// final trailing "\n" ends the last line rather than introducing an
// extra empty one, matching directive output against a freshly-read
// include file without doubling its trailing newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	if trimmed := strings.TrimSuffix(s, "\n"); trimmed != s {
		if trimmed == "" {
			return []string{""}
		}
		return strings.Split(trimmed, "\n")
	}
	return strings.Split(s, "\n")
}
