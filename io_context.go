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
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Mode selects what an IOCtx does with the bytes a Preprocessor produces.
type Mode int

const (
	// ModeBuild writes output to disk.
	ModeBuild Mode = iota
	// ModeInMemoryBuild buffers output in memory and only touches disk at
	// Done if the content actually changed, per ninja's
	// mtime-avoidance philosophy (RealDiskInterface.Stat caching exists
	// for the same reason: avoid needless work when nothing changed).
	ModeInMemoryBuild
	// ModeClean removes the output and any temp files instead of writing.
	ModeClean
	// ModeVerify reads the existing output back and fails if it diverges
	// byte-for-byte from what a fresh build would produce.
	ModeVerify
	// ModeDryRun reports what would be built without touching disk at
	// all: unlike ModeVerify it never requires the output to already
	// exist, and unlike ModeClean it never removes anything.
	ModeDryRun
)

func (m Mode) String() string {
	switch m {
	case ModeBuild:
		return "build"
	case ModeInMemoryBuild:
		return "in-memory build"
	case ModeClean:
		return "clean"
	case ModeVerify:
		return "verify"
	case ModeDryRun:
		return "dry run"
	default:
		return "unknown"
	}
}

// sink is the output half of an IOCtx; its behavior varies by Mode exactly
// as ninja's DiskInterface is swapped out for a dry-run implementation in
// tests (disk_interface.go), except here the five variants are data, not
// separate types satisfying an interface.
type sink struct {
	mode Mode
	path string

	// ModeBuild
	w *bufio.Writer
	f *os.File

	// ModeInMemoryBuild
	buf bytes.Buffer

	// ModeVerify
	r   *bufio.Reader
	vf  *os.File
	rem int64
}

func newSink(mode Mode, outputPath string) (*sink, error) {
	s := &sink{mode: mode, path: outputPath}
	switch mode {
	case ModeBuild:
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o777); err != nil {
			return nil, newError(KindOpenFile, outputPath, 0, "create parent directories: %w", err)
		}
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, newError(KindOpenFile, outputPath, 0, "create output file: %w", err)
		}
		s.f = f
		s.w = bufio.NewWriter(f)
	case ModeInMemoryBuild:
		// nothing to open yet; accumulated in buf and reconciled at Done.
	case ModeClean:
		if _, err := os.Stat(outputPath); err == nil {
			if err := os.Remove(outputPath); err != nil {
				return nil, newError(KindDeleteFile, outputPath, 0, "remove output file: %w", err)
			}
		}
	case ModeVerify:
		info, err := os.Stat(outputPath)
		if err != nil {
			return nil, newError(KindVerifyOutput, outputPath, 0, "output file does not exist: %w", err)
		}
		f, err := os.Open(outputPath)
		if err != nil {
			return nil, newError(KindOpenFile, outputPath, 0, "open output file: %w", err)
		}
		s.vf = f
		s.r = bufio.NewReader(f)
		s.rem = info.Size()
	case ModeDryRun:
		// nothing to open or stat; no disk access in this mode.
	}
	return s, nil
}

// IOCtx is the per-file IO context a Preprocessor drives: it owns the
// input scanner, tracks the current line for error reporting, and routes
// output bytes through the Mode-appropriate sink. It is the generalization
// of ninja's RealDiskInterface to txtpp's five run modes.
type IOCtx struct {
	InputPath  string
	OutputPath string
	WorkDir    AbsPath
	LineEnding string
	CurLine    int

	in      *bufio.Reader
	inf     *os.File
	out     *sink
	eof     bool
	readErr error

	// lastLineTerminated reports whether the most recent line returned by
	// NextLine was followed by a line terminator in the source file. It is
	// false only for a final, unterminated line at EOF, letting the
	// preprocessor decide whether to synthesize a trailing line ending.
	lastLineTerminated bool
}

// NewIOCtx opens input for reading and prepares the output sink for mode.
// ext is the reserved extension token that marks input as a template.
func NewIOCtx(input AbsPath, mode Mode, ext string) (*IOCtx, error) {
	inputPath := input.String()
	lineEnding := detectLineEnding(inputPath)

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, newError(KindOpenFile, inputPath, 0, "open input file: %w", err)
	}

	outputRel, ok := outputPathFor(filepath.Base(inputPath), ext)
	if !ok {
		f.Close()
		return nil, newError(KindPathResolution, inputPath, 0, "not a %s template", ext)
	}
	outputPath := filepath.Join(filepath.Dir(inputPath), outputRel)

	out, err := newSink(mode, outputPath)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &IOCtx{
		InputPath:  inputPath,
		OutputPath: outputPath,
		WorkDir:    input.Dir(),
		LineEnding: lineEnding,
		in:         bufio.NewReaderSize(f, 64*1024),
		inf:        f,
		out:        out,
	}, nil
}

// NextLine returns the next input line (without its terminator) and true,
// or "", false at EOF.
func (c *IOCtx) NextLine() (string, bool) {
	if c.eof {
		return "", false
	}
	raw, err := c.in.ReadString('\n')
	if len(raw) == 0 {
		c.eof = true
		if err != nil && err != io.EOF {
			c.readErr = newError(KindReadFile, c.InputPath, c.CurLine+1, "read input: %w", err)
		}
		return "", false
	}
	c.CurLine++
	if strings.HasSuffix(raw, "\n") {
		c.lastLineTerminated = true
		raw = strings.TrimSuffix(raw, "\n")
		raw = strings.TrimSuffix(raw, "\r")
	} else {
		c.lastLineTerminated = false
	}
	if err == io.EOF {
		c.eof = true
	} else if err != nil {
		c.eof = true
		c.readErr = newError(KindReadFile, c.InputPath, c.CurLine, "read input: %w", err)
	}
	return raw, true
}

// LastLineTerminated reports whether the line most recently returned by
// NextLine ended with a line terminator in the source file.
func (c *IOCtx) LastLineTerminated() bool {
	return c.lastLineTerminated
}

func (c *IOCtx) scanErr() error {
	return c.readErr
}

// WriteOutput writes output, which must already have its line ending
// resolved, to the sink. ModeClean discards it; ModeVerify compares it
// byte for byte against the remaining bytes of the existing output file.
func (c *IOCtx) WriteOutput(output string) error {
	s := c.out
	switch s.mode {
	case ModeBuild:
		if _, err := s.w.WriteString(output); err != nil {
			return newError(KindWriteFile, c.InputPath, c.CurLine, "write output: %w", err)
		}
		return nil
	case ModeInMemoryBuild:
		s.buf.WriteString(output)
		return nil
	case ModeClean:
		return nil
	case ModeVerify:
		want := []byte(output)
		if s.rem < int64(len(want)) {
			return c.verifyMismatch()
		}
		got := make([]byte, len(want))
		if _, err := io.ReadFull(s.r, got); err != nil {
			return newError(KindReadFile, c.InputPath, c.CurLine, "read existing output: %w", err)
		}
		if !bytes.Equal(got, want) {
			return c.verifyMismatch()
		}
		s.rem -= int64(len(want))
		return nil
	case ModeDryRun:
		return nil
	default:
		return nil
	}
}

func (c *IOCtx) verifyMismatch() error {
	return newError(KindVerifyOutput, c.OutputPath, c.CurLine, "output differs from a fresh build")
}

// WriteTempFile writes an idempotent auxiliary file relative to WorkDir,
// skipping the write when an identical file already exists (mirrors
// ninja's mtime-avoidance intent, but by content hash instead of
// timestamp since txtpp has no build-graph staleness tracking). In
// ModeClean it removes the file instead.
func (c *IOCtx) WriteTempFile(name, content string) error {
	target := name
	if !filepath.IsAbs(target) {
		target = filepath.Join(c.WorkDir.String(), name)
	}

	if c.out.mode == ModeClean {
		if _, statErr := os.Stat(target); statErr == nil {
			if rmErr := os.Remove(target); rmErr != nil {
				return newError(KindDeleteFile, c.InputPath, c.CurLine, "remove temp file %q: %w", name, rmErr)
			}
		}
		return nil
	}
	if c.out.mode == ModeDryRun {
		return nil
	}

	if existing, readErr := os.ReadFile(target); readErr == nil {
		if xxhash.Sum64(existing) == xxhash.Sum64String(content) && bytes.Equal(existing, []byte(content)) {
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
		return newError(KindWriteFile, c.InputPath, c.CurLine, "create parent directories for temp file %q: %w", name, err)
	}
	if err := os.WriteFile(target, []byte(content), 0o666); err != nil {
		return newError(KindWriteFile, c.InputPath, c.CurLine, "write temp file %q: %w", name, err)
	}
	return nil
}

// Done flushes or reconciles the output sink and reports a verify
// mismatch if ModeVerify did not consume every remaining byte.
func (c *IOCtx) Done() error {
	defer c.inf.Close()
	if err := c.scanErr(); err != nil {
		return err
	}
	s := c.out
	switch s.mode {
	case ModeBuild:
		defer s.f.Close()
		if err := s.w.Flush(); err != nil {
			return newError(KindWriteFile, c.InputPath, 0, "flush output: %w", err)
		}
		return nil
	case ModeInMemoryBuild:
		fresh := s.buf.Bytes()
		if existing, err := os.ReadFile(s.path); err == nil {
			if xxhash.Sum64(existing) == xxhash.Sum64(fresh) && bytes.Equal(existing, fresh) {
				return nil
			}
		}
		if err := os.MkdirAll(filepath.Dir(s.path), 0o777); err != nil {
			return newError(KindWriteFile, c.InputPath, 0, "create parent directories: %w", err)
		}
		if err := os.WriteFile(s.path, fresh, 0o666); err != nil {
			return newError(KindWriteFile, c.InputPath, 0, "write output file: %w", err)
		}
		return nil
	case ModeClean:
		return nil
	case ModeVerify:
		defer s.vf.Close()
		if s.rem != 0 {
			return c.verifyMismatch()
		}
		return nil
	case ModeDryRun:
		return nil
	default:
		return nil
	}
}

// MakeError builds a domain error for this IOCtx's current file and line.
func (c *IOCtx) MakeError(kind Kind, format string, args ...interface{}) *Error {
	return newError(kind, c.InputPath, c.CurLine, format, args...)
}
