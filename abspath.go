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
	"os"
	"path/filepath"
	"strings"
)

// ReservedExt is the reserved extension token that marks a template file.
const ReservedExt = "txtpp"

// AbsPath is an absolute filesystem path paired with a base path used only
// for display-relative formatting. Two AbsPath values are equal iff their
// absolute paths are equal; the base is ignored by Equal and by pathKey,
// which the dependency graph uses to key its maps. An AbsPath used
// directly as a Go map key compares the base as well.
type AbsPath struct {
	abs  string
	base string
}

// NewAbsPath resolves p (absolute or relative to the working directory) to
// an AbsPath rooted for display at base. The path must exist.
func NewAbsPath(p, base string) (AbsPath, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return AbsPath{}, newError(KindPathResolution, p, 0, "resolving path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return AbsPath{}, newError(KindPathResolution, p, 0, "path does not exist: %w", err)
	}
	return AbsPath{abs: abs, base: base}, nil
}

// NewAbsPathCreate is like NewAbsPath but materializes an empty file at p
// first if it does not already exist. The Temp directive does not use it:
// temp targets are written through IOCtx.WriteTempFile.
func NewAbsPathCreate(p, base string) (AbsPath, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return AbsPath{}, newError(KindPathResolution, p, 0, "resolving path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		if !os.IsNotExist(err) {
			return AbsPath{}, newError(KindOpenFile, p, 0, "stat: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return AbsPath{}, newError(KindWriteFile, p, 0, "creating parent dirs: %w", err)
		}
		f, err := os.Create(abs)
		if err != nil {
			return AbsPath{}, newError(KindWriteFile, p, 0, "creating file: %w", err)
		}
		f.Close()
	}
	return AbsPath{abs: abs, base: base}, nil
}

// String returns the absolute path.
func (a AbsPath) String() string {
	return a.abs
}

// Display returns the path relative to the base, for user-facing output.
// Falls back to the absolute path if it cannot be made relative.
func (a AbsPath) Display() string {
	if a.base == "" {
		return a.abs
	}
	rel, err := filepath.Rel(a.base, a.abs)
	if err != nil {
		return a.abs
	}
	return rel
}

// Equal reports whether two AbsPath values name the same absolute path,
// ignoring the base used for display.
func (a AbsPath) Equal(o AbsPath) bool {
	return a.abs == o.abs
}

// pathKey returns the value used to key AbsPath in maps and sets: the
// absolute path alone, so paths reached via different relative prefixes
// still compare and hash equal.
func (a AbsPath) pathKey() string {
	return a.abs
}

// Join resolves ext against a's directory (if ext is relative) and
// returns the resulting AbsPath, requiring it to exist.
func (a AbsPath) Join(ext string) (AbsPath, error) {
	if filepath.IsAbs(ext) {
		return NewAbsPath(ext, a.base)
	}
	return NewAbsPath(filepath.Join(filepath.Dir(a.abs), ext), a.base)
}

// Dir returns the AbsPath of a's parent directory.
func (a AbsPath) Dir() AbsPath {
	return AbsPath{abs: filepath.Dir(a.abs), base: a.base}
}

// IsTemplate reports whether p's last or second-to-last extension segment
// is ext, the reserved token marking a file as a preprocessor template.
func IsTemplate(p, ext string) bool {
	_, ok := outputPathFor(p, ext)
	return ok
}

// outputPathFor computes the output path for a template input path by
// dropping exactly the reserved-extension segment, preserving any other
// extension segment around it (so "name.ext.txtpp" -> "name.ext" and
// "name.txtpp.ext" -> "name.ext", and "name.txtpp" -> "name").
func outputPathFor(p, ext string) (string, bool) {
	dir, base := filepath.Split(p)
	segs := strings.Split(base, ".")
	if len(segs) < 2 {
		return "", false
	}
	last := len(segs) - 1
	switch {
	case segs[last] == ext:
		segs = append(segs[:last], segs[last+1:]...)
	case last >= 1 && segs[last-1] == ext:
		segs = append(segs[:last-1], segs[last:]...)
	default:
		return "", false
	}
	return dir + strings.Join(segs, "."), true
}

// Directory is the result of scanning a directory: its own AbsPath, the
// ordered input-file AbsPaths (those matching the reserved extension
// pattern) directly within it, and its ordered subdirectory AbsPaths.
type Directory struct {
	Path    AbsPath
	Inputs  []AbsPath
	SubDirs []AbsPath
}
