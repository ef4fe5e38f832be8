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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShell struct {
	output string
	err    error
	lastCommand string
	lastDir     string
	lastEnv     map[string]string
}

func (f *fakeShell) Run(_ context.Context, command, dir string, env map[string]string) (string, error) {
	f.lastCommand = command
	f.lastDir = dir
	f.lastEnv = env
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

func preprocessFile(t *testing.T, dir, name, content string, mode Mode, firstPass bool) (PpResult, error) {
	t.Helper()
	in := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(in, []byte(content), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)
	return RunPreprocess(&fakeShell{}, input, mode, firstPass, true, ReservedExt)
}

func TestPreprocessPassthrough(t *testing.T) {
	dir := t.TempDir()
	_, err := preprocessFile(t, dir, "a.txt.txtpp", "hello\nworld\n", ModeBuild, true)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(got))
}

func TestPreprocessRunDirective(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("before\n// TXTPP#run echo hi\nafter\n"), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	shell := &fakeShell{output: "hi\n"}
	_, err = RunPreprocess(shell, input, ModeBuild, true, true, ReservedExt)
	require.NoError(t, err)
	assert.Equal(t, "echo hi", shell.lastCommand)
	assert.Equal(t, dir, shell.lastDir)
	assert.Equal(t, in, shell.lastEnv["TXTPP_FILE"])

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "before\nhi\nafter\n", string(got))
}

func TestPreprocessRunDirectiveError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("// TXTPP#run false\n"), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	shell := &fakeShell{err: assertError{"boom"}}
	_, err = RunPreprocess(shell, input, ModeBuild, true, true, ReservedExt)
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindDirective, pe.Kind)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func TestPreprocessIncludePlainFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snippet.txt"), []byte("included content"), 0o666))
	in := filepath.Join(dir, "a.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("TXTPP#include snippet.txt\n"), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	_, err = RunPreprocess(&fakeShell{}, input, ModeBuild, true, true, ReservedExt)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "included content\n", string(got))
}

func TestPreprocessIncludeDependencyDetected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt.txtpp"), []byte("hello\n"), 0o666))
	in := filepath.Join(dir, "a.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("TXTPP#include b.txt\n"), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	result, err := RunPreprocess(&fakeShell{}, input, ModeBuild, true, true, ReservedExt)
	require.NoError(t, err)
	require.True(t, result.HasDeps())
	require.Len(t, result.Deps, 1)
	assert.Equal(t, filepath.Join(dir, "b.txt.txtpp"), result.Deps[0].String())
}

func TestPreprocessIncludeDependencyNotCollectedOnSecondPass(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("hello\n"), 0o666))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt.txtpp"), []byte("hello\n"), 0o666))
	in := filepath.Join(dir, "a.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("TXTPP#include b.txt\n"), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	result, err := RunPreprocess(&fakeShell{}, input, ModeBuild, false, true, ReservedExt)
	require.NoError(t, err)
	assert.False(t, result.HasDeps())

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(got))
}

func TestPreprocessWriteDirective(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt.txtpp")
	content := "  // TXTPP#write ignored\n  // line one\n  // line two\nafter\n"
	require.NoError(t, os.WriteFile(in, []byte(content), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	_, err = RunPreprocess(&fakeShell{}, input, ModeBuild, true, true, ReservedExt)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "  line one\n  line two\nafter\n", string(got))
}

func TestPreprocessTagAndWriteLater(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt.txtpp")
	content := "TXTPP#tag NAME\n// TXTPP#write x\n// Alice\nHello NAME!\n"
	require.NoError(t, os.WriteFile(in, []byte(content), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	_, err = RunPreprocess(&fakeShell{}, input, ModeBuild, true, true, ReservedExt)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello Alice!\n", string(got))
}

func TestPreprocessUnusedTagFails(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("TXTPP#tag NAME\nTXTPP#write Alice\n"), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	_, err = RunPreprocess(&fakeShell{}, input, ModeBuild, true, true, ReservedExt)
	require.Error(t, err)
}

func TestPreprocessTempDirective(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("// TXTPP#temp gen.txt\n// line1\n// line2\n"), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	_, err = RunPreprocess(&fakeShell{}, input, ModeBuild, true, true, ReservedExt)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "gen.txt"))
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", string(got))
}

func TestPreprocessCleanRemovesOutputAndTemp(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("// TXTPP#temp gen.txt\n// line1\n"), 0o666))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("stale"), 0o666))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gen.txt"), []byte("line1\n"), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	_, err = RunPreprocess(&fakeShell{}, input, ModeClean, true, true, ReservedExt)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "a.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "gen.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestPreprocessVerifyDetectsDrift(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("hello\n"), 0o666))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("goodbye\n"), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	_, err = RunPreprocess(&fakeShell{}, input, ModeVerify, true, true, ReservedExt)
	require.Error(t, err)
}

func TestPreprocessRunDirectiveOutputHonorsTrailingNewlineConfig(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("TXTPP#run printf hello\n"), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	shell := &fakeShell{output: "hello"}
	_, err = RunPreprocess(shell, input, ModeBuild, true, false, ReservedExt)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestPreprocessRunDirectiveOutputPreservesOwnTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("TXTPP#run echo hello\n"), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	shell := &fakeShell{output: "hello\n"}
	_, err = RunPreprocess(shell, input, ModeBuild, true, false, ReservedExt)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(got))
}

func TestPreprocessTrailingNewlineSuppressed(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("no newline at end"), 0o666))
	input, err := NewAbsPath(in, dir)
	require.NoError(t, err)

	_, err = RunPreprocess(&fakeShell{}, input, ModeBuild, true, false, ReservedExt)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "no newline at end", string(got))
}
