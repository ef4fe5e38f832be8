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

package run

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}

func TestBuildWritesOutput(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snippet.txt"), []byte("included content"), 0o666))
	in := filepath.Join(dir, "out.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("TXTPP#include snippet.txt\n"), 0o666))

	opts := &Options{Quiet: true, Inputs: []string{in}}
	require.NoError(t, Build(context.Background(), opts))

	got, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "included content\n", string(got))
}

func TestBuildHonorsProjectConfig(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "txtpp.toml"), []byte("threads = 1\n"), 0o666))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snippet.txt"), []byte("v"), 0o666))
	in := filepath.Join(dir, "out.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("TXTPP#include snippet.txt\n"), 0o666))

	opts := &Options{Quiet: true, Inputs: []string{in}}
	require.NoError(t, Build(context.Background(), opts))

	_, err := os.Stat(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
}

func TestGraphToleratesCycleAndReturnsDOT(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt.txtpp"), []byte("TXTPP#include b.txt\n"), 0o666))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt.txtpp"), []byte("TXTPP#include a.txt\n"), 0o666))

	opts := &Options{Quiet: true, Inputs: []string{filepath.Join(dir, "a.txt.txtpp")}}
	dot, err := Graph(context.Background(), opts)
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph txtpp {")
}

func TestVerifyFailsWhenOutputMissing(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snippet.txt"), []byte("v"), 0o666))
	in := filepath.Join(dir, "out.txt.txtpp")
	require.NoError(t, os.WriteFile(in, []byte("TXTPP#include snippet.txt\n"), 0o666))

	opts := &Options{Quiet: true, Inputs: []string{in}}
	err := Verify(context.Background(), opts)
	assert.Error(t, err)
}
