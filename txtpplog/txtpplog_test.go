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

package txtpplog

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupQuietSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, true)
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	l := New("build")
	l.Info("should not appear")
	l.Error("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}

func TestSetupVerboseShowsDebug(t *testing.T) {
	var buf bytes.Buffer
	Setup(true, false)
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	l := New("build")
	l.Debug("debug line")

	assert.True(t, strings.Contains(buf.String(), "debug line"))
}

func TestNewPrefixesComponent(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false)
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	l := New("scheduler")
	l.Info("starting")

	assert.Contains(t, buf.String(), "scheduler")
}
