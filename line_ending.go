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

package txtpp

import (
	"bufio"
	"os"
	"runtime"
)

const (
	LF   = "\n"
	CRLF = "\r\n"
)

// osLineEnding is the line ending used when a file's first line gives no
// signal either way.
var osLineEnding = func() string {
	if runtime.GOOS == "windows" {
		return CRLF
	}
	return LF
}()

// detectLineEnding reads the first line-terminated prefix of the file at
// path and reports CRLF if it ends in CRLF, LF if it ends in bare LF, or
// the OS default if the file has no terminated line (empty file, or a
// single line with no trailing newline).
func detectLineEnding(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return osLineEnding
	}
	defer f.Close()
	buf, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil && len(buf) == 0 {
		return osLineEnding
	}
	return lineEndingFromBuf(buf)
}

func lineEndingFromBuf(buf []byte) string {
	n := len(buf)
	switch {
	case n == 0:
		return osLineEnding
	case n == 1:
		if buf[0] == '\n' {
			return LF
		}
		return osLineEnding
	default:
		if buf[n-1] != '\n' {
			return osLineEnding
		}
		if buf[n-2] == '\r' {
			return CRLF
		}
		return LF
	}
}
