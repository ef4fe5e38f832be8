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

import "strings"

// Sentinel is the literal marker that starts a directive on a line.
const Sentinel = "TXTPP#"

// DirectiveKind is the parsed kind of a directive line, analogous to
// ninja's lexer Token enumeration but over txtpp's small directive
// vocabulary instead of manifest syntax.
type DirectiveKind int

const (
	KindEmpty DirectiveKind = iota
	KindInclude
	KindRun
	KindTag
	KindTemp
	KindWrite
)

func (k DirectiveKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindInclude:
		return "include"
	case KindRun:
		return "run"
	case KindTag:
		return "tag"
	case KindTemp:
		return "temp"
	case KindWrite:
		return "write"
	default:
		return "unknown"
	}
}

// singleLine reports whether this kind never accepts continuation lines.
func (k DirectiveKind) singleLine() bool {
	return k == KindInclude || k == KindTag
}

// Directive is a parsed directive, possibly spanning several source lines
// via the prefix-continuation convention.
type Directive struct {
	Whitespaces string
	Prefix      string
	Kind        DirectiveKind
	Args        []string
}

func directiveNameToKind(name string) (DirectiveKind, bool) {
	switch name {
	case "":
		return KindEmpty, true
	case "include":
		return KindInclude, true
	case "run":
		return KindRun, true
	case "tag":
		return KindTag, true
	case "temp":
		return KindTemp, true
	case "write":
		return KindWrite, true
	default:
		return 0, false
	}
}

// detectDirective attempts to parse line (without its trailing newline) as
// the first line of a directive. Returns ok=false if line is not a
// directive at all.
func detectDirective(line string) (Directive, bool) {
	ws := leadingWhitespace(line)
	rest := line[len(ws):]
	idx := strings.Index(rest, Sentinel)
	if idx < 0 {
		return Directive{}, false
	}
	prefix := rest[:idx]
	afterSentinel := rest[idx+len(Sentinel):]

	name := afterSentinel
	firstArg := ""
	hasArg := false
	if sp := strings.IndexByte(afterSentinel, ' '); sp >= 0 {
		name = afterSentinel[:sp]
		firstArg = strings.TrimSpace(afterSentinel[sp+1:])
		hasArg = true
	}
	kind, ok := directiveNameToKind(name)
	if !ok {
		return Directive{}, false
	}
	_ = hasArg
	return Directive{
		Whitespaces: ws,
		Prefix:      prefix,
		Kind:        kind,
		Args:        []string{firstArg},
	}, true
}

func leadingWhitespace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}

// addLine attempts to extend d with continuation line l. Returns ok=false
// if l does not extend d (d is therefore already complete and l must be
// reprocessed).
func (d *Directive) addLine(l string) bool {
	if d.Kind.singleLine() {
		return false
	}
	if !strings.HasPrefix(l, d.Whitespaces) {
		return false
	}
	rest := l[len(d.Whitespaces):]

	// (a) remainder equals prefix with trailing whitespace trimmed: empty
	// appended argument.
	if strings.TrimRight(rest, " \t") == strings.TrimRight(d.Prefix, " \t") {
		d.Args = append(d.Args, "")
		return true
	}
	// (b) remainder begins with prefix: append the text after it, trimmed
	// on the right.
	if strings.HasPrefix(rest, d.Prefix) {
		d.Args = append(d.Args, strings.TrimRight(rest[len(d.Prefix):], " \t"))
		return true
	}
	// (c) remainder begins with a run of spaces as long as the prefix:
	// append the text after those spaces, trimmed on the right.
	n := len(d.Prefix)
	if n > 0 && n <= len(rest) && allSpaces(rest[:n]) {
		d.Args = append(d.Args, strings.TrimRight(rest[n:], " \t"))
		return true
	}
	return false
}

func allSpaces(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' {
			return false
		}
	}
	return true
}

// requiresNonEmptyPrefix reports whether d's kind, being multi-line,
// requires a non-empty prefix to be well-formed. An empty-prefix
// multi-line directive is a hard parse error.
func (d *Directive) requiresNonEmptyPrefix() bool {
	return !d.Kind.singleLine()
}
