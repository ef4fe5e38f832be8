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
	"fmt"
	"sort"
	"strings"
)

// TagState tracks the single in-flight "tag" directive (if any) and the
// content stored for tags already closed, across one file's preprocessing
// pass. It has no teacher analogue: ninja's manifest has no notion of a
// named placeholder filled in later in the same pass.
type TagState struct {
	listening string
	hasListening bool
	stored    map[string]string
}

// NewTagState returns an empty TagState.
func NewTagState() *TagState {
	return &TagState{stored: map[string]string{}}
}

// Create begins listening for the named tag. It fails if a tag is already
// listening, or if tag is identical to or a prefix/superstring of any
// already-created tag name (stored or still listening) so that
// InjectTags's substring search can never be ambiguous about which tag a
// match belongs to.
func (t *TagState) Create(tag string) error {
	if t.hasListening {
		return fmt.Errorf("cannot create tag %q: tag %q is still listening", tag, t.listening)
	}
	for k := range t.stored {
		if k == tag {
			return fmt.Errorf("cannot create tag %q: a tag with the same name is already stored", tag)
		}
		if strings.HasPrefix(k, tag) || strings.HasPrefix(tag, k) {
			return fmt.Errorf("cannot create tag %q: ambiguous with existing tag %q", tag, k)
		}
	}
	t.listening = tag
	t.hasListening = true
	return nil
}

// TryStore closes the listening tag by associating content with it.
// Reports false if no tag is currently listening.
func (t *TagState) TryStore(content string) bool {
	if !t.hasListening {
		return false
	}
	t.stored[t.listening] = content
	t.listening = ""
	t.hasListening = false
	return true
}

// Listening reports the name of the tag currently awaiting the next
// directive output, if any.
func (t *TagState) Listening() (string, bool) {
	return t.listening, t.hasListening
}

// StoredNames returns the names of tags that were created and filled but
// never substituted back into the output, in sorted order.
func (t *TagState) StoredNames() []string {
	names := make([]string, 0, len(t.stored))
	for k := range t.stored {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

type tagMatch struct {
	index int
	key   string
	value string
}

// InjectTags replaces every stored tag name found verbatim in output with
// its stored content (normalized to lineEnding), consuming each match at
// most once. A stored tag with no matching occurrence in output is carried
// over for the next call: it may match a later chunk of the same file.
// Overlapping matches are resolved left to right, earliest match wins.
// appendEnding controls whether lineEnding is appended after the
// substitution; callers pass false only for a file's final, unterminated
// line when the configured trailing-newline policy says not to
// synthesize one.
func (t *TagState) InjectTags(output, lineEnding string, appendEnding bool) string {
	var matches []tagMatch
	for k, v := range t.stored {
		if i := strings.Index(output, k); i >= 0 {
			matches = append(matches, tagMatch{index: i, key: k, value: v})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].index < matches[j].index })

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if m.index < last {
			continue
		}
		b.WriteString(output[last:m.index])
		b.WriteString(replaceLineEnding(m.value, lineEnding))
		last = m.index + len(m.key)
		delete(t.stored, m.key)
	}
	b.WriteString(output[last:])
	if appendEnding {
		b.WriteString(lineEnding)
	}
	return b.String()
}

// replaceLineEnding rewrites every CRLF or bare LF in s to ending.
func replaceLineEnding(s, ending string) string {
	s = strings.ReplaceAll(s, CRLF, LF)
	if ending == LF {
		return s
	}
	return strings.ReplaceAll(s, LF, ending)
}
