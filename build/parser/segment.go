// Copyright 2025 Google LLC
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

package parser

import (
	"strings"
	"unicode"
)

// segment is a piece of the source with its offset in the file.
type segment struct {
	text string
	off  int
}

func splitLines(src string) []segment {
	var lines []segment
	off := 0
	for line := range strings.Lines(src) {
		lines = append(lines, segment{text: strings.TrimRight(line, "\r\n"), off: off})
		off += len(line)
	}
	return lines
}

func (s segment) slice(i, j int) segment {
	return segment{text: s.text[i:j], off: s.off + i}
}

func (s segment) trim() segment {
	left := len(s.text) - len(strings.TrimLeftFunc(s.text, unicode.IsSpace))
	return segment{text: strings.TrimSpace(s.text), off: s.off + left}
}

func (s segment) cut(sep string) (before, after segment, found bool) {
	i := strings.Index(s.text, sep)
	if i < 0 {
		return s, segment{off: s.off + len(s.text)}, false
	}
	return s.slice(0, i), s.slice(i+len(sep), len(s.text)), true
}

// cutAssign cuts the segment around the first = which is not
// part of a comparison operator.
func (s segment) cutAssign() (before, after segment, found bool) {
	for i := 0; i < len(s.text); i++ {
		if s.text[i] != '=' {
			continue
		}
		if i+1 < len(s.text) && s.text[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && strings.IndexByte("<>!", s.text[i-1]) >= 0 {
			continue
		}
		return s.slice(0, i), s.slice(i+1, len(s.text)), true
	}
	return s, segment{off: s.off + len(s.text)}, false
}

// split splits the segment around separators outside of parentheses.
func (s segment) split(sep string) []segment {
	var parts []segment
	depth, start := 0, 0
	for i := 0; i < len(s.text); i++ {
		switch c := s.text[i]; {
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case depth == 0 && strings.HasPrefix(s.text[i:], sep):
			parts = append(parts, s.slice(start, i))
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	return append(parts, s.slice(start, len(s.text)))
}

func (s segment) fields() []segment {
	var fields []segment
	start := -1
	for i, c := range s.text {
		if unicode.IsSpace(c) {
			if start >= 0 {
				fields = append(fields, s.slice(start, i))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, s.slice(start, len(s.text)))
	}
	return fields
}
