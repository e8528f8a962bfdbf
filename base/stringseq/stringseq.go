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

// Package stringseq provides functions for converting iterator sequences to strings.
package stringseq

import (
	"fmt"
	"iter"
	"strings"
)

// JoinFunc concatenates the elements of seq converted by f.
// The separator string sep is placed between elements in the resulting string.
func JoinFunc[T any](seq iter.Seq[T], f func(T) string, sep string) string {
	var b strings.Builder
	n := 0
	for item := range seq {
		if n > 0 {
			b.WriteString(sep)
		}
		b.WriteString(f(item))
		n++
	}
	return b.String()
}

// JoinStringer concatenates the stringified elements of seq.
// The separator string sep is placed between elements in the resulting string.
func JoinStringer[T fmt.Stringer](seq iter.Seq[T], sep string) string {
	return JoinFunc(seq, func(v T) string { return v.String() }, sep)
}

// JoinIndexed concatenates f(i, el) for every element of a slice.
func JoinIndexed[T any](s []T, f func(int, T) string, sep string) string {
	var b strings.Builder
	for i, el := range s {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(f(i, el))
	}
	return b.String()
}
