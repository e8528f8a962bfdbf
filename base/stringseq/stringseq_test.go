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

package stringseq_test

import (
	"fmt"
	"slices"
	"testing"

	"github.com/gx-org/autosched/base/stringseq"
)

type name string

func (n name) String() string { return "<" + string(n) + ">" }

func TestJoin(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{
			got:  stringseq.JoinStringer(slices.Values([]name{"a", "b"}), ", "),
			want: "<a>, <b>",
		},
		{
			got:  stringseq.JoinStringer(slices.Values([]name(nil)), ", "),
			want: "",
		},
		{
			got:  stringseq.JoinFunc(slices.Values([]int64{4, 8}), func(v int64) string { return fmt.Sprint(v) }, "x"),
			want: "4x8",
		},
		{
			got:  stringseq.JoinIndexed([]int{1000, 25}, func(i, v int) string { return fmt.Sprintf("%c=%d", 'x'+i, v) }, ", "),
			want: "x=1000, y=25",
		},
	}
	for i, test := range tests {
		if test.got != test.want {
			t.Errorf("test %d: got %q but want %q", i, test.got, test.want)
		}
	}
}
