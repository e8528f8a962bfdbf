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

package parser_test

import (
	"go/token"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/autosched/build/parser"
	"github.com/gx-org/backend/dtype"
)

const blurSrc = `# Separable blur.
input in float32 2

func blur_y(x, y) float32 = (blur_x(x, y-1) + blur_x(x, y) + blur_x(x, y+1)) / 3
func blur_x(x, y) float32 = (in(x-1, y) + in(x, y) + in(x+1, y)) / 3

output blur_y(0:1000, 0:1000)
`

func TestParseBlur(t *testing.T) {
	p, err := parser.Parse(token.NewFileSet(), "blur.pipe", []byte(blurSrc))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	var got []string
	for _, f := range p.Funcs {
		got = append(got, f.String())
	}
	want := []string{
		"func blur_y(x, y) float32 = ((blur_x(x, y - 1) + blur_x(x, y)) + blur_x(x, y + 1)) / 3",
		"func blur_x(x, y) float32 = ((in(x - 1, y) + in(x, y)) + in(x + 1, y)) / 3",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected funcs (-want +got):\n%s", diff)
	}
	wantOutputs := []ir.Output{{Func: "blur_y", Estimates: []ir.Bound{{Min: 0, Extent: 1000}, {Min: 0, Extent: 1000}}}}
	if diff := cmp.Diff(wantOutputs, p.Outputs); diff != "" {
		t.Errorf("unexpected outputs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]*ir.Input{{Name: "in", Type: dtype.Float32, Dims: 2}}, p.Inputs); diff != "" {
		t.Errorf("unexpected inputs (-want +got):\n%s", diff)
	}
}

const histSrc = `input img uint32 2
param bins int32 1:257

func hist(i) int32 = 0  # Initial value.
rdom r(0:640, 0:480) where r.x < 600 && r.y >= 10
update hist(int64(clamp(img(r.x, r.y), 0, bins-1))) = hist(int64(clamp(img(r.x, r.y), 0, bins-1))) + 1 over r
func cdf(i) float32 = select(i > 0, float32(hist(i)), 0.5)
output cdf(0:256)
`

func TestParseReduction(t *testing.T) {
	p, err := parser.Parse(token.NewFileSet(), "hist.pipe", []byte(histSrc))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	hist := p.Func("hist")
	if hist == nil || len(hist.Updates()) != 1 {
		t.Fatalf("hist has no update: %v", hist)
	}
	u := hist.Updates()[0]
	if got, want := u.Domain.String(), "rdom r(0:640, 0:480) where r.x < 600 && r.y >= 10"; got != want {
		t.Errorf("got domain %q but want %q", got, want)
	}
	if !hist.IsScatter() {
		t.Errorf("hist should be a scatter")
	}
	bins := p.Param("bins")
	if bins == nil || bins.Estimate == nil || *bins.Estimate != (ir.Bound{Min: 1, Extent: 256}) {
		t.Errorf("unexpected param estimate: %v", bins)
	}
	var binsVar *ir.Var
	ir.Walk(u.Args[0], func(x ir.Expr) bool {
		if v, ok := x.(*ir.Var); ok && v.Name == "bins" {
			binsVar = v
		}
		return true
	})
	if binsVar == nil || binsVar.Type != dtype.Int32 {
		t.Errorf("parameter reference has not been typed: %v", binsVar)
	}
	want := "func cdf(i) float32 = select(i > 0, float32(hist(i)), 0.5)"
	if got := p.Func("cdf").String(); got != want {
		t.Errorf("got %q but want %q", got, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{
			src: `input in float32 1
func f(x) float32 = in(x) + g(x)
output f(0:10)`,
			want: []string{"test.pipe:2:29: undefined: g"},
		},
		{
			src: `input in float32 1
func f(x) float32 = in(x, x)
output f(0:10)`,
			want: []string{"test.pipe:2:21: in called with 2 arguments but want 1"},
		},
		{
			src: `func f(x) float32 = x
func f(y) float32 = y
output f(10:0)`,
			want: []string{
				"test.pipe:2:6: f redeclared",
				"test.pipe:3:10: invalid range \"10:0\": max is less than min",
			},
		},
		{
			src: `func f(x) float16 = x +
output g(0:10)
loop f`,
			want: []string{
				"test.pipe:1:11: unknown data type \"float16\"",
				"test.pipe:2:8: output of undefined func g",
				"test.pipe:3:1: unknown statement \"loop\"",
			},
		},
		{
			src: `func f(x) float32 = x
update f(r.x) = f(r.x) + 1 over r`,
			want: []string{"test.pipe:2:33: undefined reduction domain r"},
		},
		{
			src: `func f(x) float32 = 0
rdom r(0:10)
update f(r.x) = f(r.x) + h(r.x) over r
output f(0:10)`,
			want: []string{"update of f: test.pipe:3:26: undefined: h"},
		},
		{
			src:  `func f(x) float32 = x`,
			want: []string{"test.pipe:1:1: pipeline has no output"},
		},
	}
	for ti, test := range tests {
		_, err := parser.Parse(token.NewFileSet(), "test.pipe", []byte(test.src))
		if err == nil {
			t.Errorf("test %d: expected an error", ti)
			continue
		}
		got := strings.Split(err.Error(), "\n")
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("test %d: unexpected errors (-want +got):\n%s", ti, diff)
		}
	}
}
