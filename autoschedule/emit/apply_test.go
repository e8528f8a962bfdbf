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

package emit

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/autosched/autoschedule/cost"
	"github.com/gx-org/autosched/autoschedule/graph"
	"github.com/gx-org/autosched/autoschedule/search"
	"github.com/gx-org/autosched/autoschedule/testpipe"
)

func TestPlanReorder(t *testing.T) {
	g, err := graph.Build(testpipe.Blur(1000, 1000))
	if err != nil {
		t.Fatal(err)
	}
	n := g.Lookup("blur_y")
	d := &search.Decision{
		Stage:    "blur_y",
		ID:       n.ID,
		Location: search.Location{Kind: search.Root},
		Nest:     cost.Nest{Tiles: []int64{200, 125}, VectorDim: 0, VectorWidth: 8, ParallelDim: 1, ParallelFactor: 8},
		Loops: []search.Loop{
			{Var: "y", Dim: 1, Outer: true, Span: 125, Count: 8, Parallel: true},
			{Var: "x", Dim: 0, Outer: true, Span: 200, Count: 5},
			{Var: "y_i", Dim: 1, Span: 1, Count: 125},
			{Var: "x_i", Dim: 0, Span: 8, Count: 25},
			{Var: "x_i_v", Dim: 0, Span: 1, Count: 8, Vectorized: true},
		},
		StorageOrder: []int{0, 1},
	}
	p, err := planStage(n, d, nil)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, dir := range p.directives {
		got = append(got, dir.String())
	}
	want := []string{
		"split(y, y, y_i, 125)",
		"split(x, x, x_i, 200)",
		"split(x_i, x_i, x_i_v, 8)",
		"reorder(x_i_v, x_i, y_i, x, y)",
		"vectorize(x_i_v)",
		"parallel(y)",
		"compute_root()",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected directives (-want +got):\n%s", diff)
	}
	for _, dir := range p.directives {
		if err := run(n.Func, nil, dir); err != nil {
			t.Fatalf("cannot apply %s: %v", dir, err)
		}
	}
	if diff := cmp.Diff([]string{"x_i_v", "x_i", "y_i", "x", "y"}, n.Func.LoopVars()); diff != "" {
		t.Errorf("unexpected loop variables (-want +got):\n%s", diff)
	}
}

func TestPlanInvalid(t *testing.T) {
	g, err := graph.Build(testpipe.Blur(1000, 1000))
	if err != nil {
		t.Fatal(err)
	}
	n := g.Lookup("blur_x")
	consumer := &plan{node: g.Lookup("blur_y"), loopVars: []string{"x", "y"}}
	tests := []struct {
		loc   search.Location
		loops []search.Loop
		err   string
	}{
		{
			loc: search.Location{Kind: search.AttachedTo, Consumer: "nope", Level: "y"},
			err: "not a materialized consumer",
		},
		{
			loc: search.Location{Kind: search.AttachedTo, Consumer: "blur_y", Level: "y_i"},
			err: "no such loop variable",
		},
		{
			loc:   search.Location{Kind: search.Root},
			loops: []search.Loop{{Var: "y", Dim: 1, Outer: true, Span: 4, Count: 2}},
			err:   "has no inner loop",
		},
	}
	for _, test := range tests {
		loops := test.loops
		if loops == nil {
			loops = []search.Loop{{Var: "y", Dim: 1, Count: 8}, {Var: "x", Dim: 0, Count: 8}}
		}
		d := &search.Decision{Stage: "blur_x", ID: n.ID, Location: test.loc, Loops: loops}
		_, err := planStage(n, d, map[string]*plan{"blur_y": consumer})
		if err == nil || !strings.Contains(err.Error(), test.err) {
			t.Errorf("%s: got error %v but want an error containing %q", test.loc, err, test.err)
		}
	}
}
