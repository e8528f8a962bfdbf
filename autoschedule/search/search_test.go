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

package search_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/autosched/api/options"
	"github.com/gx-org/autosched/autoschedule/cost"
	"github.com/gx-org/autosched/autoschedule/graph"
	"github.com/gx-org/autosched/autoschedule/region"
	"github.com/gx-org/autosched/autoschedule/scherr"
	"github.com/gx-org/autosched/autoschedule/search"
	"github.com/gx-org/autosched/autoschedule/testpipe"
	"github.com/gx-org/autosched/build/ir"
	"github.com/pkg/errors"
)

var machine = cost.MachineParams{
	Parallelism:         8,
	VectorWidth:         8,
	LastLevelCacheBytes: 256 << 10,
	Balance:             40,
}

func run(t *testing.T, p *ir.Pipeline, mp cost.MachineParams, opts ...options.Option) (*search.Schedule, error) {
	t.Helper()
	g, err := graph.Build(p)
	if err != nil {
		t.Fatal(err)
	}
	estimates, err := region.Estimate(g)
	if err != nil {
		t.Fatal(err)
	}
	o, err := options.New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return search.Run(g, estimates, cost.NewModel(g, mp, o.Memory), o)
}

func mustRun(t *testing.T, p *ir.Pipeline, mp cost.MachineParams, opts ...options.Option) *search.Schedule {
	t.Helper()
	s, err := run(t, p, mp, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func loopVars(d *search.Decision) []string {
	var vars []string
	for _, l := range d.Loops {
		vars = append(vars, l.Var)
	}
	return vars
}

func TestBlur(t *testing.T) {
	s := mustRun(t, testpipe.Blur(1000, 1000), machine)
	var order []string
	for _, d := range s.Decisions() {
		order = append(order, d.Stage)
	}
	if diff := cmp.Diff([]string{"blur_y", "blur_x"}, order); diff != "" {
		t.Errorf("unexpected decision order (-want +got):\n%s", diff)
	}

	blurY := s.Decision("blur_y")
	if blurY.Location.Kind != search.Root {
		t.Errorf("blur_y: got %s but want root", blurY.Location)
	}
	wantNest := cost.Nest{Tiles: []int64{1000, 25}, VectorDim: 0, VectorWidth: 8, ParallelDim: 1, ParallelFactor: 40}
	if diff := cmp.Diff(wantNest, blurY.Nest); diff != "" {
		t.Errorf("blur_y: unexpected nest (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"y", "y_i", "x", "x_v"}, loopVars(blurY)); diff != "" {
		t.Errorf("blur_y: unexpected loops (-want +got):\n%s", diff)
	}

	blurX := s.Decision("blur_x")
	want := search.Location{Kind: search.AttachedTo, Consumer: "blur_y", Level: "y"}
	if blurX.Location != want {
		t.Errorf("blur_x: got %s but want %s", blurX.Location, want)
	}
	if got, want := blurX.Box.String(), "[0:1000, -1:26]"; got != want {
		t.Errorf("blur_x: got box %s but want %s", got, want)
	}
	if got := blurX.Context.Execs; got != 40 {
		t.Errorf("blur_x: got %d executions but want 40", got)
	}
	if got, want := s.TotalCost(), blurY.Cost.Add(blurX.Cost); got != want {
		t.Errorf("got total cost %v but want %v", got, want)
	}
}

func TestElementwise(t *testing.T) {
	s := mustRun(t, testpipe.Elementwise(4096), machine)
	d := s.Decision("scale")
	if d.Location.Kind != search.Root {
		t.Errorf("got %s but want root", d.Location)
	}
	want := cost.Nest{Tiles: []int64{512}, VectorDim: 0, VectorWidth: 8, ParallelDim: 0, ParallelFactor: 8}
	if diff := cmp.Diff(want, d.Nest); diff != "" {
		t.Errorf("unexpected nest (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"x", "x_i", "x_i_v"}, loopVars(d)); diff != "" {
		t.Errorf("unexpected loops (-want +got):\n%s", diff)
	}
	if got := 4096 % d.ParallelFactor; got != 0 || d.ParallelFactor < int64(machine.Parallelism) {
		t.Errorf("parallel factor %d does not divide 4096 or is smaller than %d", d.ParallelFactor, machine.Parallelism)
	}
}

func summary(s *search.Schedule) []string {
	var lines []string
	for _, d := range s.Decisions() {
		lines = append(lines, fmt.Sprintf("%s %s %v %v %v %v", d.Stage, d.Location, d.Nest, d.Loops, d.Box, d.Cost))
	}
	return lines
}

func TestDeterminism(t *testing.T) {
	pipes := map[string]func() *ir.Pipeline{
		"blur":    func() *ir.Pipeline { return testpipe.Blur(640, 480) },
		"diamond": func() *ir.Pipeline { return testpipe.Diamond(4096) },
		"hist":    func() *ir.Pipeline { return testpipe.Histogram(64, 32) },
		"comb":    func() *ir.Pipeline { return testpipe.Comb(65536) },
	}
	for name, pipe := range pipes {
		want := summary(mustRun(t, pipe(), machine, options.Workers(1)))
		for _, workers := range []int{2, 4, 16} {
			got := summary(mustRun(t, pipe(), machine, options.Workers(workers)))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%s: %d workers: schedule differs from one worker (-want +got):\n%s", name, workers, diff)
			}
		}
	}
}

func TestCoverage(t *testing.T) {
	s := mustRun(t, testpipe.Diamond(4096), machine)
	g := s.Graph()
	if got, want := len(s.Decisions()), len(g.Nodes()); got != want {
		t.Errorf("got %d decisions for %d stages", got, want)
	}
	for _, n := range g.Nodes() {
		d := s.Decision(n.Name)
		if d == nil {
			t.Errorf("no decision for stage %s", n.Name)
			continue
		}
		if d.Location.Kind == search.AttachedTo && g.Lookup(d.Location.Consumer) == nil {
			t.Errorf("%s attached to unknown stage %s", n.Name, d.Location.Consumer)
		}
	}
	if d := s.Decision("dead"); d != nil {
		t.Errorf("dead stage has a decision: %s", d.Location)
	}
	if d := s.Decision("out"); d.Location.Kind != search.Root {
		t.Errorf("output computed at %s", d.Location)
	}
}

func TestLocalityMonotonic(t *testing.T) {
	tests := []struct {
		name     string
		pipe     func() *ir.Pipeline
		producer string
	}{
		{
			name:     "comb",
			pipe:     func() *ir.Pipeline { return testpipe.Comb(65536) },
			producer: "taps",
		},
		{
			name:     "blur",
			pipe:     func() *ir.Pipeline { return testpipe.Blur(1000, 1000) },
			producer: "blur_x",
		},
	}
	for _, test := range tests {
		prev := -1.0
		for cache := int64(8 << 10); cache <= 4<<20; cache *= 2 {
			mp := machine
			mp.LastLevelCacheBytes = cache
			s := mustRun(t, test.pipe(), mp)
			total := s.TotalCost().Total()
			if prev >= 0 && total > prev {
				t.Errorf("%s: cache of %d bytes: total cost %f is larger than %f with a smaller cache", test.name, cache, total, prev)
			}
			prev = total
			if d := s.Decision(test.producer); d.Location.Kind == search.Inline {
				t.Errorf("%s: cache of %d bytes: %s is inlined", test.name, cache, test.producer)
			}
		}
	}

	small := machine
	small.LastLevelCacheBytes = 16 << 10
	want := search.Location{Kind: search.AttachedTo, Consumer: "comb", Level: "x"}
	if got := mustRun(t, testpipe.Comb(65536), small).Decision("taps").Location; got != want {
		t.Errorf("small cache: got %s but want %s", got, want)
	}
	large := machine
	large.LastLevelCacheBytes = 4 << 20
	if got := mustRun(t, testpipe.Comb(65536), large).Decision("taps").Location; got.Kind != search.Root {
		t.Errorf("large cache: got %s but want root", got)
	}
}

func TestReductions(t *testing.T) {
	s := mustRun(t, testpipe.Histogram(64, 32), machine)
	for _, name := range []string{"hist", "norm"} {
		if d := s.Decision(name); d.Location.Kind != search.Root {
			t.Errorf("%s: got %s but want root", name, d.Location)
		}
	}
	if got, want := s.Decision("hist").BufferBytes, int64(256*4); got != want {
		t.Errorf("hist: got a buffer of %d bytes but want %d", got, want)
	}

	s = mustRun(t, testpipe.RowSum(64, 32), machine)
	if d := s.Decision("row_sum"); d.Location.Kind == search.Inline {
		t.Errorf("row_sum: a reduction cannot be inlined")
	}
}

func TestNoFeasibleSchedule(t *testing.T) {
	_, err := run(t, testpipe.Histogram(64, 32), machine, options.MaxBufferBytes(16))
	var noSched *scherr.NoFeasibleScheduleError
	if !errors.As(err, &noSched) {
		t.Fatalf("got error %v but want a NoFeasibleScheduleError", err)
	}
	if noSched.Stage != "hist" {
		t.Errorf("got stage %s but want hist", noSched.Stage)
	}
}

type recorder struct {
	candidates, decisions []string
}

func (r *recorder) Candidate(stage, location string, _ cost.Estimate, reason string) error {
	if reason != "" {
		location += " infeasible"
	}
	r.candidates = append(r.candidates, stage+" "+location)
	return nil
}

func (r *recorder) Decision(stage, location string, _ cost.Estimate) error {
	r.decisions = append(r.decisions, stage+" "+location)
	return nil
}

func TestTrace(t *testing.T) {
	rec := &recorder{}
	mustRun(t, testpipe.Blur(1000, 1000), machine, options.WithTrace(rec), options.Workers(3))
	wantCandidates := []string{
		"blur_y root",
		"blur_x root",
		"blur_x inline",
		"blur_x compute_at(blur_y, y)",
		"blur_x compute_at(blur_y, y_i)",
		"blur_x compute_at(blur_y, x)",
	}
	if diff := cmp.Diff(wantCandidates, rec.candidates); diff != "" {
		t.Errorf("unexpected candidates (-want +got):\n%s", diff)
	}
	wantDecisions := []string{"blur_y root", "blur_x compute_at(blur_y, y)"}
	if diff := cmp.Diff(wantDecisions, rec.decisions); diff != "" {
		t.Errorf("unexpected decisions (-want +got):\n%s", diff)
	}

	rec = &recorder{}
	if _, err := run(t, testpipe.Histogram(64, 32), machine, options.WithTrace(rec), options.MaxBufferBytes(16)); err == nil {
		t.Fatal("expected an error")
	}
	if diff := cmp.Diff([]string{"norm root", "hist root infeasible"}, rec.candidates); diff != "" {
		t.Errorf("unexpected candidates (-want +got):\n%s", diff)
	}
}
