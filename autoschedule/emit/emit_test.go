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

package emit_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/autosched/api/options"
	"github.com/gx-org/autosched/autoschedule/cost"
	"github.com/gx-org/autosched/autoschedule/emit"
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

func schedule(t *testing.T, p *ir.Pipeline) *search.Schedule {
	t.Helper()
	g, err := graph.Build(p)
	if err != nil {
		t.Fatal(err)
	}
	estimates, err := region.Estimate(g)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := options.New()
	if err != nil {
		t.Fatal(err)
	}
	s, err := search.Run(g, estimates, cost.NewModel(g, machine, opts.Memory), opts)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestText(t *testing.T) {
	tests := []struct {
		pipe *ir.Pipeline
		want string
	}{
		{
			pipe: testpipe.Blur(1000, 1000),
			want: `blur_y: root tile(x=1000, y=25) vectorize(x, 8) parallel(y, 40)
blur_x: compute_at(blur_y, y) tile(x=1000, y=9) vectorize(x, 8) parallel(-)
`,
		},
		{
			pipe: testpipe.Elementwise(4096),
			want: `scale: root tile(x=512) vectorize(x, 8) parallel(x, 8)
`,
		},
	}
	for _, test := range tests {
		got := emit.Text(schedule(t, test.pipe))
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("unexpected text (-want +got):\n%s", diff)
		}
	}
}

func TestTextIsStable(t *testing.T) {
	want := emit.Text(schedule(t, testpipe.Diamond(4096)))
	for range 3 {
		if got := emit.Text(schedule(t, testpipe.Diamond(4096))); got != want {
			t.Errorf("text differs between runs:\n%s\n%s", want, got)
		}
	}
	for _, line := range strings.Split(strings.TrimSpace(want), "\n") {
		if strings.HasPrefix(line, "dead:") {
			t.Errorf("dead stage scheduled: %s", line)
		}
	}
}

func TestApply(t *testing.T) {
	p := testpipe.Blur(1000, 1000)
	s := schedule(t, p)
	if err := emit.Apply(s); err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"blur_y": `blur_y.split(y, y, y_i, 25)
blur_y.split(x, x, x_v, 8)
blur_y.vectorize(x_v)
blur_y.parallel(y)
blur_y.compute_root()`,
		"blur_x": `blur_x.split(y, y, y_i, 9)
blur_x.split(x, x, x_v, 8)
blur_x.vectorize(x_v)
blur_x.compute_at(blur_y, y)`,
	}
	for name, want := range want {
		got := p.Func(name).ScheduleString()
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s: unexpected directives (-want +got):\n%s", name, diff)
		}
	}
	if diff := cmp.Diff([]string{"x_v", "x", "y_i", "y"}, p.Func("blur_y").LoopVars()); diff != "" {
		t.Errorf("blur_y: unexpected loop variables (-want +got):\n%s", diff)
	}

	err := emit.Apply(s)
	var already *scherr.AlreadyScheduledError
	if !errors.As(err, &already) {
		t.Fatalf("got error %v but want an AlreadyScheduledError", err)
	}
	if diff := cmp.Diff([]string{"blur_x", "blur_y"}, already.Stages); diff != "" {
		t.Errorf("unexpected stages (-want +got):\n%s", diff)
	}
	// The funcs have not been modified twice.
	if got := len(p.Func("blur_x").Directives()); got != 4 {
		t.Errorf("blur_x has %d directives but want 4", got)
	}
	// A scheduled pipeline cannot be scheduled again.
	var presched *scherr.PrescheduledInputError
	if _, err := graph.Build(p); !errors.As(err, &presched) {
		t.Errorf("got error %v but want a PrescheduledInputError", err)
	}
}

func TestApplyIsAtomic(t *testing.T) {
	p := testpipe.Blur(1000, 1000)
	s := schedule(t, p)
	// blur_x is scheduled after blur_y: splitting one of its loops
	// by zero fails once the directives of blur_y have been run.
	d := s.Decision("blur_x")
	outer := slices.IndexFunc(d.Loops, func(l search.Loop) bool { return l.Outer })
	if outer < 0 {
		t.Fatalf("blur_x has no outer loop: %v", d.Loops)
	}
	span := d.Loops[outer].Span
	d.Loops[outer].Span = 0
	err := emit.Apply(s)
	if err == nil || !strings.Contains(err.Error(), "non-positive factor") {
		t.Fatalf("got error %v but want an error containing %q", err, "non-positive factor")
	}
	for _, name := range []string{"blur_x", "blur_y"} {
		if f := p.Func(name); f.Scheduled() {
			t.Errorf("%s has been scheduled by a failed application:\n%s", name, f.ScheduleString())
		}
	}
	if diff := cmp.Diff([]string{"x", "y"}, p.Func("blur_y").LoopVars()); diff != "" {
		t.Errorf("blur_y: unexpected loop variables (-want +got):\n%s", diff)
	}
	if s.Graph().Applied() {
		t.Errorf("graph marked as applied after a failed application")
	}

	d.Loops[outer].Span = span
	if err := emit.Apply(s); err != nil {
		t.Fatal(err)
	}
	if got := len(p.Func("blur_x").Directives()); got != 4 {
		t.Errorf("blur_x has %d directives but want 4", got)
	}
}

func TestApplyElementwise(t *testing.T) {
	p := testpipe.Elementwise(4096)
	if err := emit.Apply(schedule(t, p)); err != nil {
		t.Fatal(err)
	}
	want := `scale.split(x, x, x_i, 512)
scale.split(x_i, x_i, x_i_v, 8)
scale.vectorize(x_i_v)
scale.parallel(x)
scale.compute_root()`
	if diff := cmp.Diff(want, p.Func("scale").ScheduleString()); diff != "" {
		t.Errorf("unexpected directives (-want +got):\n%s", diff)
	}
}

func TestDigest(t *testing.T) {
	text := emit.Text(schedule(t, testpipe.Blur(1000, 1000)))
	a, err := emit.Digest(text)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(a, "h1:") {
		t.Errorf("digest %q does not start with h1:", a)
	}
	b, err := emit.Digest(text)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("digest is not deterministic: %s != %s", a, b)
	}
	c, err := emit.Digest(text + "\n")
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Errorf("different texts have the same digest %s", a)
	}
}

func TestReport(t *testing.T) {
	got, err := emit.Report(schedule(t, testpipe.Blur(1000, 1000)))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"machine: 8,8,256KiB,40",
		"stages: 2",
		"compute_at(blur_y, y)",
		"1000x25",
		"7,404,375",
		"loop nests (outermost first):",
		"blur_y: y[40] parallel y_i[25] x[125] x_v[8] vectorized",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report does not contain %q:\n%s", want, got)
		}
	}
}
