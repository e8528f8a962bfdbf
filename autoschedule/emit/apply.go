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
	"slices"

	"github.com/gx-org/autosched/autoschedule/graph"
	"github.com/gx-org/autosched/autoschedule/scherr"
	"github.com/gx-org/autosched/autoschedule/search"
	"github.com/gx-org/autosched/build/fmterr"
	"github.com/gx-org/autosched/build/ir"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// plan lists the directives of a stage and its loop variables
// once the directives have been applied, innermost first.
type plan struct {
	node       *graph.Node
	directives []ir.Directive
	loopVars   []string
}

func (p *plan) split(old, outer, inner string, factor int64) error {
	pos := slices.Index(p.loopVars, old)
	if pos < 0 {
		return errors.Errorf("%s: cannot split %s: no such loop variable in %v", p.node.Name, old, p.loopVars)
	}
	p.loopVars = slices.Replace(p.loopVars, pos, pos+1, inner, outer)
	p.directives = append(p.directives, ir.Directive{Kind: ir.SplitDirective, Vars: []string{old, outer, inner}, Factor: int(factor)})
	return nil
}

func (p *plan) mark(kind ir.DirectiveKind, v string) {
	p.directives = append(p.directives, ir.Directive{Kind: kind, Vars: []string{v}})
}

func innerLoop(d *search.Decision, from, dim int) (search.Loop, bool) {
	for _, l := range d.Loops[from+1:] {
		if l.Dim == dim && !l.Outer {
			return l, true
		}
	}
	return search.Loop{}, false
}

// planStage returns the directives realizing the decision of a stage.
// plans holds the plans of the consumers of the stage.
func planStage(n *graph.Node, d *search.Decision, plans map[string]*plan) (*plan, error) {
	args := n.Func.Args()
	p := &plan{node: n, loopVars: slices.Clone(args)}
	if !d.Materialized() {
		p.directives = append(p.directives, ir.Directive{Kind: ir.ComputeInlineDirective})
		return p, nil
	}
	var err error
	for i, l := range d.Loops {
		if l.Outer {
			inner, ok := innerLoop(d, i, l.Dim)
			if !ok {
				err = multierr.Append(err, errors.Errorf("%s: loop %s has no inner loop", n.Name, l.Var))
				continue
			}
			err = multierr.Append(err, p.split(args[l.Dim], l.Var, inner.Var, l.Span))
			continue
		}
		if i > 0 && l.Vectorized && d.Loops[i-1].Dim == l.Dim && !d.Loops[i-1].Outer {
			// Vector lanes of the inner loop of the dimension.
			prev := d.Loops[i-1].Var
			err = multierr.Append(err, p.split(prev, prev, l.Var, l.Count))
		}
	}
	if err != nil {
		return nil, err
	}
	want := make([]string, len(d.Loops))
	for i, l := range d.Loops {
		want[len(d.Loops)-1-i] = l.Var
	}
	if !slices.Equal(want, p.loopVars) {
		p.directives = append(p.directives, ir.Directive{Kind: ir.ReorderDirective, Vars: want})
		p.loopVars = want
	}
	for _, l := range d.Loops {
		if l.Vectorized {
			p.mark(ir.VectorizeDirective, l.Var)
		}
		if l.Parallel {
			p.mark(ir.ParallelDirective, l.Var)
		}
	}
	if storage := storageVars(args, d.StorageOrder); !slices.Equal(storage, args) {
		p.directives = append(p.directives, ir.Directive{Kind: ir.ReorderStorageDirective, Vars: storage})
	}
	switch d.Location.Kind {
	case search.Root:
		p.directives = append(p.directives, ir.Directive{Kind: ir.ComputeRootDirective})
	case search.AttachedTo:
		consumer := plans[d.Location.Consumer]
		if consumer == nil {
			return nil, errors.Errorf("%s: attached to %s which is not a materialized consumer", n.Name, d.Location.Consumer)
		}
		if !slices.Contains(consumer.loopVars, d.Location.Level) {
			return nil, errors.Errorf("%s: cannot compute at %s.%s: no such loop variable in %v", n.Name, d.Location.Consumer, d.Location.Level, consumer.loopVars)
		}
		p.directives = append(p.directives, ir.Directive{Kind: ir.ComputeAtDirective, Vars: []string{d.Location.Level}, Func: d.Location.Consumer})
	}
	return p, nil
}

func storageVars(args []string, order []int) []string {
	if len(order) != len(args) {
		return args
	}
	vars := make([]string, len(order))
	for i, dim := range order {
		vars[i] = args[dim]
	}
	return vars
}

// planSchedule returns the directives of every stage, in decision order.
// All the errors of the schedule are reported.
func planSchedule(s *search.Schedule) ([]*plan, error) {
	g := s.Graph()
	byName := make(map[string]*plan)
	var plans []*plan
	var err error
	for _, n := range g.Nodes() {
		if s.Decision(n.Name) == nil {
			err = multierr.Append(err, errors.Errorf("%s: no decision", n.Name))
		}
	}
	for _, d := range s.Decisions() {
		n := g.Node(d.ID)
		p, planErr := planStage(n, d, byName)
		if planErr != nil {
			err = multierr.Append(err, planErr)
			continue
		}
		if d.Materialized() {
			byName[n.Name] = p
		}
		plans = append(plans, p)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "invalid schedule")
	}
	return plans, nil
}

func run(f *ir.Func, funcs map[string]*ir.Func, d ir.Directive) error {
	switch d.Kind {
	case ir.SplitDirective:
		return f.Split(d.Vars[0], d.Vars[1], d.Vars[2], d.Factor)
	case ir.VectorizeDirective:
		return f.Vectorize(d.Vars[0])
	case ir.ParallelDirective:
		return f.Parallel(d.Vars[0])
	case ir.ReorderDirective:
		return f.Reorder(d.Vars...)
	case ir.ReorderStorageDirective:
		return f.ReorderStorage(d.Vars...)
	case ir.ComputeRootDirective:
		f.ComputeRoot()
	case ir.ComputeInlineDirective:
		f.ComputeInline()
	case ir.ComputeAtDirective:
		return f.ComputeAt(funcs[d.Func], d.Vars[0])
	default:
		return errors.Errorf("unknown directive %s", d.Kind)
	}
	return nil
}

func alreadyScheduled(g *graph.Graph) error {
	names := make([]string, len(g.Nodes()))
	for i, n := range g.Nodes() {
		names[i] = n.Name
	}
	return &scherr.AlreadyScheduledError{Stages: names}
}

// Apply applies the directives of a schedule to the funcs of its graph.
//
// The directives are first applied to forks of the funcs.
// The funcs are only modified once every directive succeeded.
// A schedule can only be applied once to a graph.
func Apply(s *search.Schedule) error {
	plans, err := planSchedule(s)
	if err != nil {
		return err
	}
	g := s.Graph()
	if g.Applied() {
		return alreadyScheduled(g)
	}
	forks := make(map[string]*ir.Func)
	for _, n := range g.Nodes() {
		forks[n.Name] = n.Func.Fork()
	}
	for _, p := range plans {
		for _, d := range p.directives {
			if err := run(forks[p.node.Name], forks, d); err != nil {
				return fmterr.Internal(err)
			}
		}
	}
	if !g.MarkApplied() {
		return alreadyScheduled(g)
	}
	for _, n := range g.Nodes() {
		if err := n.Func.Adopt(forks[n.Name]); err != nil {
			return fmterr.Internal(err)
		}
	}
	return nil
}
