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

// Package region infers the regions stages read from their producers.
//
// Index expressions are evaluated over intervals: the pure variables of a
// stage are bound to the requested box, the reduction variables to their
// domain tightened by the domain predicates and the parameters to their
// estimated range. An inferred region always contains every index read.
package region

import (
	"fmt"
	"go/token"
	"slices"

	"github.com/gx-org/autosched/autoschedule/graph"
	"github.com/gx-org/autosched/autoschedule/scherr"
	"github.com/gx-org/autosched/base/ordered"
	gxsync "github.com/gx-org/autosched/base/sync"
	"github.com/gx-org/autosched/build/fmterr"
	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/autosched/internal/base/scope"
	"github.com/gx-org/autosched/internal/interval"
)

// Regions are the regions read and computed by a stage for a requested box.
// Regions are shared between goroutines and must not be modified.
type Regions struct {
	// Producers maps the id of every producer to the region read from it,
	// in increasing id order.
	Producers *ordered.Map[int, Box]
	// Inputs maps pipeline inputs to the region read from them.
	Inputs *ordered.Map[string, Box]
	// Computed is the region computed by the stage: the requested box
	// and the elements written or read by the updates.
	Computed Box
}

// Infer returns the regions a stage reads from its producers
// to compute a requested box.
func Infer(g *graph.Graph, n *graph.Node, box Box) (*Regions, error) {
	if len(box) != n.Dims() {
		return nil, fmterr.Internalf("%s: requested box %s has %d dimensions but the stage has %d", n.Name, box, len(box), n.Dims())
	}
	r := &Regions{
		Producers: ordered.NewMap[int, Box](),
		Inputs:    ordered.NewMap[string, Box](),
		Computed:  box.Clone(),
	}
	var ids []int
	for _, e := range n.Producers {
		ids = append(ids, e.Producer)
	}
	slices.Sort(ids)
	for _, id := range ids {
		r.Producers.Store(id, nil)
	}
	if box.Empty() {
		return r, nil
	}
	params := ParamScope(g.Pipeline())
	for _, st := range n.Steps {
		if err := r.inferStep(g, n, st, params, box); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func unionInto[K comparable](m *ordered.Map[K, Box], k K, b Box) {
	m.Update(k, func(prev Box, _ bool) Box { return prev.Union(b) })
}

func (r *Regions) inferStep(g *graph.Graph, n *graph.Node, st *graph.Step, params *scope.RWScope[interval.Interval], box Box) error {
	vars := params.NewChild()
	for d, arg := range n.Func.Args() {
		if st.PureDims[d] {
			vars.Define(arg, box[d].Interval())
		}
	}
	if st.Domain != nil && !bindDomain(g.Pipeline(), vars, st.Domain) {
		// The predicates of the domain are never true.
		return nil
	}
	ev := NewEvaluator(g.Pipeline(), vars)
	if st.Index > 0 {
		written, dim, ok := footprint(ev, st.Args)
		if !ok {
			return &scherr.UnboundedRegionError{Stage: n.Name, Producer: n.Name, Dim: dim}
		}
		r.Computed = r.Computed.Union(written)
	}
	visit := func(ev *Evaluator, call *ir.Call) error {
		read, dim, ok := footprint(ev, call.Args)
		switch {
		case !ok:
			return &scherr.UnboundedRegionError{Stage: n.Name, Producer: call.Name, Dim: dim}
		case call.Kind == ir.InputCall:
			unionInto(r.Inputs, call.Name, read)
		case call.Name == n.Name:
			r.Computed = r.Computed.Union(read)
		default:
			unionInto(r.Producers, g.Lookup(call.Name).ID, read)
		}
		return nil
	}
	for _, x := range stepExprs(st) {
		if err := ev.Calls(x, visit); err != nil {
			return err
		}
	}
	return nil
}

// stepExprs returns the expressions of a step: the indices written,
// the value and the predicates of the domain.
func stepExprs(st *graph.Step) []ir.Expr {
	exprs := append(slices.Clone(st.Args), st.Value)
	if st.Domain != nil {
		exprs = append(exprs, st.Domain.Where...)
	}
	return exprs
}

// footprint returns the box of indices given by index expressions.
// It returns false and the first unbounded dimension if an index has no finite bound.
func footprint(ev *Evaluator, indices []ir.Expr) (Box, int, bool) {
	b := make(Box, len(indices))
	for d, index := range indices {
		a := ev.Eval(index)
		if !a.IsBounded() {
			return nil, d, false
		}
		b[d] = spanFromInterval(a)
	}
	return b, 0, true
}

// bindDomain binds the variables of a reduction domain to their range
// tightened by the predicates of the domain.
// It returns false if the domain is empty.
func bindDomain(pipe *ir.Pipeline, vars *scope.RWScope[interval.Interval], dom *ir.RDom) bool {
	for _, rv := range dom.Vars {
		vars.Define(rv.Name, interval.Range(rv.Min, rv.Max()))
	}
	ev := NewEvaluator(pipe, vars)
	for _, pred := range dom.Where {
		tighten(ev, vars, dom, pred)
	}
	for _, rv := range dom.Vars {
		if v, _ := vars.Find(rv.Name); v.Extent() == 0 {
			return false
		}
	}
	return true
}

var mirror = map[token.Token]token.Token{
	token.LSS: token.GTR,
	token.LEQ: token.GEQ,
	token.GTR: token.LSS,
	token.GEQ: token.LEQ,
	token.EQL: token.EQL,
}

// tighten restricts the range of a reduction variable given a predicate
// of the form `r.x <op> expr`, or a conjunction of such predicates.
// Other predicates are ignored.
func tighten(ev *Evaluator, vars *scope.RWScope[interval.Interval], dom *ir.RDom, pred ir.Expr) {
	bin, ok := pred.(*ir.Binary)
	if !ok {
		return
	}
	if bin.Op == token.LAND {
		tighten(ev, vars, dom, bin.X)
		tighten(ev, vars, dom, bin.Y)
		return
	}
	op, isCmp := bin.Op, false
	v, isVar := bin.X.(*ir.Var)
	other := bin.Y
	if !isVar {
		v, isVar = bin.Y.(*ir.Var)
		other = bin.X
		op, isCmp = mirror[op]
	} else {
		_, isCmp = mirror[op]
	}
	if !isVar || !isCmp {
		return
	}
	if _, isRVar := dom.Lookup(v.Name); !isRVar {
		return
	}
	bound := ev.Eval(other)
	var limit interval.Interval
	switch op {
	case token.LSS:
		limit = interval.Interval{Max: bound.Max - 1, HasMax: bound.HasMax}
	case token.LEQ:
		limit = interval.Interval{Max: bound.Max, HasMax: bound.HasMax}
	case token.GTR:
		limit = interval.Interval{Min: bound.Min + 1, HasMin: bound.HasMin}
	case token.GEQ:
		limit = interval.Interval{Min: bound.Min, HasMin: bound.HasMin}
	case token.EQL:
		limit = bound
	}
	cur, _ := vars.Find(v.Name)
	vars.Define(v.Name, interval.Intersect(cur, limit))
}

// Estimate returns the region computed by every stage of a graph,
// indexed by stage id, when computing the requested regions of the outputs.
func Estimate(g *graph.Graph) ([]Box, error) {
	boxes := make([]Box, len(g.Nodes()))
	for _, id := range g.Outputs() {
		boxes[id] = FromBounds(g.Node(id).Output.Estimates)
	}
	for _, id := range g.Order() {
		n := g.Node(id)
		if boxes[id] == nil {
			// Consumers computing empty regions read nothing.
			boxes[id] = make(Box, n.Dims())
		}
		regions, err := Infer(g, n, boxes[id])
		if err != nil {
			return nil, err
		}
		boxes[id] = regions.Computed
		for pid, b := range regions.Producers.Iter() {
			boxes[pid] = boxes[pid].Union(b)
		}
	}
	return boxes, nil
}

// Cache memoizes region inference. It is safe for concurrent use.
type Cache struct {
	g *graph.Graph
	m gxsync.Map[string, *Regions]
}

// NewCache returns a region cache for a graph.
func NewCache(g *graph.Graph) *Cache {
	return &Cache{g: g}
}

// Infer returns the regions read by a stage to compute a box.
func (c *Cache) Infer(n *graph.Node, box Box) (*Regions, error) {
	key := fmt.Sprintf("%d%s", n.ID, box)
	return c.m.LoadOrCompute(key, func() (*Regions, error) {
		return Infer(c.g, n, box)
	})
}

// Size returns the number of regions in the cache.
func (c *Cache) Size() int {
	return c.m.Size()
}
