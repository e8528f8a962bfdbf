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

package graph

import (
	"slices"

	"github.com/gx-org/autosched/autoschedule/scherr"
	"github.com/gx-org/autosched/base/ordered"
	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/autosched/internal/exprdeps"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

type (
	// funcInfo is what the builder knows about a func before liveness is known.
	funcInfo struct {
		fn    *ir.Func
		index int
		steps []*Step
		// producers maps the name of the other funcs read by the func
		// to the number of call sites.
		producers *ordered.Map[string, int]
	}

	builder struct {
		pipe  *ir.Pipeline
		infos map[string]*funcInfo
	}
)

// Build the dependency graph of a pipeline.
//
// Funcs of the pipeline must not carry a schedule. Funcs not read,
// directly or indirectly, by an output of the pipeline are excluded.
func Build(p *ir.Pipeline) (*Graph, error) {
	if err := checkNotScheduled(p); err != nil {
		return nil, err
	}
	b := &builder{pipe: p, infos: make(map[string]*funcInfo)}
	if err := b.scanFuncs(); err != nil {
		return nil, err
	}
	live, err := b.liveFuncs()
	if err != nil {
		return nil, err
	}
	g := b.buildGraph(live)
	g.order = topologicalOrder(g)
	if klog.V(2).Enabled() {
		for _, id := range g.order {
			klog.Infof("graph: stage %s", g.nodes[id])
		}
	}
	return g, nil
}

func checkNotScheduled(p *ir.Pipeline) error {
	var scheduled []string
	for _, f := range p.Funcs {
		if f.Scheduled() {
			scheduled = append(scheduled, f.Name())
		}
	}
	if len(scheduled) > 0 {
		return &scherr.PrescheduledInputError{Stages: scheduled}
	}
	return nil
}

func (b *builder) checkCall(f *ir.Func, call *ir.Call) error {
	var dims int
	switch call.Kind {
	case ir.InputCall:
		in := b.pipe.Input(call.Name)
		if in == nil {
			return errors.Errorf("%s: undefined input %s", f.Name(), call.Name)
		}
		dims = in.Dims
	case ir.FuncCall:
		callee := b.pipe.Func(call.Name)
		if callee == nil {
			return errors.Errorf("%s: undefined func %s", f.Name(), call.Name)
		}
		dims = callee.Dims()
	default:
		return nil
	}
	if len(call.Args) != dims {
		return errors.Errorf("%s: %s called with %d indices but has %d dimensions", f.Name(), call.Name, len(call.Args), dims)
	}
	return nil
}

func (b *builder) scanFuncs() error {
	for i, f := range b.pipe.Funcs {
		if _, dup := b.infos[f.Name()]; dup {
			return errors.Errorf("func %s defined twice", f.Name())
		}
		if f.Value() == nil {
			return errors.Errorf("func %s has no definition", f.Name())
		}
		for _, u := range f.Updates() {
			if len(u.Args) != f.Dims() {
				return errors.Errorf("%s: update has %d indices but the func has %d dimensions", f.Name(), len(u.Args), f.Dims())
			}
		}
		info := &funcInfo{fn: f, index: i, steps: steps(f), producers: ordered.NewMap[string, int]()}
		for _, st := range info.steps {
			for _, call := range st.Calls {
				if err := b.checkCall(f, call); err != nil {
					return err
				}
			}
		}
		pureCallees := exprdeps.Callees(ir.FuncCall, f.Value())
		if pureCallees.Has(f.Name()) {
			return &scherr.CyclicPipelineError{Cycle: []string{f.Name(), f.Name()}}
		}
		for _, st := range info.steps {
			for _, call := range st.Calls {
				if call.Kind != ir.FuncCall || call.Name == f.Name() {
					continue
				}
				info.producers.Update(call.Name, func(n int, _ bool) int { return n + 1 })
			}
		}
		b.infos[f.Name()] = info
	}
	return nil
}

// liveFuncs returns the funcs reachable from the outputs
// and checks that the pipeline has no cycle.
func (b *builder) liveFuncs() (map[string]bool, error) {
	if len(b.pipe.Outputs) == 0 {
		return nil, errors.Errorf("pipeline has no output")
	}
	const (
		visiting = iota + 1
		done
	)
	state := make(map[string]int)
	var path []string
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			start := slices.Index(path, name)
			cycle := append(slices.Clone(path[start:]), name)
			return &scherr.CyclicPipelineError{Cycle: cycle}
		}
		state[name] = visiting
		path = append(path, name)
		for producer := range b.infos[name].producers.Keys() {
			if err := visit(producer); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		return nil
	}
	for _, out := range b.pipe.Outputs {
		f := b.pipe.Func(out.Func)
		if f == nil {
			return nil, errors.Errorf("output %s is not a func of the pipeline", out.Func)
		}
		if len(out.Estimates) != f.Dims() {
			return nil, errors.Errorf("output %s has %d estimates but %d dimensions", out.Func, len(out.Estimates), f.Dims())
		}
		if err := visit(out.Func); err != nil {
			return nil, err
		}
	}
	live := make(map[string]bool, len(state))
	for name := range state {
		live[name] = true
	}
	return live, nil
}

func (b *builder) buildGraph(live map[string]bool) *Graph {
	g := &Graph{pipe: b.pipe, byName: make(map[string]*Node)}
	// Ids follow the definition order.
	for _, f := range b.pipe.Funcs {
		if !live[f.Name()] {
			klog.V(2).Infof("graph: dead stage %s excluded", f.Name())
			continue
		}
		info := b.infos[f.Name()]
		n := &Node{
			ID:        len(g.nodes),
			Name:      f.Name(),
			Func:      f,
			Steps:     info.steps,
			ElemBytes: ir.ElemBytes(f.Type()),
		}
		g.nodes = append(g.nodes, n)
		g.byName[n.Name] = n
	}
	for _, n := range g.nodes {
		for producer, sites := range b.infos[n.Name].producers.Iter() {
			p := g.byName[producer]
			n.Producers = append(n.Producers, Edge{Producer: p.ID, Sites: sites})
			p.Consumers = append(p.Consumers, n.ID)
		}
	}
	for i := range b.pipe.Outputs {
		out := &b.pipe.Outputs[i]
		n := g.byName[out.Func]
		if n.Output != nil {
			continue
		}
		n.Output = out
		g.outputs = append(g.outputs, n.ID)
	}
	return g
}

// topologicalOrder returns the stages such that all the consumers
// of a stage come before it. Ties are broken by definition order.
func topologicalOrder(g *Graph) []int {
	pending := make([]int, len(g.nodes))
	for _, n := range g.nodes {
		pending[n.ID] = len(n.Consumers)
	}
	var order []int
	placed := make([]bool, len(g.nodes))
	for len(order) < len(g.nodes) {
		next := -1
		for _, n := range g.nodes {
			if !placed[n.ID] && pending[n.ID] == 0 {
				next = n.ID
				break
			}
		}
		placed[next] = true
		order = append(order, next)
		for _, e := range g.nodes[next].Producers {
			pending[e.Producer]--
		}
	}
	return order
}
