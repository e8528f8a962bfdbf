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

// Package graph builds the dependency graph of the stages of a pipeline.
//
// Stages are stored in an arena and referenced by their integer id.
// The graph is immutable once built.
package graph

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/gx-org/autosched/base/iter"
	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/autosched/internal/exprdeps"
)

type (
	// Edge is a dependency of a stage on one of its producers.
	Edge struct {
		Producer int
		// Sites is the number of call sites of the producer in the stage.
		Sites int
	}

	// Step is the pure definition or an update of a stage.
	Step struct {
		// Index is 0 for the pure definition and i+1 for the i-th update.
		Index int
		// Args are the indices of the elements written by the step.
		Args  []ir.Expr
		Value ir.Expr
		// Domain is the reduction domain of an update. Can be nil.
		Domain *ir.RDom
		// Calls lists the calls to funcs and inputs of the step.
		Calls []*ir.Call
		// PureDims is true for every dimension iterated by a pure variable.
		PureDims []bool

		// Ops is the number of operations per point.
		Ops int
		// InputLoads is the number of reads of pipeline inputs per point.
		InputLoads int
		// SelfLoads is the number of reads of the stage itself per point.
		SelfLoads int
		// FuncLoads is the number of reads of other stages per point.
		FuncLoads int
	}

	// Node is a stage of the pipeline.
	Node struct {
		ID   int
		Name string
		Func *ir.Func
		// Producers are the other stages read by this stage, in order of first call.
		Producers []Edge
		// Consumers are the ids of the stages reading this stage, in increasing order.
		Consumers []int
		Steps     []*Step
		// ElemBytes is the size of an element of the stage.
		ElemBytes int
		// Output is the requested region if the stage is an output of the pipeline.
		Output *ir.Output
	}

	// Graph is the dependency graph of the live stages of a pipeline.
	Graph struct {
		pipe   *ir.Pipeline
		nodes  []*Node
		byName map[string]*Node
		// outputs are the ids of the output stages in output order.
		outputs []int
		// order is the topological order of the stages, consumers first.
		order []int

		applied atomic.Bool
	}
)

// Dims returns the number of dimensions of the stage.
func (n *Node) Dims() int {
	return n.Func.Dims()
}

// IsOutput returns true if the stage is an output of the pipeline.
func (n *Node) IsOutput() bool {
	return n.Output != nil
}

// IsReduction returns true if the stage has update steps.
func (n *Node) IsReduction() bool {
	return len(n.Steps) > 1
}

// IsScatter returns true if an update writes at data-dependent or shifted indices.
func (n *Node) IsScatter() bool {
	return n.Func.IsScatter()
}

// Ops returns the number of operations per point of the pure definition.
func (n *Node) Ops() int {
	return n.Steps[0].Ops
}

// Sites returns the number of call sites of a producer in the stage.
func (n *Node) Sites(producer int) int {
	for _, e := range n.Producers {
		if e.Producer == producer {
			return e.Sites
		}
	}
	return 0
}

func (n *Node) String() string {
	var prods []string
	for _, e := range n.Producers {
		prods = append(prods, fmt.Sprintf("%d(x%d)", e.Producer, e.Sites))
	}
	return fmt.Sprintf("%d:%s producers=[%s] consumers=%v", n.ID, n.Name, strings.Join(prods, " "), n.Consumers)
}

// Pipeline returns the pipeline the graph has been built from.
func (g *Graph) Pipeline() *ir.Pipeline {
	return g.pipe
}

// Nodes returns all the live stages, indexed by their id.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Node returns a stage given its id.
func (g *Graph) Node(id int) *Node {
	return g.nodes[id]
}

// Lookup returns a stage given its name or nil if the stage is not live.
func (g *Graph) Lookup(name string) *Node {
	return g.byName[name]
}

// Outputs returns the ids of the output stages.
func (g *Graph) Outputs() []int {
	return g.outputs
}

// Order returns the ids of the stages in topological order:
// every consumer comes before its producers.
func (g *Graph) Order() []int {
	return g.order
}

// MarkApplied records that a schedule has been applied to the funcs of the graph.
// It returns false if a schedule had already been applied.
func (g *Graph) MarkApplied() bool {
	return g.applied.CompareAndSwap(false, true)
}

// Applied returns true if a schedule has been applied to the funcs of the graph.
func (g *Graph) Applied() bool {
	return g.applied.Load()
}

func (g *Graph) String() string {
	lines := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		lines[i] = n.String()
	}
	return strings.Join(lines, "\n")
}

func newStep(f *ir.Func, index int, args []ir.Expr, value ir.Expr, dom *ir.RDom) *Step {
	st := &Step{
		Index:    index,
		Args:     args,
		Value:    value,
		Domain:   dom,
		PureDims: make([]bool, f.Dims()),
	}
	var where []ir.Expr
	if dom != nil {
		where = dom.Where
	}
	exprs := slices.Collect(iter.All(args, []ir.Expr{value}, where))
	st.Calls = exprdeps.Calls(exprs...)
	st.Ops = exprdeps.OpCount(exprs...)
	for _, call := range st.Calls {
		switch {
		case call.Kind == ir.InputCall:
			st.InputLoads++
		case call.Name == f.Name():
			st.SelfLoads++
		default:
			st.FuncLoads++
		}
	}
	return st
}

func pureArgs(f *ir.Func) []ir.Expr {
	args := make([]ir.Expr, f.Dims())
	for i, name := range f.Args() {
		args[i] = ir.V(name)
	}
	return args
}

func steps(f *ir.Func) []*Step {
	pure := newStep(f, 0, pureArgs(f), f.Value(), nil)
	for i := range pure.PureDims {
		pure.PureDims[i] = true
	}
	sts := []*Step{pure}
	for i, u := range f.Updates() {
		st := newStep(f, i+1, u.Args, u.Value, u.Domain)
		for d := range u.Args {
			st.PureDims[d] = f.IsPureArg(u, d)
		}
		sts = append(sts, st)
	}
	return sts
}
