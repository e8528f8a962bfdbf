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

// Package search chooses where and how every stage of a pipeline is computed.
//
// Stages are decided one at a time, consumers before producers, and a
// decision is never revisited. A loop nest of a stage is scored with its own
// cost plus the cost of the cheapest schedule of every producer it leaves
// ready to be decided, so that a consumer and its producers are tiled
// together. The candidates of a stage are evaluated concurrently and reduced
// sequentially so that the result does not depend on the number of workers.
package search

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gx-org/autosched/api/options"
	"github.com/gx-org/autosched/autoschedule/cost"
	"github.com/gx-org/autosched/autoschedule/graph"
	"github.com/gx-org/autosched/autoschedule/region"
	"github.com/gx-org/autosched/autoschedule/scherr"
	"github.com/gx-org/autosched/base/stringseq"
	"github.com/gx-org/autosched/build/fmterr"
	"k8s.io/klog/v2"
)

// LocationKind is where a stage is computed.
type LocationKind int

const (
	// Root computes all the stage before its consumers.
	Root LocationKind = iota
	// AttachedTo computes the region of the stage required by every
	// iteration of a loop of a consumer.
	AttachedTo
	// Inline evaluates the stage at every call site.
	Inline
)

func (k LocationKind) String() string {
	switch k {
	case Root:
		return "root"
	case AttachedTo:
		return "attached"
	case Inline:
		return "inline"
	}
	return fmt.Sprintf("LocationKind(%d)", int(k))
}

// Location is the compute location of a stage.
type Location struct {
	Kind LocationKind
	// Consumer is the stage the stage is attached to.
	Consumer string
	// Level is the loop variable of the consumer the stage is attached to.
	Level string
}

func (l Location) String() string {
	if l.Kind == AttachedTo {
		return fmt.Sprintf("compute_at(%s, %s)", l.Consumer, l.Level)
	}
	return l.Kind.String()
}

// Loop is a loop of the nest computing a stage.
type Loop struct {
	Var string
	Dim int
	// Outer is true for the outer loop of a split dimension.
	Outer bool
	// Span is the number of points of the dimension computed by one iteration.
	Span int64
	// Count is the number of iterations.
	Count      int64
	Parallel   bool
	Vectorized bool
}

func (l Loop) String() string {
	var tags []string
	if l.Parallel {
		tags = append(tags, "parallel")
	}
	if l.Vectorized {
		tags = append(tags, "vectorized")
	}
	s := fmt.Sprintf("%s[%d]", l.Var, l.Count)
	if len(tags) > 0 {
		s += " " + strings.Join(tags, " ")
	}
	return s
}

// Decision is the schedule of a stage.
type Decision struct {
	Stage    string
	ID       int
	Location Location
	// Nest is the loop nest of a materialized stage: tiles, vectorization
	// and parallelization. Zero for inlined stages.
	cost.Nest
	// Loops of the nest, outermost first.
	Loops []Loop
	// Box is the region computed by one execution of the stage.
	Box region.Box
	// BufferBytes is the size of the buffer allocated by one execution.
	BufferBytes int64
	// StorageOrder lists the dimensions of the buffer, innermost first.
	StorageOrder []int
	// Context is where the stage executes.
	Context cost.Context
	// Factors of the loop nest, used to evaluate inlined producers.
	Factors cost.Factors
	Cost    cost.Estimate

	// levels are the number of loops enclosing the stage.
	levels int
	// score is the cost of the decision plus the cost of the producers
	// it leaves ready to be decided.
	score float64
	// blocked counts these producers left without a feasible schedule.
	blocked int
}

// Materialized returns true if the stage has a buffer.
func (d *Decision) Materialized() bool {
	return d.Location.Kind != Inline
}

// loopIndex returns the position of a loop variable or -1.
func (d *Decision) loopIndex(v string) int {
	for i, l := range d.Loops {
		if l.Var == v {
			return i
		}
	}
	return -1
}

// Schedule is the decision of every live stage of a graph.
type Schedule struct {
	g         *graph.Graph
	mp        cost.MachineParams
	decisions []*Decision
	byID      []*Decision
}

// Graph returns the graph the schedule has been computed for.
func (s *Schedule) Graph() *graph.Graph {
	return s.g
}

// Params returns the parameters of the machine the schedule targets.
func (s *Schedule) Params() cost.MachineParams {
	return s.mp
}

// Decisions returns the decisions in the order they have been taken.
func (s *Schedule) Decisions() []*Decision {
	return s.decisions
}

// Decision returns the decision of a stage given its name, or nil.
func (s *Schedule) Decision(name string) *Decision {
	n := s.g.Lookup(name)
	if n == nil {
		return nil
	}
	return s.byID[n.ID]
}

// TotalCost returns the sum of the cost of all the decisions.
func (s *Schedule) TotalCost() cost.Estimate {
	var total cost.Estimate
	for _, d := range s.decisions {
		total = total.Add(d.Cost)
	}
	return total
}

type searcher struct {
	g         *graph.Graph
	model     *cost.Model
	opts      options.Options
	estimates []region.Box
	decisions []*Decision
	// nested is set when scoring the producers of a consumer decision:
	// no further producers are scored and candidates are not traced.
	nested bool
}

// Run decides the schedule of every stage of a graph.
// estimates are the regions computed by every stage when all stages
// are computed at the root, as returned by region.Estimate.
func Run(g *graph.Graph, estimates []region.Box, model *cost.Model, opts options.Options) (*Schedule, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(estimates) != len(g.Nodes()) {
		return nil, fmterr.Internalf("got %d region estimates for %d stages", len(estimates), len(g.Nodes()))
	}
	s := &searcher{
		g:         g,
		model:     model,
		opts:      opts,
		estimates: estimates,
		decisions: make([]*Decision, len(g.Nodes())),
	}
	sched := &Schedule{g: g, mp: model.Params(), byID: s.decisions}
	for _, id := range g.Order() {
		d, err := s.decide(g.Node(id))
		if err != nil {
			return nil, err
		}
		s.decisions[id] = d
		sched.decisions = append(sched.decisions, d)
		klog.V(1).Infof("search: %s: %s [%s] cost %s", d.Stage, d.Location, stringseq.JoinStringer(slices.Values(d.Loops), ", "), d.Cost)
	}
	return sched, nil
}

func (s *searcher) decide(n *graph.Node) (*Decision, error) {
	cands, err := s.candidates(n)
	if err != nil {
		return nil, err
	}
	results, err := s.evaluate(n, cands)
	if err != nil {
		return nil, err
	}
	best := -1
	var reasons []string
	for i, res := range results {
		if err := s.trace(n, cands[i], res); err != nil {
			return nil, err
		}
		if res.reason != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", cands[i].loc, res.reason))
			continue
		}
		if best < 0 || s.better(cands[i], res.d, cands[best], results[best].d) {
			best = i
		}
	}
	if best < 0 {
		return nil, &scherr.NoFeasibleScheduleError{Stage: n.Name, Reason: strings.Join(reasons, "; ")}
	}
	d := results[best].d
	if !s.nested && s.opts.Trace != nil {
		if err := s.opts.Trace.Decision(n.Name, d.Location.String(), d.Cost); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (s *searcher) trace(n *graph.Node, cand candidate, res result) error {
	if s.nested {
		return nil
	}
	var est cost.Estimate
	if res.reason != "" {
		klog.V(3).Infof("search: %s: %s infeasible: %s", n.Name, cand.loc, res.reason)
	} else {
		est = res.d.Cost
		klog.V(3).Infof("search: %s: %s cost %s", n.Name, cand.loc, est)
	}
	if s.opts.Trace == nil {
		return nil
	}
	return s.opts.Trace.Candidate(n.Name, cand.loc.String(), est, res.reason)
}

// compareCost returns -1 if a is cheaper than b, 1 if b is cheaper than a
// and 0 if the costs are equal up to rounding errors.
func compareCost(a, b float64) int {
	eps := 1e-9 * max(a, b, -a, -b)
	switch {
	case a < b-eps:
		return -1
	case a > b+eps:
		return 1
	}
	return 0
}

// compareScore orders decisions by the number of producers they leave
// without a feasible schedule, then by score.
func compareScore(a, b *Decision) int {
	switch {
	case a.blocked < b.blocked:
		return -1
	case a.blocked > b.blocked:
		return 1
	}
	return compareCost(a.score, b.score)
}

// better returns true if candidate a is preferred to candidate b.
func (s *searcher) better(ca candidate, a *Decision, cb candidate, b *Decision) bool {
	if c := compareScore(a, b); c != 0 {
		return c < 0
	}
	if ca.rank == cb.rank {
		return false
	}
	if s.opts.TieBreak == options.PreferFiner {
		return ca.rank > cb.rank
	}
	return ca.rank < cb.rank
}
