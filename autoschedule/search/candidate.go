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

package search

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gx-org/autosched/autoschedule/cost"
	"github.com/gx-org/autosched/autoschedule/graph"
	"github.com/gx-org/autosched/autoschedule/region"
	"github.com/gx-org/autosched/autoschedule/scherr"
	"github.com/gx-org/autosched/base/ordered"
	"github.com/gx-org/autosched/build/fmterr"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type (
	candidate struct {
		loc Location
		// consumer and level locate an attached candidate in the loop nest
		// of its consumer.
		consumer *Decision
		level    int
		// rank orders locations from the coarsest to the finest.
		rank int
	}

	result struct {
		d *Decision
		// reason is set when the candidate is infeasible.
		reason string
	}
)

const inlineRank = math.MaxInt32

// evals returns the number of evaluations of a stage by every materialized
// stage reading it, directly or through inlined stages, indexed by id.
func (s *searcher) evals(n *graph.Node) (*ordered.Map[int, float64], error) {
	out := ordered.NewMap[int, float64]()
	add := func(id int, v float64) {
		out.Update(id, func(prev float64, _ bool) float64 { return prev + v })
	}
	for _, cid := range n.Consumers {
		d := s.decisions[cid]
		if d == nil {
			return nil, fmterr.Internalf("%s: consumer %s has not been decided", n.Name, s.g.Node(cid).Name)
		}
		if d.Location.Kind == Inline {
			sites := float64(s.g.Node(cid).Sites(n.ID))
			via, err := s.evals(s.g.Node(cid))
			if err != nil {
				return nil, err
			}
			for id, v := range via.Iter() {
				add(id, v*sites)
			}
			continue
		}
		add(cid, s.reads(d, n.Name))
	}
	return out, nil
}

// reads returns the number of reads of a stage by all the executions
// of a materialized consumer.
func (s *searcher) reads(d *Decision, name string) float64 {
	var n float64
	for _, st := range s.g.Node(d.ID).Steps {
		var sites int64
		for _, call := range st.Calls {
			if call.Name == name {
				sites++
			}
		}
		n += float64(cost.Iterations(st, d.Box) * sites)
	}
	return n * float64(d.Context.Execs)
}

// within returns true if a stage is computed inside a loop level of a consumer:
// the stage is the consumer, is attached to the consumer at the level or deeper,
// or is inlined into stages computed inside the level.
func (s *searcher) within(id int, consumer *Decision, level int) bool {
	if id == consumer.ID {
		return true
	}
	d := s.decisions[id]
	if d == nil {
		return false
	}
	switch d.Location.Kind {
	case AttachedTo:
		return d.Location.Consumer == consumer.Stage && consumer.loopIndex(d.Location.Level) >= level
	case Inline:
		consumers := s.g.Node(id).Consumers
		for _, cid := range consumers {
			if !s.within(cid, consumer, level) {
				return false
			}
		}
		return len(consumers) > 0
	}
	return false
}

// reaches returns true if stage from reads stage id, directly or not.
func (s *searcher) reaches(from, id int) bool {
	for _, e := range s.g.Node(from).Producers {
		if e.Producer == id || s.reaches(e.Producer, id) {
			return true
		}
	}
	return false
}

// request returns the region of stage id required to compute a box of
// stage from, following the stages computed inside a loop level of a consumer.
func (s *searcher) request(id int, from *graph.Node, box region.Box, consumer *Decision, level int) (region.Box, error) {
	r, err := s.model.Regions().Infer(from, box)
	if err != nil {
		return nil, err
	}
	var out region.Box
	for pid, pbox := range r.Producers.Iter() {
		if pid == id {
			out = out.Union(pbox)
			continue
		}
		if pbox.Empty() || !s.within(pid, consumer, level) || !s.reaches(pid, id) {
			continue
		}
		sub, err := s.request(id, s.g.Node(pid), pbox, consumer, level)
		if err != nil {
			return nil, err
		}
		out = out.Union(sub)
	}
	return out, nil
}

// candidates returns the compute locations considered for a stage.
func (s *searcher) candidates(n *graph.Node) ([]candidate, error) {
	cands := []candidate{{loc: Location{Kind: Root}}}
	if n.IsOutput() {
		return cands, nil
	}
	if !n.IsReduction() {
		cands = append(cands, candidate{loc: Location{Kind: Inline}, rank: inlineRank})
	}
	if n.IsScatter() {
		return cands, nil
	}
	evals, err := s.evals(n)
	if err != nil {
		return nil, err
	}
	for cid := range evals.Keys() {
		c := s.decisions[cid]
		for level, l := range c.Loops {
			if l.Vectorized {
				continue
			}
			valid := true
			for _, id := range n.Consumers {
				if !s.within(id, c, level) {
					valid = false
					break
				}
			}
			if !valid {
				continue
			}
			cands = append(cands, candidate{
				loc:      Location{Kind: AttachedTo, Consumer: c.Stage, Level: l.Var},
				consumer: c,
				level:    level,
				rank:     1 + c.levels + level,
			})
		}
	}
	return cands, nil
}

// evaluate evaluates candidates concurrently.
// Results are stored at the index of their candidate.
func (s *searcher) evaluate(n *graph.Node, cands []candidate) ([]result, error) {
	results := make([]result, len(cands))
	errs := make([]error, len(cands))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for range min(s.opts.Workers, len(cands)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = s.evaluateCandidate(n, cands[i])
			}
		}()
	}
	for i := range cands {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results, multierr.Combine(errs...)
}

func (s *searcher) evaluateCandidate(n *graph.Node, cand candidate) (result, error) {
	switch cand.loc.Kind {
	case Inline:
		return s.evaluateInline(n, cand)
	case Root:
		evals, err := s.evals(n)
		if err != nil {
			return result{}, err
		}
		ctx := cost.Context{Execs: 1, Reads: sum(evals)}
		return s.evaluateMaterialized(n, cand, s.estimates[n.ID], ctx, true, 0)
	}
	c := cand.consumer
	sub := subBox(c.Box, c.Loops, cand.level)
	box, err := s.request(n.ID, s.g.Node(c.ID), sub, c, cand.level)
	if err != nil {
		return result{}, err
	}
	if box == nil {
		box = make(region.Box, n.Dims())
	}
	evals, err := s.evals(n)
	if err != nil {
		return result{}, err
	}
	ctx := cost.Context{
		Execs:     c.Context.Execs * iterations(c.Loops, cand.level),
		Parallel:  c.Context.Parallel,
		LiveBytes: s.model.Bytes(s.g.Node(c.ID), sub) + c.Context.LiveBytes,
		Reads:     sum(evals),
	}
	// The parallel loop of a stage is its outermost loop.
	if c.ParallelDim >= 0 {
		ctx.Parallel = max(ctx.Parallel, c.ParallelFactor)
	}
	return s.evaluateMaterialized(n, cand, box, ctx, false, c.levels+cand.level+1)
}

func sum(m *ordered.Map[int, float64]) float64 {
	var total float64
	for v := range m.Values() {
		total += v
	}
	return total
}

func (s *searcher) evaluateInline(n *graph.Node, cand candidate) (result, error) {
	evals, err := s.evals(n)
	if err != nil {
		return result{}, err
	}
	var uses []cost.Use
	for id, v := range evals.Iter() {
		uses = append(uses, cost.Use{Evals: v, Factors: s.decisions[id].Factors})
	}
	d := &Decision{
		Stage:    n.Name,
		ID:       n.ID,
		Location: cand.loc,
		Nest:     cost.Nest{VectorDim: -1, ParallelDim: -1},
		Cost:     s.model.Inline(n, uses),
	}
	if err := s.score(d); err != nil {
		return result{}, err
	}
	return result{d: d}, nil
}

// ready returns the producers of a stage not decided yet whose consumers
// have all been decided.
func (s *searcher) ready(n *graph.Node) []int {
	var ids []int
	for _, e := range n.Producers {
		if s.decisions[e.Producer] != nil {
			continue
		}
		undecided := slices.ContainsFunc(s.g.Node(e.Producer).Consumers, func(cid int) bool {
			return s.decisions[cid] == nil
		})
		if !undecided {
			ids = append(ids, e.Producer)
		}
	}
	return ids
}

// score sets the score of a decision: its cost plus the cost of the cheapest
// schedule of every producer the decision leaves ready to be decided.
func (s *searcher) score(d *Decision) error {
	d.score = d.Cost.Total()
	if s.nested {
		return nil
	}
	next := &searcher{
		g:         s.g,
		model:     s.model,
		opts:      s.opts,
		estimates: s.estimates,
		decisions: slices.Clone(s.decisions),
		nested:    true,
	}
	next.opts.Workers = 1
	next.decisions[d.ID] = d
	for _, id := range next.ready(s.g.Node(d.ID)) {
		pd, err := next.decide(s.g.Node(id))
		var infeasible *scherr.NoFeasibleScheduleError
		if errors.As(err, &infeasible) {
			d.blocked++
			continue
		}
		if err != nil {
			return err
		}
		d.score += pd.score
	}
	return nil
}

// evaluateMaterialized selects the loop nest of a box of a stage with the
// lowest score.
func (s *searcher) evaluateMaterialized(n *graph.Node, cand candidate, box region.Box, ctx cost.Context, parallel bool, levels int) (result, error) {
	regions, err := s.model.Regions().Infer(n, box)
	if err != nil {
		return result{}, err
	}
	bytes := s.model.Bytes(n, regions.Computed)
	if limit := s.opts.MaxBufferBytes; limit > 0 && !n.IsOutput() && bytes > limit {
		return result{reason: fmt.Sprintf("buffer of %s exceeds %s",
			humanize.IBytes(uint64(bytes)), humanize.IBytes(uint64(limit)))}, nil
	}
	var best *Decision
	for _, nest := range s.nestsOf(box, parallel) {
		est, factors, err := s.model.Stage(n, box, nest, ctx)
		if err != nil {
			return result{}, err
		}
		d := &Decision{
			Stage:        n.Name,
			ID:           n.ID,
			Location:     cand.loc,
			Nest:         nest,
			Loops:        loops(n, box, nest),
			Box:          box,
			BufferBytes:  bytes,
			StorageOrder: storageOrder(n),
			Context:      ctx,
			Factors:      factors,
			Cost:         est,
			levels:       levels,
		}
		if err := s.score(d); err != nil {
			return result{}, err
		}
		if best != nil {
			c := compareScore(d, best)
			if c > 0 || (c == 0 && !largerTiles(nest, best.Nest)) {
				continue
			}
		}
		best = d
	}
	return result{d: best}, nil
}

func (s *searcher) nestsOf(box region.Box, parallel bool) []cost.Nest {
	if box.Empty() {
		return []cost.Nest{cost.NoNest(box)}
	}
	return nests(box, s.model.Params(), s.opts.MaxFactorCandidates, parallel)
}

func storageOrder(n *graph.Node) []int {
	order := make([]int, n.Dims())
	for i := range order {
		order[i] = i
	}
	return order
}
