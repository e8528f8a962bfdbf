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

// Package cost estimates the cost of computing a stage with a given loop nest.
//
// The model is analytic and comparative: the cost of an arithmetic operation
// is 1 and the cost of a memory access is 1 when the data is in the last
// level cache and MachineParams.Balance otherwise.
package cost

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/gx-org/autosched/autoschedule/graph"
	"github.com/gx-org/autosched/autoschedule/region"
	"github.com/gx-org/autosched/build/ir"
)

// MemoryMode selects which memory accesses are charged MachineParams.Balance.
type MemoryMode int

const (
	// MemoryCacheBoundary charges Balance on accesses to data not resident
	// in the last level cache and 1 on the others.
	MemoryCacheBoundary MemoryMode = iota
	// MemoryUniform charges Balance on every memory access.
	MemoryUniform
)

func (m MemoryMode) String() string {
	switch m {
	case MemoryCacheBoundary:
		return "cache-boundary"
	case MemoryUniform:
		return "uniform"
	}
	return fmt.Sprintf("MemoryMode(%d)", int(m))
}

type (
	// Estimate is the cost of computing a stage.
	Estimate struct {
		Arith, Memory float64
	}

	// Nest is a loop nest computing one execution of a stage.
	Nest struct {
		// Tiles is the tile size of every dimension.
		Tiles []int64
		// VectorDim is the vectorized dimension or -1.
		VectorDim int
		// VectorWidth is the number of lanes of the vectorized loop.
		// 0 when the stage is not vectorized.
		VectorWidth int
		// ParallelDim is the dimension of the parallel loop or -1.
		ParallelDim int
		// ParallelFactor is the number of iterations of the parallel loop.
		ParallelFactor int64
	}

	// Context is where a stage is computed in the loop nest of its consumers.
	Context struct {
		// Execs is the number of times the region of the stage is computed.
		Execs int64
		// Parallel is the number of iterations of an enclosing parallel loop.
		Parallel int64
		// LiveBytes is the number of bytes of enclosing stages live
		// in the cache while the stage is computed.
		LiveBytes int64
		// Reads is the number of reads of the buffer of the stage by its
		// consumers over all executions.
		Reads float64
	}

	// Factors summarize how efficiently a loop nest computes a point.
	Factors struct {
		// Speedup is the speedup of the pure definition given by
		// the vectorization and the parallelization.
		Speedup float64
		// Unit is the cost of a memory access inside a tile.
		Unit float64
		// WorkingSet is the number of bytes accessed by a tile.
		WorkingSet int64
	}

	// Use is the evaluation of an inlined stage by one of its consumers.
	Use struct {
		// Evals is the number of times the stage is evaluated.
		Evals float64
		// Factors of the loop nest of the consumer.
		Factors
	}
)

// NoNest returns a loop nest with one tile, no vectorization and no parallelization.
func NoNest(box region.Box) Nest {
	tiles := make([]int64, len(box))
	for i, s := range box {
		tiles[i] = s.Extent
	}
	return Nest{Tiles: tiles, VectorDim: -1, ParallelDim: -1}
}

// Total returns the total cost.
func (e Estimate) Total() float64 {
	return e.Arith + e.Memory
}

// Add returns the sum of two estimates.
func (e Estimate) Add(o Estimate) Estimate {
	return Estimate{Arith: e.Arith + o.Arith, Memory: e.Memory + o.Memory}
}

func (e Estimate) String() string {
	return fmt.Sprintf("%s (arith=%s memory=%s)",
		humanize.Commaf(math.Round(e.Total())),
		humanize.Commaf(math.Round(e.Arith)),
		humanize.Commaf(math.Round(e.Memory)))
}

// Tile returns the first tile of a box.
func (n Nest) Tile(box region.Box) region.Box {
	tile := box.Clone()
	for d := range tile {
		if d < len(n.Tiles) && n.Tiles[d] < tile[d].Extent {
			tile[d].Extent = n.Tiles[d]
		}
	}
	return tile
}

// Model is the cost model of a target machine for the stages of a graph.
// It is safe for concurrent use.
type Model struct {
	g       *graph.Graph
	mp      MachineParams
	mode    MemoryMode
	regions *region.Cache
}

// NewModel returns a cost model.
func NewModel(g *graph.Graph, mp MachineParams, mode MemoryMode) *Model {
	return &Model{g: g, mp: mp, mode: mode, regions: region.NewCache(g)}
}

// Params returns the machine parameters of the model.
func (m *Model) Params() MachineParams {
	return m.mp
}

// Regions returns the region cache used by the model.
func (m *Model) Regions() *region.Cache {
	return m.regions
}

// cacheLineBytes is the size of a cache line.
const cacheLineBytes = 64

func (m *Model) unit(workingSet int64) float64 {
	if m.mode == MemoryCacheBoundary && workingSet <= m.mp.LastLevelCacheBytes {
		return 1
	}
	return float64(m.mp.Balance)
}

// Bytes returns the number of bytes of a region of a stage.
func (m *Model) Bytes(n *graph.Node, box region.Box) int64 {
	return box.Points() * int64(n.ElemBytes)
}

// footprint returns the number of bytes read from producers and inputs.
func (m *Model) footprint(r *region.Regions) int64 {
	var bytes int64
	for id, box := range r.Producers.Iter() {
		bytes += m.Bytes(m.g.Node(id), box)
	}
	for name, box := range r.Inputs.Iter() {
		in := m.g.Pipeline().Input(name)
		bytes += box.Points() * int64(ir.ElemBytes(in.Type))
	}
	return bytes
}

// rowSegments returns the number of row segments of a box when a nest splits
// its innermost dimension, 0 when rows are kept whole.
// One-dimensional boxes have no rows.
func rowSegments(box region.Box, nest Nest) int64 {
	if len(box) < 2 || len(nest.Tiles) == 0 || nest.Tiles[0] >= box[0].Extent {
		return 0
	}
	rows := box.Points() / box[0].Extent
	return rows * ((box[0].Extent + nest.Tiles[0] - 1) / nest.Tiles[0])
}

// Iterations returns the number of iterations of a step over a box.
func Iterations(st *graph.Step, box region.Box) int64 {
	if st.Index == 0 {
		return box.Points()
	}
	n := st.Domain.Size()
	for d, pure := range st.PureDims {
		if pure {
			n *= box[d].Extent
		}
	}
	return n
}

// speedup returns the vector and parallel speedup of a step.
func (m *Model) speedup(st *graph.Step, box region.Box, nest Nest, ctx Context) float64 {
	vector := 1.0
	if nest.VectorWidth > 0 && nest.VectorDim >= 0 && st.PureDims[nest.VectorDim] {
		// Partial vectors cost as much as full vectors.
		t := nest.Tile(box)[nest.VectorDim].Extent
		w := int64(nest.VectorWidth)
		vector = float64(t) / float64((t+w-1)/w)
	}
	tasks := ctx.Parallel
	if nest.ParallelDim >= 0 && st.PureDims[nest.ParallelDim] {
		tasks = max(tasks, nest.ParallelFactor)
	}
	parallel := 1.0
	if tasks >= int64(m.mp.Parallelism) {
		parallel = float64(m.mp.Parallelism)
	}
	return vector * parallel
}

// Stage returns the cost of computing a box of a stage Context.Execs times
// with a loop nest.
func (m *Model) Stage(n *graph.Node, box region.Box, nest Nest, ctx Context) (Estimate, Factors, error) {
	if box.Empty() || ctx.Execs <= 0 {
		return Estimate{}, Factors{Speedup: 1, Unit: 1}, nil
	}
	computed, err := m.regions.Infer(n, box)
	if err != nil {
		return Estimate{}, Factors{}, err
	}
	tile := nest.Tile(box)
	tileRegions, err := m.regions.Infer(n, tile)
	if err != nil {
		return Estimate{}, Factors{}, err
	}
	workingSet := m.Bytes(n, tile) + m.footprint(tileRegions) + ctx.LiveBytes
	unit := m.unit(workingSet)
	bufferUnit := unit
	if !n.IsOutput() {
		bufferUnit = m.unit(m.Bytes(n, computed.Computed) + ctx.LiveBytes)
	}
	var ops, loads, stores float64
	for _, st := range n.Steps {
		iters := float64(Iterations(st, box))
		ops += iters * float64(st.Ops) / m.speedup(st, box, nest, ctx)
		loads += iters * float64(st.InputLoads+st.SelfLoads)
		stores += iters
	}
	execs := float64(ctx.Execs)
	est := Estimate{
		Arith:  execs * ops,
		Memory: execs*loads*unit + (execs*stores+ctx.Reads)*bufferUnit,
	}
	// Every segment of a split row starts on a cache line fetched from memory.
	if segs := rowSegments(box, nest); segs > 0 {
		line := float64(max(1, cacheLineBytes/max(1, n.ElemBytes)))
		est.Memory += execs * float64(segs) * line * float64(m.mp.Balance)
	}
	return est, Factors{
		Speedup:    m.speedup(n.Steps[0], box, nest, ctx),
		Unit:       unit,
		WorkingSet: workingSet,
	}, nil
}

// Inline returns the cost of evaluating the pure definition of a stage
// at every call site of its consumers.
// Reads of other stages are charged when these stages are scheduled.
func (m *Model) Inline(n *graph.Node, uses []Use) Estimate {
	pure := n.Steps[0]
	var est Estimate
	for _, u := range uses {
		est.Arith += u.Evals * float64(pure.Ops) / u.Speedup
		est.Memory += u.Evals * float64(pure.InputLoads) * u.Unit
	}
	return est
}
