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
	"slices"

	"github.com/gx-org/autosched/autoschedule/cost"
	"github.com/gx-org/autosched/autoschedule/graph"
	"github.com/gx-org/autosched/autoschedule/region"
	"github.com/gx-org/autosched/base/iter"
	"github.com/gx-org/autosched/base/uname"
	"golang.org/x/exp/constraints"
)

func ceilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

// divisors returns the divisors of n in decreasing order.
func divisors(n int64) []int64 {
	var small, large []int64
	for d := int64(1); d*d <= n; d++ {
		if n%d != 0 {
			continue
		}
		small = append(small, d)
		if d*d != n {
			large = append(large, n/d)
		}
	}
	slices.Reverse(small)
	return append(large, small...)
}

// tileCandidates returns the tile sizes considered along a dimension:
// the extent, then the divisors of the extent. Divisors that are multiples
// of the vector width along the innermost dimension, or leaving enough
// tasks along the outermost dimension, come first.
func tileCandidates(extent int64, inner, outer bool, mp cost.MachineParams, limit int) []int64 {
	tiles := []int64{extent}
	if extent <= 1 {
		return tiles
	}
	preferred := func(t int64) bool {
		if inner && t%int64(mp.VectorWidth) != 0 {
			return false
		}
		if outer && extent/t < int64(mp.Parallelism) {
			return false
		}
		return true
	}
	divs := divisors(extent)[1:]
	for _, t := range divs {
		if preferred(t) {
			tiles = append(tiles, t)
		}
	}
	for _, t := range divs {
		if !preferred(t) {
			tiles = append(tiles, t)
		}
	}
	return tiles[:min(len(tiles), limit)]
}

// nests returns every loop nest of a box built from the tile candidates.
// Only stages computed at the root have their own parallel loop.
func nests(box region.Box, mp cost.MachineParams, limit int, parallel bool) []cost.Nest {
	dims := len(box)
	perDim := make([][]int64, dims)
	for d, s := range box {
		perDim[d] = tileCandidates(s.Extent, d == 0, d == dims-1, mp, limit)
	}
	var all []cost.Nest
	for tiles := range iter.Product(perDim) {
		all = append(all, makeNest(box, tiles, mp, parallel))
	}
	return all
}

func makeNest(box region.Box, tiles []int64, mp cost.MachineParams, parallel bool) cost.Nest {
	nest := cost.Nest{Tiles: tiles, VectorDim: -1, ParallelDim: -1}
	if len(tiles) > 0 && tiles[0] >= int64(mp.VectorWidth) {
		nest.VectorDim = 0
		nest.VectorWidth = mp.VectorWidth
	}
	if !parallel {
		return nest
	}
	for d := len(tiles) - 1; d >= 0; d-- {
		if tasks := ceilDiv(box[d].Extent, tiles[d]); tasks >= 2 {
			nest.ParallelDim = d
			nest.ParallelFactor = tasks
			break
		}
	}
	return nest
}

// area returns the number of points of a tile.
func area(tiles []int64) int64 {
	a := int64(1)
	for _, t := range tiles {
		a *= t
	}
	return a
}

// largerTiles returns true if the tiles of a are preferred to the tiles of b
// when both nests cost the same: larger tiles first, then larger inner tiles.
func largerTiles(a, b cost.Nest) bool {
	if aa, ab := area(a.Tiles), area(b.Tiles); aa != ab {
		return aa > ab
	}
	for d := range a.Tiles {
		if a.Tiles[d] != b.Tiles[d] {
			return a.Tiles[d] > b.Tiles[d]
		}
	}
	return false
}

// loops returns the loops of a nest, outermost first.
// Split dimensions have an outer loop keeping the name of the dimension
// and an inner loop. The vectorized inner loop is split again by the
// vector width unless it already has the width of a vector.
func loops(n *graph.Node, box region.Box, nest cost.Nest) []Loop {
	args := n.Func.Args()
	names := uname.New(args...)
	var outer, inner []Loop
	for d := len(box) - 1; d >= 0; d-- {
		extent, tile := box[d].Extent, min(nest.Tiles[d], box[d].Extent)
		innerVar := args[d]
		if tile < extent {
			outer = append(outer, Loop{
				Var:      args[d],
				Dim:      d,
				Outer:    true,
				Span:     tile,
				Count:    ceilDiv(extent, tile),
				Parallel: d == nest.ParallelDim,
			})
			innerVar = names.Suffixed(args[d], "i")
		}
		loop := Loop{Var: innerVar, Dim: d, Span: 1, Count: tile}
		if d != nest.VectorDim || nest.VectorWidth == 0 {
			inner = append(inner, loop)
			continue
		}
		width := int64(nest.VectorWidth)
		if tile == width {
			loop.Vectorized = true
			inner = append(inner, loop)
			continue
		}
		loop.Span = width
		loop.Count = ceilDiv(tile, width)
		inner = append(inner, loop, Loop{
			Var:        names.Suffixed(innerVar, "v"),
			Dim:        d,
			Span:       1,
			Count:      width,
			Vectorized: true,
		})
	}
	return append(outer, inner...)
}

// subBox returns the region computed by one iteration of loop level of a nest.
func subBox(box region.Box, ls []Loop, level int) region.Box {
	sub := box.Clone()
	for _, l := range ls[:level+1] {
		sub[l.Dim].Extent = min(sub[l.Dim].Extent, l.Span)
	}
	return sub
}

// iterations returns the number of iterations of loop level of a nest.
func iterations(ls []Loop, level int) int64 {
	n := int64(1)
	for _, l := range ls[:level+1] {
		n *= l.Count
	}
	return n
}
