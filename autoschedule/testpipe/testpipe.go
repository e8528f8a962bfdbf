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

// Package testpipe provides pipelines shared by the scheduler tests.
package testpipe

import (
	"go/token"

	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/backend/dtype"
)

func bound(extent int64) ir.Bound {
	return ir.Bound{Min: 0, Extent: extent}
}

func lt(x, y ir.Expr) ir.Expr {
	return &ir.Binary{Op: token.LSS, X: x, Y: y}
}

// Blur returns a separable 3x3 box blur over a w x h image.
func Blur(w, h int64) *ir.Pipeline {
	x, y := ir.V("x"), ir.V("y")
	sum3 := func(f func(dx, dy int64) ir.Expr, horizontal bool) ir.Expr {
		var terms []ir.Expr
		for d := int64(-1); d <= 1; d++ {
			if horizontal {
				terms = append(terms, f(d, 0))
			} else {
				terms = append(terms, f(0, d))
			}
		}
		return ir.Div(ir.Add(ir.Add(terms[0], terms[1]), terms[2]), ir.Float(3))
	}
	shift := func(v *ir.Var, d int64) ir.Expr {
		if d == 0 {
			return v
		}
		return ir.Add(v, ir.Int(d))
	}
	blurX := ir.NewFunc("blur_x", dtype.Float32, "x", "y").Define(sum3(func(dx, dy int64) ir.Expr {
		return ir.CallInput("in", shift(x, dx), shift(y, dy))
	}, true))
	blurY := ir.NewFunc("blur_y", dtype.Float32, "x", "y").Define(sum3(func(dx, dy int64) ir.Expr {
		return ir.CallFunc("blur_x", shift(x, dx), shift(y, dy))
	}, false))
	return &ir.Pipeline{
		Funcs:   []*ir.Func{blurX, blurY},
		Inputs:  []*ir.Input{{Name: "in", Type: dtype.Float32, Dims: 2}},
		Outputs: []ir.Output{{Func: "blur_y", Estimates: []ir.Bound{bound(w), bound(h)}}},
	}
}

// Elementwise returns a single stage of n points reading an input.
func Elementwise(n int64) *ir.Pipeline {
	x := ir.V("x")
	f := ir.NewFunc("scale", dtype.Float32, "x").Define(
		ir.Add(ir.Mul(ir.CallInput("in", x), ir.Float(2)), ir.Float(1)),
	)
	return &ir.Pipeline{
		Funcs:   []*ir.Func{f},
		Inputs:  []*ir.Input{{Name: "in", Type: dtype.Float32, Dims: 1}},
		Outputs: []ir.Output{{Func: "scale", Estimates: []ir.Bound{bound(n)}}},
	}
}

// Gather returns a pipeline reading a lookup table at indices read from an input.
// If clamped is false, the indices are not bounded.
func Gather(clamped bool) *ir.Pipeline {
	x := ir.V("x")
	lut := ir.NewFunc("lut", dtype.Float32, "x").Define(
		ir.CallIntrinsic(ir.Sqrt, &ir.Cast{Type: dtype.Float32, X: x}),
	)
	var index ir.Expr = &ir.Cast{Type: dtype.Int64, X: ir.CallInput("idx", x)}
	if clamped {
		index = ir.CallIntrinsic(ir.Clamp, index, ir.Int(0), ir.Int(255))
	}
	gather := ir.NewFunc("gather", dtype.Float32, "x").Define(ir.CallFunc("lut", index))
	return &ir.Pipeline{
		Funcs: []*ir.Func{lut, gather},
		Inputs: []*ir.Input{
			{Name: "idx", Type: dtype.Int32, Dims: 1},
		},
		Outputs: []ir.Output{{Func: "gather", Estimates: []ir.Bound{bound(1024)}}},
	}
}

// Histogram returns a pipeline computing the histogram of a w x h image
// and scaling it. The histogram is a scatter over a predicated domain.
func Histogram(w, h int64) *ir.Pipeline {
	i := ir.V("i")
	hist := ir.NewFunc("hist", dtype.Int32, "i").Define(ir.Int(0))
	r := ir.NewRDom("r", bound(w), bound(h))
	r.Where = append(r.Where, lt(r.Var(1), ir.Int(h-1)))
	bin := ir.CallIntrinsic(ir.Clamp, &ir.Cast{Type: dtype.Int64, X: ir.CallInput("img", r.Var(0), r.Var(1))}, ir.Int(0), ir.Int(255))
	hist.AddUpdate([]ir.Expr{bin}, ir.Add(ir.CallFunc("hist", bin), ir.Int(1)), r)
	norm := ir.NewFunc("norm", dtype.Float32, "i").Define(
		ir.Div(&ir.Cast{Type: dtype.Float32, X: ir.CallFunc("hist", i)}, ir.Float(float64(w*h))),
	)
	return &ir.Pipeline{
		Funcs:   []*ir.Func{hist, norm},
		Inputs:  []*ir.Input{{Name: "img", Type: dtype.Uint32, Dims: 2}},
		Outputs: []ir.Output{{Func: "norm", Estimates: []ir.Bound{bound(256)}}},
	}
}

// RowSum returns a pipeline summing the rows of a w x h input
// with a pure reduction (no scatter), followed by a consumer.
func RowSum(w, h int64) *ir.Pipeline {
	y := ir.V("y")
	sum := ir.NewFunc("row_sum", dtype.Float32, "y").Define(ir.Float(0))
	r := ir.NewRDom("r", bound(w))
	sum.AddUpdate([]ir.Expr{y}, ir.Add(ir.CallFunc("row_sum", y), ir.CallInput("in", r.Var(0), y)), r)
	mean := ir.NewFunc("mean", dtype.Float32, "y").Define(ir.Div(ir.CallFunc("row_sum", y), ir.Float(float64(w))))
	return &ir.Pipeline{
		Funcs:   []*ir.Func{sum, mean},
		Inputs:  []*ir.Input{{Name: "in", Type: dtype.Float32, Dims: 2}},
		Outputs: []ir.Output{{Func: "mean", Estimates: []ir.Bound{bound(h)}}},
	}
}

// Diamond returns a pipeline where two stages read a common producer
// and are both read by the output. A stage nobody reads is dead.
func Diamond(n int64) *ir.Pipeline {
	x := ir.V("x")
	src := ir.NewFunc("src", dtype.Float32, "x").Define(ir.Mul(ir.CallInput("in", x), ir.CallInput("in", x)))
	left := ir.NewFunc("left", dtype.Float32, "x").Define(ir.Add(ir.CallFunc("src", ir.Sub(x, ir.Int(1))), ir.Float(1)))
	right := ir.NewFunc("right", dtype.Float32, "x").Define(ir.Mul(ir.CallFunc("src", ir.Add(x, ir.Int(1))), ir.Float(2)))
	dead := ir.NewFunc("dead", dtype.Float32, "x").Define(ir.CallFunc("src", x))
	out := ir.NewFunc("out", dtype.Float32, "x").Define(ir.Add(ir.CallFunc("left", x), ir.CallFunc("right", x)))
	return &ir.Pipeline{
		Funcs:   []*ir.Func{src, left, right, dead, out},
		Inputs:  []*ir.Input{{Name: "in", Type: dtype.Float32, Dims: 1}},
		Outputs: []ir.Output{{Func: "out", Estimates: []ir.Bound{bound(n)}}},
	}
}

// Cycle returns a pipeline where two stages read each other.
func Cycle() *ir.Pipeline {
	x := ir.V("x")
	a := ir.NewFunc("a", dtype.Float32, "x").Define(ir.CallFunc("b", x))
	b := ir.NewFunc("b", dtype.Float32, "x").Define(ir.Add(ir.CallFunc("a", x), ir.Float(1)))
	c := ir.NewFunc("c", dtype.Float32, "x").Define(ir.CallFunc("a", x))
	return &ir.Pipeline{
		Funcs:   []*ir.Func{a, b, c},
		Outputs: []ir.Output{{Func: "c", Estimates: []ir.Bound{bound(16)}}},
	}
}

// Comb returns a 1D pipeline of n points where a consumer reads a
// three tap producer at three points spaced by 4.
func Comb(n int64) *ir.Pipeline {
	x := ir.V("x")
	at := func(f func(string, ...ir.Expr) *ir.Call, name string, d int64) ir.Expr {
		if d == 0 {
			return f(name, x)
		}
		return f(name, ir.Add(x, ir.Int(d)))
	}
	taps := ir.NewFunc("taps", dtype.Float32, "x").Define(
		ir.Add(ir.Add(at(ir.CallInput, "in", 0), at(ir.CallInput, "in", 1)), at(ir.CallInput, "in", 2)),
	)
	comb := ir.NewFunc("comb", dtype.Float32, "x").Define(
		ir.Add(ir.Add(at(ir.CallFunc, "taps", 0), at(ir.CallFunc, "taps", 4)), at(ir.CallFunc, "taps", 8)),
	)
	return &ir.Pipeline{
		Funcs:   []*ir.Func{taps, comb},
		Inputs:  []*ir.Input{{Name: "in", Type: dtype.Float32, Dims: 1}},
		Outputs: []ir.Output{{Func: "comb", Estimates: []ir.Bound{bound(n)}}},
	}
}
