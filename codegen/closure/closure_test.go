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

package closure_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/autosched/codegen/closure"
	"github.com/gx-org/backend/dtype"
)

// body of the y loop of a blur:
//
//	allocate tmp[width]
//	  for x in [0, width): tmp[x] = in[x, y] + in[x, y+1]
//	  for x in [0, 16): out[x, y] = tmp[x] * scale
func body() ir.Stmt {
	in := ir.NewBuffer("in", dtype.Float32, 16, 17)
	out := ir.NewBuffer("out", dtype.Float32, 16, 16)
	tmp := &ir.Buffer{Name: "tmp", Type: dtype.Float32, Extents: []ir.Expr{ir.V("width")}}
	x, y := ir.V("x"), ir.V("y")
	return &ir.Allocate{
		Buffer: tmp,
		Body: &ir.Block{Stmts: []ir.Stmt{
			&ir.For{Name: "x", Min: ir.Int(0), Extent: ir.V("width"), Body: &ir.Store{
				Buffer: tmp,
				Value: ir.Add(
					&ir.Load{Buffer: in, Index: []ir.Expr{x, y}},
					&ir.Load{Buffer: in, Index: []ir.Expr{x, ir.Add(y, ir.Int(1))}},
				),
				Index: []ir.Expr{x},
			}},
			&ir.For{Name: "x", Min: ir.Int(0), Extent: ir.Int(16), Body: &ir.Store{
				Buffer: out,
				Value: ir.Mul(
					&ir.Load{Buffer: tmp, Index: []ir.Expr{x}},
					&ir.Var{Name: "scale", Type: dtype.Float32},
				),
				Index: []ir.Expr{x, y},
			}},
		}},
	}
}

func TestClosure(t *testing.T) {
	c := closure.New(body(), "y")
	if diff := cmp.Diff([]string{"in", "out", "scale", "width"}, c.Names()); diff != "" {
		t.Errorf("unexpected captured names (-want +got):\n%s", diff)
	}
	want := `width: int64
scale: float32
in: float32[2D] read 1088B
out: float32[2D] write 1024B`
	if diff := cmp.Diff(want, c.String()); diff != "" {
		t.Errorf("unexpected closure (-want +got):\n%s", diff)
	}
}

func TestClosureFreeLoopVar(t *testing.T) {
	c := closure.New(body(), "")
	if _, ok := c.Vars.Load("y"); !ok {
		t.Errorf("y is not captured when it is not the loop variable")
	}
}

func TestClosureLet(t *testing.T) {
	out := &ir.Buffer{Name: "out", Type: dtype.Int32, Extents: []ir.Expr{ir.V("n")}}
	s := &ir.LetStmt{
		Name:  "k",
		Value: ir.Mul(ir.V("i"), ir.Int(2)),
		Body: &ir.Store{
			Buffer: out,
			Value:  &ir.Let{Name: "t", Value: ir.Add(ir.V("k"), ir.V("off")), Body: ir.V("t")},
			Index:  []ir.Expr{ir.V("i")},
		},
	}
	c := closure.New(s, "i")
	if diff := cmp.Diff([]string{"off", "out"}, c.Names()); diff != "" {
		t.Errorf("unexpected captured names (-want +got):\n%s", diff)
	}
	buf, _ := c.Buffers.Load("out")
	if buf.Bytes != -1 || buf.Read || !buf.Write {
		t.Errorf("unexpected buffer %s", buf)
	}
}
