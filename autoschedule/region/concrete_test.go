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

package region_test

import (
	"fmt"
	"go/token"
	"hash/fnv"
	"math"

	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/autosched/internal/interval"
	"github.com/gx-org/backend/dtype"
)

// num is the value of an expression at a point.
type num struct {
	float bool
	i     int64
	f     float64
}

func intNum(v int64) num     { return num{i: v} }
func floatNum(v float64) num { return num{float: true, f: v} }

func boolNum(b bool) num {
	if b {
		return intNum(1)
	}
	return intNum(0)
}

func (n num) real() float64 {
	if n.float {
		return n.f
	}
	return float64(n.i)
}

func (n num) truth() bool {
	if n.float {
		return n.f != 0
	}
	return n.i != 0
}

// env binds variables to values. Inner bindings shadow outer ones.
type env struct {
	name   string
	val    num
	parent *env
}

func (e *env) bind(name string, v num) *env {
	return &env{name: name, val: v, parent: e}
}

func (e *env) find(name string) (num, bool) {
	for ; e != nil; e = e.parent {
		if e.name == name {
			return e.val, true
		}
	}
	return num{}, false
}

// machine evaluates expressions at a point, reading pseudo-random data
// from funcs and inputs and recording the indices read.
type machine struct {
	pipe *ir.Pipeline
	read func(call *ir.Call, index []int64)
}

func (m *machine) data(call *ir.Call, index []int64) num {
	h := fnv.New64a()
	fmt.Fprint(h, call.Name, index)
	v := int64(h.Sum64()%601) - 300
	var dt dtype.DataType
	if f := m.pipe.Func(call.Name); f != nil {
		dt = f.Type()
	} else if in := m.pipe.Input(call.Name); in != nil {
		dt = in.Type
	}
	switch {
	case ir.IsBool(dt):
		return boolNum(v%2 == 0)
	case ir.IsFloat(dt):
		return floatNum(float64(v) + 0.375)
	}
	return intNum(v)
}

func (m *machine) eval(e *env, x ir.Expr) num {
	switch xT := x.(type) {
	case *ir.IntImm:
		return intNum(xT.Val)
	case *ir.FloatImm:
		return floatNum(xT.Val)
	case *ir.Var:
		v, ok := e.find(xT.Name)
		if !ok {
			panic(fmt.Sprintf("unbound variable %s", xT.Name))
		}
		return v
	case *ir.Unary:
		v := m.eval(e, xT.X)
		if xT.Op == token.NOT {
			return boolNum(!v.truth())
		}
		if v.float {
			return floatNum(-v.f)
		}
		return intNum(-v.i)
	case *ir.Binary:
		return m.binary(e, xT)
	case *ir.Select:
		if m.eval(e, xT.Cond).truth() {
			return m.eval(e, xT.True)
		}
		return m.eval(e, xT.False)
	case *ir.Cast:
		v := m.eval(e, xT.X)
		switch {
		case ir.IsBool(xT.Type):
			return boolNum(v.truth())
		case ir.IsFloat(xT.Type):
			return floatNum(v.real())
		case v.float:
			return intNum(int64(math.Floor(v.f)))
		}
		return v
	case *ir.Let:
		return m.eval(e.bind(xT.Name, m.eval(e, xT.Value)), xT.Body)
	case *ir.Call:
		args := make([]num, len(xT.Args))
		for i, arg := range xT.Args {
			args[i] = m.eval(e, arg)
		}
		if xT.Kind == ir.Intrinsic {
			return intrinsic(xT.Name, args)
		}
		index := make([]int64, len(args))
		for i, arg := range args {
			index[i] = arg.i
		}
		m.read(xT, index)
		return m.data(xT, index)
	}
	panic(fmt.Sprintf("cannot evaluate %T", x))
}

func (m *machine) binary(e *env, x *ir.Binary) num {
	a, b := m.eval(e, x.X), m.eval(e, x.Y)
	switch x.Op {
	case token.LAND:
		return boolNum(a.truth() && b.truth())
	case token.LOR:
		return boolNum(a.truth() || b.truth())
	}
	if a.float || b.float {
		fa, fb := a.real(), b.real()
		switch x.Op {
		case token.ADD:
			return floatNum(fa + fb)
		case token.SUB:
			return floatNum(fa - fb)
		case token.MUL:
			return floatNum(fa * fb)
		case token.QUO:
			return floatNum(fa / fb)
		case token.REM:
			return floatNum(fa - fb*math.Floor(fa/fb))
		}
		return compare(x.Op, fa, fb)
	}
	switch x.Op {
	case token.ADD:
		return intNum(a.i + b.i)
	case token.SUB:
		return intNum(a.i - b.i)
	case token.MUL:
		return intNum(a.i * b.i)
	case token.QUO:
		return intNum(interval.FloorDiv(a.i, b.i))
	case token.REM:
		return intNum(interval.FloorMod(a.i, b.i))
	}
	return compare(x.Op, a.i, b.i)
}

func compare[T int64 | float64](op token.Token, a, b T) num {
	switch op {
	case token.LSS:
		return boolNum(a < b)
	case token.LEQ:
		return boolNum(a <= b)
	case token.GTR:
		return boolNum(a > b)
	case token.GEQ:
		return boolNum(a >= b)
	case token.EQL:
		return boolNum(a == b)
	case token.NEQ:
		return boolNum(a != b)
	}
	panic(fmt.Sprintf("unknown operator %s", op))
}

func intrinsic(name string, args []num) num {
	ints := true
	for _, arg := range args {
		ints = ints && !arg.float
	}
	if ints {
		switch name {
		case ir.Min:
			return intNum(min(args[0].i, args[1].i))
		case ir.Max:
			return intNum(max(args[0].i, args[1].i))
		case ir.Clamp:
			return intNum(min(max(args[0].i, args[1].i), args[2].i))
		case ir.Abs:
			return intNum(max(args[0].i, -args[0].i))
		case ir.Floor, ir.Ceil:
			return args[0]
		}
	}
	f := make([]float64, len(args))
	for i, arg := range args {
		f[i] = arg.real()
	}
	switch name {
	case ir.Min:
		return floatNum(min(f[0], f[1]))
	case ir.Max:
		return floatNum(max(f[0], f[1]))
	case ir.Clamp:
		return floatNum(min(max(f[0], f[1]), f[2]))
	case ir.Abs:
		return floatNum(math.Abs(f[0]))
	case ir.Floor:
		return floatNum(math.Floor(f[0]))
	case ir.Ceil:
		return floatNum(math.Ceil(f[0]))
	case ir.Sin:
		return floatNum(math.Sin(f[0]))
	case ir.Cos:
		return floatNum(math.Cos(f[0]))
	case ir.Sqrt:
		return floatNum(math.Sqrt(f[0]))
	case ir.Exp:
		return floatNum(math.Exp(f[0]))
	case ir.Log:
		return floatNum(math.Log(f[0]))
	case ir.Pow:
		return floatNum(math.Pow(f[0], f[1]))
	}
	panic(fmt.Sprintf("unknown intrinsic %s", name))
}
