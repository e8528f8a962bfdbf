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

package region

import (
	"go/token"
	"math"

	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/autosched/internal/base/scope"
	"github.com/gx-org/autosched/internal/interval"
	"github.com/gx-org/backend/dtype"
)

// Evaluator evaluates expressions over intervals.
//
// Integer operations use floor division and modulo. An operation with a
// floating point operand is evaluated over real ranges and a conversion to
// an integer type rounds down.
type Evaluator struct {
	pipe *ir.Pipeline
	vars scope.Scope[interval.Interval]
	// lets binds the names of enclosing lets.
	lets scope.Scope[value]
}

// value is the range of an integer or floating point expression.
type value struct {
	float bool
	i     interval.Interval
	r     interval.Real
}

func intValue(i interval.Interval) value {
	return value{i: i}
}

func realValue(r interval.Real) value {
	return value{float: true, r: r}
}

func (v value) real() interval.Real {
	if v.float {
		return v.r
	}
	return interval.ToReal(v.i)
}

func (v value) ints() interval.Interval {
	if v.float {
		return v.r.Hull()
	}
	return v.i
}

// NewEvaluator returns an evaluator binding variables to intervals.
// Variables not in the scope are unbounded.
func NewEvaluator(pipe *ir.Pipeline, vars scope.Scope[interval.Interval]) *Evaluator {
	return &Evaluator{pipe: pipe, vars: vars}
}

// ParamScope returns a scope binding the parameters of a pipeline
// to their estimated range.
func ParamScope(pipe *ir.Pipeline) *scope.RWScope[interval.Interval] {
	params := scope.NewScope[interval.Interval](nil)
	for _, prm := range pipe.Params {
		if prm.Estimate == nil {
			continue
		}
		params.Define(prm.Name, interval.Range(prm.Estimate.Min, prm.Estimate.Max()))
	}
	return params
}

// callType returns the type of the value of a func or an input.
func (ev *Evaluator) callType(call *ir.Call) dtype.DataType {
	switch call.Kind {
	case ir.FuncCall:
		if f := ev.pipe.Func(call.Name); f != nil {
			return f.Type()
		}
	case ir.InputCall:
		if in := ev.pipe.Input(call.Name); in != nil {
			return in.Type
		}
	}
	return dtype.Invalid
}

// Eval returns an interval containing all the values an expression can take.
// Floating point values are rounded outward.
func (ev *Evaluator) Eval(x ir.Expr) interval.Interval {
	return ev.eval(x).ints()
}

// Calls calls f on every call to a func or an input in an expression, parents
// first, with an evaluator binding the lets enclosing the call.
func (ev *Evaluator) Calls(x ir.Expr, f func(*Evaluator, *ir.Call) error) error {
	switch xT := x.(type) {
	case *ir.Let:
		if err := ev.Calls(xT.Value, f); err != nil {
			return err
		}
		return ev.bind(xT).Calls(xT.Body, f)
	case *ir.Call:
		if xT.Kind != ir.Intrinsic {
			if err := f(ev, xT); err != nil {
				return err
			}
		}
	}
	for _, child := range ir.Children(x) {
		if err := ev.Calls(child, f); err != nil {
			return err
		}
	}
	return nil
}

// bind returns an evaluator of the body of a let.
func (ev *Evaluator) bind(let *ir.Let) *Evaluator {
	local := scope.NewScope(ev.lets)
	local.Define(let.Name, ev.eval(let.Value))
	return &Evaluator{pipe: ev.pipe, vars: ev.vars, lets: local}
}

func (ev *Evaluator) find(v *ir.Var) (value, bool) {
	if ev.lets != nil {
		if val, ok := ev.lets.Find(v.Name); ok {
			return val, true
		}
	}
	i, ok := ev.vars.Find(v.Name)
	if !ok {
		return value{}, false
	}
	if ir.IsFloat(v.Type) {
		return realValue(interval.ToReal(i)), true
	}
	return intValue(i), true
}

func (ev *Evaluator) eval(x ir.Expr) value {
	switch xT := x.(type) {
	case *ir.IntImm:
		return intValue(interval.Point(xT.Val))
	case *ir.FloatImm:
		return realValue(interval.RealPoint(xT.Val))
	case *ir.Var:
		if v, ok := ev.find(xT); ok {
			return v
		}
		return unknown(xT.Type)
	case *ir.Unary:
		if xT.Op != token.SUB {
			return intValue(interval.Bool())
		}
		v := ev.eval(xT.X)
		if v.float {
			return realValue(v.r.Neg())
		}
		return intValue(interval.Neg(v.i))
	case *ir.Binary:
		return ev.binary(xT)
	case *ir.Select:
		a, b := ev.eval(xT.True), ev.eval(xT.False)
		if a.float || b.float {
			return realValue(a.real().Union(b.real()))
		}
		return intValue(interval.Union(a.i, b.i))
	case *ir.Cast:
		v := ev.eval(xT.X)
		switch {
		case ir.IsBool(xT.Type):
			return intValue(interval.Bool())
		case ir.IsFloat(xT.Type):
			return realValue(v.real())
		case v.float:
			return intValue(v.r.Floor())
		}
		return v
	case *ir.Let:
		return ev.bind(xT).eval(xT.Body)
	case *ir.Call:
		if xT.Kind == ir.Intrinsic {
			return ev.intrinsic(xT)
		}
		// The value of a func or an input is data-dependent.
		return unknown(ev.callType(xT))
	}
	return intValue(interval.Unbounded())
}

// unknown returns the range of a data-dependent value of a given type.
func unknown(dt dtype.DataType) value {
	switch {
	case ir.IsBool(dt):
		return intValue(interval.Bool())
	case ir.IsFloat(dt):
		return realValue(interval.RealUnbounded())
	}
	return intValue(interval.Unbounded())
}

func (ev *Evaluator) binary(x *ir.Binary) value {
	a, b := ev.eval(x.X), ev.eval(x.Y)
	if a.float || b.float {
		ra, rb := a.real(), b.real()
		switch x.Op {
		case token.ADD:
			return realValue(ra.Add(rb))
		case token.SUB:
			return realValue(ra.Sub(rb))
		case token.MUL:
			return realValue(ra.Mul(rb))
		case token.QUO:
			return realValue(ra.Div(rb))
		case token.REM:
			return realValue(ra.Mod(rb))
		}
		return intValue(interval.Bool())
	}
	switch x.Op {
	case token.ADD:
		return intValue(interval.Add(a.i, b.i))
	case token.SUB:
		return intValue(interval.Sub(a.i, b.i))
	case token.MUL:
		return intValue(interval.Mul(a.i, b.i))
	case token.QUO:
		return intValue(interval.Div(a.i, b.i))
	case token.REM:
		return intValue(interval.Mod(a.i, b.i))
	}
	// Comparisons and logical operators.
	return intValue(interval.Bool())
}

func (ev *Evaluator) intrinsic(call *ir.Call) value {
	args := make([]value, len(call.Args))
	float := false
	for i, arg := range call.Args {
		args[i] = ev.eval(arg)
		float = float || args[i].float
	}
	switch call.Name {
	case ir.Min, ir.Max, ir.Clamp, ir.Abs:
		if !float {
			return intValue(intIntrinsic(call.Name, args))
		}
	case ir.Floor, ir.Ceil:
		if !float {
			return args[0]
		}
	}
	rs := make([]interval.Real, len(args))
	for i, arg := range args {
		rs[i] = arg.real()
	}
	switch call.Name {
	case ir.Min:
		return realValue(rs[0].Min(rs[1]))
	case ir.Max:
		return realValue(rs[0].Max(rs[1]))
	case ir.Clamp:
		return realValue(rs[0].Max(rs[1]).Min(rs[2]))
	case ir.Abs:
		return realValue(rs[0].Abs())
	case ir.Floor:
		return realValue(rs[0].Monotonic(math.Floor))
	case ir.Ceil:
		return realValue(rs[0].Monotonic(math.Ceil))
	case ir.Sin, ir.Cos:
		return realValue(interval.RealRange(-1, 1))
	case ir.Sqrt:
		if rs[0].Lo < 0 {
			return realValue(interval.RealUnbounded())
		}
		return realValue(rs[0].Monotonic(math.Sqrt))
	case ir.Exp:
		return realValue(rs[0].Monotonic(math.Exp))
	case ir.Log:
		if rs[0].Lo <= 0 {
			return realValue(interval.RealUnbounded())
		}
		return realValue(rs[0].Monotonic(math.Log))
	}
	return realValue(interval.RealUnbounded())
}

func intIntrinsic(name string, args []value) interval.Interval {
	switch name {
	case ir.Min:
		return interval.Min(args[0].i, args[1].i)
	case ir.Max:
		return interval.Max(args[0].i, args[1].i)
	case ir.Clamp:
		return interval.Clamp(args[0].i, args[1].i, args[2].i)
	}
	return interval.Abs(args[0].i)
}
