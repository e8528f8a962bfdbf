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

// Package ir is the intermediate representation of a pipeline.
//
// A pipeline is a set of funcs. A func is defined by a pure expression over
// its dimension variables and, optionally, by update steps iterating over a
// reduction domain. Expressions are a closed set of node types, dispatched
// with type switches. Operators reuse the go/token operator tokens.
//
// The package also defines the lowered statement IR used by code generation,
// and the native scheduling interface of a func.
package ir

import (
	"go/token"

	"github.com/gx-org/backend/dtype"
)

type (
	// Node is a node in the IR tree.
	Node interface {
		node()
		String() string
	}

	// Expr is an expression computing a scalar value.
	Expr interface {
		Node
		expr()
	}
)

// ----------------------------------------------------------------------------
// Expressions.

type (
	// IntImm is an integer constant.
	IntImm struct {
		Val int64
	}

	// FloatImm is a floating point constant.
	FloatImm struct {
		Val float64
	}

	// Var references a variable by name: a pure dimension variable,
	// a reduction variable (named "r.x"), a scalar parameter, a let binding
	// or a loop variable in lowered code.
	Var struct {
		Name string
		// Type of the variable. Invalid means an index (int64).
		Type dtype.DataType
	}

	// Unary is an unary operation: token.SUB or token.NOT.
	Unary struct {
		Op token.Token
		X  Expr
	}

	// Binary is a binary operation: arithmetic, comparison or logical.
	Binary struct {
		Op   token.Token
		X, Y Expr
	}

	// Select returns True if Cond is non-zero, False otherwise.
	Select struct {
		Cond, True, False Expr
	}

	// Cast converts a value to another data type.
	Cast struct {
		Type dtype.DataType
		X    Expr
	}

	// Let binds a name to a value within the scope of Body.
	Let struct {
		Name  string
		Value Expr
		Body  Expr
	}

	// Call calls another func, reads a pipeline input or calls an intrinsic.
	Call struct {
		Name string
		Kind CallKind
		Args []Expr
	}

	// Load reads an element of a buffer in lowered code.
	Load struct {
		Buffer *Buffer
		Index  []Expr
	}
)

// CallKind specifies the target of a call.
type CallKind int

const (
	// FuncCall calls a func of the pipeline.
	FuncCall CallKind = iota
	// InputCall reads a pipeline input.
	InputCall
	// Intrinsic calls a builtin math function.
	Intrinsic
)

// Intrinsic names.
const (
	Min   = "min"
	Max   = "max"
	Clamp = "clamp"
	Abs   = "abs"
	Sqrt  = "sqrt"
	Exp   = "exp"
	Log   = "log"
	Floor = "floor"
	Ceil  = "ceil"
	Sin   = "sin"
	Cos   = "cos"
	Pow   = "pow"
)

var intrinsicArity = map[string]int{
	Min: 2, Max: 2, Clamp: 3,
	Abs: 1, Sqrt: 1, Exp: 1, Log: 1,
	Floor: 1, Ceil: 1, Sin: 1, Cos: 1,
	Pow: 2,
}

// IntrinsicArity returns the number of arguments of an intrinsic
// and false if the name is not an intrinsic.
func IntrinsicArity(name string) (int, bool) {
	n, ok := intrinsicArity[name]
	return n, ok
}

func (*IntImm) node()   {}
func (*FloatImm) node() {}
func (*Var) node()      {}
func (*Unary) node()    {}
func (*Binary) node()   {}
func (*Select) node()   {}
func (*Cast) node()     {}
func (*Let) node()      {}
func (*Call) node()     {}
func (*Load) node()     {}

func (*IntImm) expr()   {}
func (*FloatImm) expr() {}
func (*Var) expr()      {}
func (*Unary) expr()    {}
func (*Binary) expr()   {}
func (*Select) expr()   {}
func (*Cast) expr()     {}
func (*Let) expr()      {}
func (*Call) expr()     {}
func (*Load) expr()     {}

// Int returns an integer constant.
func Int(v int64) *IntImm { return &IntImm{Val: v} }

// Float returns a floating point constant.
func Float(v float64) *FloatImm { return &FloatImm{Val: v} }

// V returns an index variable.
func V(name string) *Var { return &Var{Name: name} }

// Add returns x + y.
func Add(x, y Expr) *Binary { return &Binary{Op: token.ADD, X: x, Y: y} }

// Sub returns x - y.
func Sub(x, y Expr) *Binary { return &Binary{Op: token.SUB, X: x, Y: y} }

// Mul returns x * y.
func Mul(x, y Expr) *Binary { return &Binary{Op: token.MUL, X: x, Y: y} }

// Div returns x / y.
func Div(x, y Expr) *Binary { return &Binary{Op: token.QUO, X: x, Y: y} }

// CallFunc returns a call to a func of the pipeline.
func CallFunc(name string, args ...Expr) *Call {
	return &Call{Name: name, Kind: FuncCall, Args: args}
}

// CallInput returns a read of a pipeline input.
func CallInput(name string, args ...Expr) *Call {
	return &Call{Name: name, Kind: InputCall, Args: args}
}

// CallIntrinsic returns a call to a builtin function.
func CallIntrinsic(name string, args ...Expr) *Call {
	return &Call{Name: name, Kind: Intrinsic, Args: args}
}
