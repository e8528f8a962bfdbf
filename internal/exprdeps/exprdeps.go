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

// Package exprdeps extracts call sites and operation counts from expressions.
package exprdeps

import (
	"github.com/gx-org/autosched/base/ordered"
	"github.com/gx-org/autosched/build/ir"
)

func calls(sites []*ir.Call, expr ir.Expr) []*ir.Call {
	ir.Walk(expr, func(x ir.Expr) bool {
		call, ok := x.(*ir.Call)
		if ok && call.Kind != ir.Intrinsic {
			sites = append(sites, call)
		}
		return true
	})
	return sites
}

// Calls returns all the calls to funcs and inputs in expressions,
// parents first and left to right. Calls inside the index expressions
// of another call are included.
func Calls(exprs ...ir.Expr) []*ir.Call {
	var sites []*ir.Call
	for _, expr := range exprs {
		sites = calls(sites, expr)
	}
	return sites
}

// Callees returns the number of call sites per callee of a given kind,
// in order of first call.
func Callees(kind ir.CallKind, exprs ...ir.Expr) *ordered.Map[string, int] {
	counts := ordered.NewMap[string, int]()
	for _, call := range Calls(exprs...) {
		if call.Kind != kind {
			continue
		}
		counts.Update(call.Name, func(n int, _ bool) int { return n + 1 })
	}
	return counts
}

// OpCount returns the number of operations of an expression:
// one unit per arithmetic, comparison, select, cast or intrinsic node.
// Reading a value costs no operation.
func OpCount(exprs ...ir.Expr) int {
	n := 0
	for _, expr := range exprs {
		ir.Walk(expr, func(x ir.Expr) bool {
			switch xT := x.(type) {
			case *ir.Unary, *ir.Binary, *ir.Select, *ir.Cast:
				n++
			case *ir.Call:
				if xT.Kind == ir.Intrinsic {
					n++
				}
			}
			return true
		})
	}
	return n
}
