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

package ir

// Children returns the direct subexpressions of an expression.
func Children(x Expr) []Expr {
	switch xT := x.(type) {
	case *Unary:
		return []Expr{xT.X}
	case *Binary:
		return []Expr{xT.X, xT.Y}
	case *Select:
		return []Expr{xT.Cond, xT.True, xT.False}
	case *Cast:
		return []Expr{xT.X}
	case *Let:
		return []Expr{xT.Value, xT.Body}
	case *Call:
		return xT.Args
	case *Load:
		return xT.Index
	}
	return nil
}

// Walk calls f on x and its subexpressions, parents first.
// The children of a node are skipped if f returns false.
func Walk(x Expr, f func(Expr) bool) {
	if x == nil || !f(x) {
		return
	}
	for _, child := range Children(x) {
		Walk(child, f)
	}
}

// Visitor is called on every node of a statement tree.
// Returning false skips the children of the node.
type Visitor struct {
	Stmt func(Stmt) bool
	Expr func(Expr) bool
}

func (v Visitor) expr(x Expr) {
	if v.Expr == nil {
		return
	}
	Walk(x, v.Expr)
}

func (v Visitor) exprs(xs []Expr) {
	for _, x := range xs {
		v.expr(x)
	}
}

// WalkStmt visits a statement, its substatements and expressions.
func (v Visitor) WalkStmt(s Stmt) {
	if s == nil {
		return
	}
	if v.Stmt != nil && !v.Stmt(s) {
		return
	}
	switch sT := s.(type) {
	case *For:
		v.expr(sT.Min)
		v.expr(sT.Extent)
		v.WalkStmt(sT.Body)
	case *LetStmt:
		v.expr(sT.Value)
		v.WalkStmt(sT.Body)
	case *Store:
		v.expr(sT.Value)
		v.exprs(sT.Index)
	case *Allocate:
		v.exprs(sT.Buffer.Extents)
		v.WalkStmt(sT.Body)
	case *Block:
		for _, stmt := range sT.Stmts {
			v.WalkStmt(stmt)
		}
	case *IfThenElse:
		v.expr(sT.Cond)
		v.WalkStmt(sT.Then)
		v.WalkStmt(sT.Else)
	case *Evaluate:
		v.expr(sT.Value)
	}
}
