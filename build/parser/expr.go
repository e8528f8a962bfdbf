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

package parser

import (
	"go/ast"
	goparser "go/parser"
	"go/scanner"
	"go/token"
	"strconv"

	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/autosched/internal/base/scope"
)

const selectName = "select"

var typeNames = map[string]struct{}{
	"bool":     {},
	"bfloat16": {},
	"float32":  {},
	"float64":  {},
	"int32":    {},
	"int64":    {},
	"uint32":   {},
	"uint64":   {},
}

var binaryOps = map[token.Token]bool{
	token.ADD: true, token.SUB: true, token.MUL: true, token.QUO: true, token.REM: true,
	token.EQL: true, token.NEQ: true, token.LSS: true, token.LEQ: true, token.GTR: true, token.GEQ: true,
	token.LAND: true, token.LOR: true,
}

// newNameScope returns the variables visible in the definition of a func:
// the parameters, the dimension variables of the func and the variables
// of a reduction domain.
func (p *parser) newNameScope(f *ir.Func, dom *ir.RDom) *scope.RWScope[*ir.Var] {
	params := scope.NewScope[*ir.Var](nil)
	for _, prm := range p.pipe.Params {
		params.Define(prm.Name, &ir.Var{Name: prm.Name, Type: prm.Type})
	}
	local := params.NewChild()
	if f != nil {
		for _, arg := range f.Args() {
			local.Define(arg, ir.V(arg))
		}
	}
	if dom != nil {
		for _, rv := range dom.Vars {
			local.Define(rv.Name, ir.V(rv.Name))
		}
	}
	return local
}

type exprParser struct {
	p     *parser
	base  segment
	fset  *token.FileSet
	names scope.Scope[*ir.Var]
}

func (p *parser) parseExpr(s segment, names scope.Scope[*ir.Var]) (ir.Expr, bool) {
	if s.text == "" {
		return nil, p.errs.Appendf(p.pos(s), "missing expression")
	}
	fset := token.NewFileSet()
	astExpr, err := goparser.ParseExprFrom(fset, "", s.text, goparser.SkipObjectResolution)
	if err != nil {
		return nil, p.scannerError(s, err)
	}
	ep := &exprParser{p: p, base: s, fset: fset, names: names}
	return ep.expr(astExpr)
}

func (p *parser) scannerError(s segment, errScanner error) bool {
	errList, ok := errScanner.(scanner.ErrorList)
	if !ok {
		return p.errs.Appendf(p.pos(s), "%T:%s", errScanner, errScanner.Error())
	}
	for _, err := range errList {
		p.errs.Appendf(p.file.Pos(s.off+err.Pos.Offset), "%s", err.Msg)
	}
	return false
}

func (ep *exprParser) pos(node ast.Node) token.Pos {
	return ep.p.file.Pos(ep.base.off + ep.fset.Position(node.Pos()).Offset)
}

func (ep *exprParser) errorf(node ast.Node, format string, a ...any) (ir.Expr, bool) {
	return nil, ep.p.errs.Appendf(ep.pos(node), format, a...)
}

func (ep *exprParser) expr(expr ast.Expr) (ir.Expr, bool) {
	switch exprT := expr.(type) {
	case *ast.BasicLit:
		return ep.literal(exprT)
	case *ast.Ident:
		return ep.ident(exprT)
	case *ast.SelectorExpr:
		return ep.selector(exprT)
	case *ast.ParenExpr:
		return ep.expr(exprT.X)
	case *ast.UnaryExpr:
		return ep.unary(exprT)
	case *ast.BinaryExpr:
		return ep.binary(exprT)
	case *ast.CallExpr:
		return ep.call(exprT)
	default:
		return ep.errorf(expr, "unsupported expression %T", expr)
	}
}

func (ep *exprParser) literal(lit *ast.BasicLit) (ir.Expr, bool) {
	switch lit.Kind {
	case token.INT:
		v, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return ep.errorf(lit, "invalid integer %s: %v", lit.Value, err)
		}
		return ir.Int(v), true
	case token.FLOAT:
		v, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return ep.errorf(lit, "invalid float %s: %v", lit.Value, err)
		}
		return ir.Float(v), true
	}
	return ep.errorf(lit, "unsupported literal %s", lit.Value)
}

func (ep *exprParser) ident(ident *ast.Ident) (ir.Expr, bool) {
	switch ident.Name {
	case "true":
		return ir.Int(1), true
	case "false":
		return ir.Int(0), true
	}
	if v, ok := ep.names.Find(ident.Name); ok {
		return &ir.Var{Name: v.Name, Type: v.Type}, true
	}
	if ep.p.funcs[ident.Name] != nil || ep.p.pipe.Input(ident.Name) != nil {
		return ep.errorf(ident, "%s is not called", ident.Name)
	}
	return ep.errorf(ident, "undefined: %s", ident.Name)
}

func (ep *exprParser) selector(sel *ast.SelectorExpr) (ir.Expr, bool) {
	x, ok := sel.X.(*ast.Ident)
	if !ok {
		return ep.errorf(sel, "unsupported selector expression")
	}
	name := x.Name + "." + sel.Sel.Name
	if v, ok := ep.names.Find(name); ok {
		return ir.V(v.Name), true
	}
	return ep.errorf(sel, "undefined: %s", name)
}

func (ep *exprParser) unary(expr *ast.UnaryExpr) (ir.Expr, bool) {
	x, ok := ep.expr(expr.X)
	if !ok {
		return nil, false
	}
	switch expr.Op {
	case token.ADD:
		return x, true
	case token.SUB, token.NOT:
		return &ir.Unary{Op: expr.Op, X: x}, true
	}
	return ep.errorf(expr, "unsupported unary operator %s", expr.Op)
}

func (ep *exprParser) binary(expr *ast.BinaryExpr) (ir.Expr, bool) {
	x, xOk := ep.expr(expr.X)
	y, yOk := ep.expr(expr.Y)
	if !xOk || !yOk {
		return nil, false
	}
	if !binaryOps[expr.Op] {
		return ep.errorf(expr, "unsupported binary operator %s", expr.Op)
	}
	return &ir.Binary{Op: expr.Op, X: x, Y: y}, true
}

func (ep *exprParser) args(call *ast.CallExpr, name string, want int) ([]ir.Expr, bool) {
	if call.Ellipsis.IsValid() {
		_, ok := ep.errorf(call, "unsupported ellipsis in call to %s", name)
		return nil, ok
	}
	if len(call.Args) != want {
		_, ok := ep.errorf(call, "%s called with %d arguments but want %d", name, len(call.Args), want)
		return nil, ok
	}
	args := make([]ir.Expr, len(call.Args))
	ok := true
	for i, arg := range call.Args {
		var argOk bool
		args[i], argOk = ep.expr(arg)
		ok = ok && argOk
	}
	return args, ok
}

func (ep *exprParser) call(call *ast.CallExpr) (ir.Expr, bool) {
	ident, ok := call.Fun.(*ast.Ident)
	if !ok {
		return ep.errorf(call, "unsupported call to %T", call.Fun)
	}
	name := ident.Name
	if _, isType := typeNames[name]; isType {
		args, ok := ep.args(call, name, 1)
		if !ok {
			return nil, false
		}
		return &ir.Cast{Type: ir.TypeFromString(name), X: args[0]}, true
	}
	if name == selectName {
		args, ok := ep.args(call, name, 3)
		if !ok {
			return nil, false
		}
		return &ir.Select{Cond: args[0], True: args[1], False: args[2]}, true
	}
	if arity, isIntrinsic := ir.IntrinsicArity(name); isIntrinsic {
		args, ok := ep.args(call, name, arity)
		if !ok {
			return nil, false
		}
		return ir.CallIntrinsic(name, args...), true
	}
	if in := ep.p.pipe.Input(name); in != nil {
		args, ok := ep.args(call, name, in.Dims)
		if !ok {
			return nil, false
		}
		return ir.CallInput(name, args...), true
	}
	if f := ep.p.funcs[name]; f != nil {
		args, ok := ep.args(call, name, f.Dims())
		if !ok {
			return nil, false
		}
		return ir.CallFunc(name, args...), true
	}
	return ep.errorf(ident, "undefined: %s", name)
}
