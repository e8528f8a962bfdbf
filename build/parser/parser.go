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

// Package parser parses pipeline definitions written in text.
//
// A definition has one statement per line. Comments start with #.
//
//	input in float32 2
//	param k int32 0:16
//	func blur_x(x, y) float32 = (in(x-1, y) + in(x, y) + in(x+1, y)) / 3
//	rdom r(0:100) where r.x < 50
//	update hist(int64(in(r.x))) = hist(int64(in(r.x))) + 1 over r
//	output blur_x(0:1000, 0:1000)
//
// Ranges are written min:max and exclude max. Expressions use the Go
// expression syntax. The dimension variables of a func are listed
// innermost first.
package parser

import (
	"go/token"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gx-org/autosched/build/fmterr"
	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/backend/dtype"
	"github.com/pkg/errors"
)

type parser struct {
	fset *token.FileSet
	file *token.File
	errs *fmterr.Errors

	pipe   *ir.Pipeline
	funcs  map[string]*ir.Func
	rdoms  map[string]*ir.RDom
	params map[string]*ir.Param
}

// ParseFile reads and parses a pipeline definition file.
func ParseFile(fset *token.FileSet, path string) (*ir.Pipeline, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read pipeline definition")
	}
	return Parse(fset, path, src)
}

// Parse parses a pipeline definition.
// All the errors found in the definition are returned together.
func Parse(fset *token.FileSet, filename string, src []byte) (*ir.Pipeline, error) {
	p := &parser{
		fset:   fset,
		file:   fset.AddFile(filename, -1, len(src)),
		errs:   fmterr.NewErrors(fset),
		pipe:   &ir.Pipeline{},
		funcs:  make(map[string]*ir.Func),
		rdoms:  make(map[string]*ir.RDom),
		params: make(map[string]*ir.Param),
	}
	p.file.SetLinesForContent(src)
	lines := splitLines(string(src))
	// Funcs can be called before their definition:
	// declare all the funcs first, then parse the statements.
	var stmts []stmt
	for _, line := range lines {
		st, ok := p.splitStmt(line)
		if !ok {
			continue
		}
		if st.keyword.text == "func" {
			st.fn = p.declareFunc(st)
		}
		stmts = append(stmts, st)
	}
	for _, st := range stmts {
		p.parseStmt(st)
	}
	if len(p.pipe.Outputs) == 0 && p.errs.Empty() {
		p.errs.Appendf(p.file.Pos(0), "pipeline has no output")
	}
	if err := p.errs.ToError(); err != nil {
		return nil, err
	}
	return p.pipe, nil
}

// stmt is a statement: a keyword followed by the rest of the line.
type stmt struct {
	keyword, rest segment
	// fn is the func declared by a func statement.
	fn *ir.Func
}

func (p *parser) splitStmt(line segment) (stmt, bool) {
	if i := strings.IndexByte(line.text, '#'); i >= 0 {
		line = line.slice(0, i)
	}
	line = line.trim()
	if line.text == "" {
		return stmt{}, false
	}
	keyword, rest, _ := line.cut(" ")
	return stmt{keyword: keyword, rest: rest.trim()}, true
}

func (p *parser) parseStmt(st stmt) {
	switch st.keyword.text {
	case "input":
		p.parseInput(st.rest)
	case "param":
		p.parseParam(st.rest)
	case "func":
		p.parseFunc(st.fn, st.rest)
	case "rdom":
		p.parseRDom(st.rest)
	case "update":
		p.parseUpdate(st.rest)
	case "output":
		p.parseOutput(st.rest)
	default:
		p.errs.Appendf(p.pos(st.keyword), "unknown statement %q", st.keyword.text)
	}
}

func (p *parser) pos(s segment) token.Pos {
	return p.file.Pos(s.off)
}

// isDefined returns true if a name is already used by a pipeline object.
func (p *parser) isDefined(name string) bool {
	if _, ok := p.params[name]; ok {
		return true
	}
	if _, ok := p.rdoms[name]; ok {
		return true
	}
	return p.pipe.Input(name) != nil
}

func (p *parser) checkName(name segment) bool {
	if !token.IsIdentifier(name.text) {
		return p.errs.Appendf(p.pos(name), "invalid name %q", name.text)
	}
	if _, isFunc := p.funcs[name.text]; isFunc || p.isDefined(name.text) {
		return p.errs.Appendf(p.pos(name), "%s redeclared", name.text)
	}
	if _, isType := typeNames[name.text]; isType {
		return p.errs.Appendf(p.pos(name), "cannot use type %s as a name", name.text)
	}
	if _, isIntrinsic := ir.IntrinsicArity(name.text); isIntrinsic || name.text == selectName {
		return p.errs.Appendf(p.pos(name), "cannot use builtin %s as a name", name.text)
	}
	return true
}

func (p *parser) parseType(s segment) (dtype.DataType, bool) {
	dt := ir.TypeFromString(s.text)
	if dt == dtype.Invalid {
		return dt, p.errs.Appendf(p.pos(s), "unknown data type %q", s.text)
	}
	return dt, true
}

func (p *parser) parseInt(s segment) (int64, bool) {
	v, err := strconv.ParseInt(s.text, 10, 64)
	if err != nil {
		return 0, p.errs.Appendf(p.pos(s), "invalid integer %q", s.text)
	}
	return v, true
}

// parseRange parses min:max into a bound.
func (p *parser) parseRange(s segment) (ir.Bound, bool) {
	lo, hi, found := s.cut(":")
	if !found {
		return ir.Bound{}, p.errs.Appendf(p.pos(s), "invalid range %q: want min:max", s.text)
	}
	minV, okMin := p.parseInt(lo.trim())
	maxV, okMax := p.parseInt(hi.trim())
	if !okMin || !okMax {
		return ir.Bound{}, false
	}
	if maxV < minV {
		return ir.Bound{}, p.errs.Appendf(p.pos(s), "invalid range %q: max is less than min", s.text)
	}
	return ir.Bound{Min: minV, Extent: maxV - minV}, true
}

// parseInput parses: name dtype dims
func (p *parser) parseInput(s segment) {
	fields := s.fields()
	if len(fields) != 3 {
		p.errs.Appendf(p.pos(s), "invalid input: want input <name> <dtype> <number of dimensions>")
		return
	}
	if !p.checkName(fields[0]) {
		return
	}
	dt, okT := p.parseType(fields[1])
	dims, okD := p.parseInt(fields[2])
	if !okT || !okD {
		return
	}
	if dims < 0 {
		p.errs.Appendf(p.pos(fields[2]), "invalid number of dimensions %d", dims)
		return
	}
	p.pipe.Inputs = append(p.pipe.Inputs, &ir.Input{Name: fields[0].text, Type: dt, Dims: int(dims)})
}

// parseParam parses: name dtype [min:max]
func (p *parser) parseParam(s segment) {
	fields := s.fields()
	if len(fields) != 2 && len(fields) != 3 {
		p.errs.Appendf(p.pos(s), "invalid param: want param <name> <dtype> [min:max]")
		return
	}
	if !p.checkName(fields[0]) {
		return
	}
	dt, ok := p.parseType(fields[1])
	if !ok {
		return
	}
	prm := &ir.Param{Name: fields[0].text, Type: dt}
	if len(fields) == 3 {
		b, ok := p.parseRange(fields[2])
		if !ok {
			return
		}
		prm.Estimate = &b
	}
	p.params[prm.Name] = prm
	p.pipe.Params = append(p.pipe.Params, prm)
}

// funcHeader parses: name(args...)
func (p *parser) funcHeader(s segment) (name segment, args []segment, ok bool) {
	name, rest, found := s.cut("(")
	if !found || !strings.HasSuffix(rest.text, ")") {
		return name, nil, p.errs.Appendf(p.pos(s), "invalid definition %q: want name(args...)", s.text)
	}
	name = name.trim()
	rest = rest.slice(0, len(rest.text)-1)
	if strings.TrimSpace(rest.text) == "" {
		return name, nil, true
	}
	return name, rest.split(","), true
}

// declareFunc declares a func before its definition is parsed.
// It returns nil if the declaration is invalid.
func (p *parser) declareFunc(st stmt) *ir.Func {
	header, _, found := st.rest.cutAssign()
	if !found {
		p.errs.Appendf(p.pos(st.rest), "func without definition")
		return nil
	}
	header = header.trim()
	i := strings.LastIndexByte(header.text, ')')
	if i < 0 {
		p.errs.Appendf(p.pos(header), "invalid func header %q", header.text)
		return nil
	}
	name, args, ok := p.funcHeader(header.slice(0, i+1))
	if !ok || !p.checkName(name) {
		return nil
	}
	dt, ok := p.parseType(header.slice(i+1, len(header.text)).trim())
	if !ok {
		return nil
	}
	var argNames []string
	for _, arg := range args {
		arg = arg.trim()
		if !token.IsIdentifier(arg.text) {
			p.errs.Appendf(p.pos(arg), "invalid dimension variable %q", arg.text)
			return nil
		}
		if slices.Contains(argNames, arg.text) {
			p.errs.Appendf(p.pos(arg), "duplicate dimension variable %s", arg.text)
			return nil
		}
		argNames = append(argNames, arg.text)
	}
	f := ir.NewFunc(name.text, dt, argNames...)
	p.funcs[name.text] = f
	p.pipe.Funcs = append(p.pipe.Funcs, f)
	return f
}

// parseFunc parses: name(args...) dtype = expr
func (p *parser) parseFunc(f *ir.Func, s segment) {
	if f == nil {
		// The declaration failed and has already been reported.
		return
	}
	_, body, _ := s.cutAssign()
	sc := p.newNameScope(f, nil)
	value, ok := p.parseExpr(body.trim(), sc)
	if !ok {
		return
	}
	f.Define(value)
}

// parseRDom parses: name(ranges...) [where pred]
func (p *parser) parseRDom(s segment) {
	decl, where, hasWhere := s.cut(" where ")
	name, args, ok := p.funcHeader(decl.trim())
	if !ok || !p.checkName(name) {
		return
	}
	var bounds []ir.Bound
	for _, arg := range args {
		b, ok := p.parseRange(arg.trim())
		if !ok {
			return
		}
		bounds = append(bounds, b)
	}
	if len(bounds) == 0 {
		p.errs.Appendf(p.pos(decl), "reduction domain %s has no dimension", name.text)
		return
	}
	dom := ir.NewRDom(name.text, bounds...)
	p.rdoms[name.text] = dom
	if !hasWhere {
		return
	}
	pred, ok := p.parseExpr(where.trim(), p.newNameScope(nil, dom))
	if !ok {
		return
	}
	dom.Where = append(dom.Where, splitConjunction(pred)...)
}

func splitConjunction(x ir.Expr) []ir.Expr {
	bin, ok := x.(*ir.Binary)
	if !ok || bin.Op != token.LAND {
		return []ir.Expr{x}
	}
	return append(splitConjunction(bin.X), splitConjunction(bin.Y)...)
}

// parseUpdate parses: name(exprs...) = expr [over rdom]
func (p *parser) parseUpdate(s segment) {
	lhs, rhs, found := s.cutAssign()
	if !found {
		p.errs.Appendf(p.pos(s), "update without definition")
		return
	}
	if i := strings.LastIndex(rhs.text, " over "); i >= 0 {
		over := rhs.slice(i+len(" over "), len(rhs.text)).trim()
		rhs = rhs.slice(0, i)
		dom, ok := p.rdoms[over.text]
		if !ok {
			p.errs.Appendf(p.pos(over), "undefined reduction domain %s", over.text)
			return
		}
		p.parseUpdateWithDomain(lhs.trim(), rhs.trim(), dom)
		return
	}
	p.parseUpdateWithDomain(lhs.trim(), rhs.trim(), nil)
}

func (p *parser) parseUpdateWithDomain(lhs, rhs segment, dom *ir.RDom) {
	name, args, ok := p.funcHeader(lhs)
	if !ok {
		return
	}
	f := p.funcs[name.text]
	if f == nil {
		p.errs.Appendf(p.pos(name), "update of undefined func %s", name.text)
		return
	}
	if len(args) != f.Dims() {
		p.errs.Appendf(p.pos(lhs), "update of %s has %d indices but want %d", name.text, len(args), f.Dims())
		return
	}
	p.errs.Push(fmterr.PrefixWith("update of %s", f.Name()))
	defer p.errs.Pop()
	sc := p.newNameScope(f, dom)
	var indices []ir.Expr
	for _, arg := range args {
		index, ok := p.parseExpr(arg.trim(), sc)
		if !ok {
			return
		}
		indices = append(indices, index)
	}
	value, ok := p.parseExpr(rhs, sc)
	if !ok {
		return
	}
	f.AddUpdate(indices, value, dom)
}

// parseOutput parses: name(ranges...)
func (p *parser) parseOutput(s segment) {
	name, args, ok := p.funcHeader(s)
	if !ok {
		return
	}
	f := p.funcs[name.text]
	if f == nil {
		p.errs.Appendf(p.pos(name), "output of undefined func %s", name.text)
		return
	}
	var bounds []ir.Bound
	for _, arg := range args {
		b, ok := p.parseRange(arg.trim())
		if !ok {
			return
		}
		bounds = append(bounds, b)
	}
	if len(bounds) != f.Dims() {
		p.errs.Appendf(p.pos(s), "output %s has %d ranges but want %d", name.text, len(bounds), f.Dims())
		return
	}
	p.pipe.Outputs = append(p.pipe.Outputs, ir.Output{Func: name.text, Estimates: bounds})
}
