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

// Package closure extracts the symbols a lowered statement captures
// from its enclosing code, for example to outline the body of a parallel
// loop into a task.
package closure

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gx-org/autosched/base/ordered"
	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/autosched/internal/base/scope"
	"github.com/gx-org/backend/dtype"
)

// Buffer is a buffer captured by a statement.
type Buffer struct {
	Type dtype.DataType
	Dims int
	// Read and Write are true if the statement loads from or stores to the buffer.
	Read, Write bool
	// Bytes is the size of the buffer or -1 if an extent is not a constant.
	Bytes int64
}

func (b *Buffer) String() string {
	var access []string
	if b.Read {
		access = append(access, "read")
	}
	if b.Write {
		access = append(access, "write")
	}
	size := "?"
	if b.Bytes >= 0 {
		size = fmt.Sprint(b.Bytes)
	}
	return fmt.Sprintf("%s[%dD] %s %sB", ir.TypeString(b.Type), b.Dims, strings.Join(access, "+"), size)
}

// Closure lists the scalar variables and the buffers a statement
// uses without defining them.
type Closure struct {
	Vars    *ordered.Map[string, dtype.DataType]
	Buffers *ordered.Map[string, *Buffer]
}

// New returns the closure of a statement.
// loopVar is the variable of the loop the statement is the body of.
// It is defined by the task and is not captured.
func New(s ir.Stmt, loopVar string) *Closure {
	c := &Closure{
		Vars:    ordered.NewMap[string, dtype.DataType](),
		Buffers: ordered.NewMap[string, *Buffer](),
	}
	bound := scope.NewScope[bool](nil)
	if loopVar != "" {
		bound.Define(loopVar, true)
	}
	c.stmt(s, bound)
	return c
}

func (c *Closure) stmt(s ir.Stmt, bound *scope.RWScope[bool]) {
	switch sT := s.(type) {
	case *ir.For:
		c.expr(sT.Min, bound)
		c.expr(sT.Extent, bound)
		body := bound.NewChild()
		body.Define(sT.Name, true)
		c.stmt(sT.Body, body)
	case *ir.LetStmt:
		c.expr(sT.Value, bound)
		body := bound.NewChild()
		body.Define(sT.Name, true)
		c.stmt(sT.Body, body)
	case *ir.Store:
		c.buffer(sT.Buffer, bound).Write = true
		c.expr(sT.Value, bound)
		c.exprs(sT.Index, bound)
	case *ir.Allocate:
		c.exprs(sT.Buffer.Extents, bound)
		body := bound.NewChild()
		body.Define(sT.Buffer.Name, true)
		c.stmt(sT.Body, body)
	case *ir.Block:
		for _, stmt := range sT.Stmts {
			c.stmt(stmt, bound)
		}
	case *ir.IfThenElse:
		c.expr(sT.Cond, bound)
		c.stmt(sT.Then, bound)
		if sT.Else != nil {
			c.stmt(sT.Else, bound)
		}
	case *ir.Evaluate:
		c.expr(sT.Value, bound)
	}
}

func (c *Closure) exprs(xs []ir.Expr, bound *scope.RWScope[bool]) {
	for _, x := range xs {
		c.expr(x, bound)
	}
}

func (c *Closure) expr(x ir.Expr, bound *scope.RWScope[bool]) {
	switch xT := x.(type) {
	case nil:
		return
	case *ir.Var:
		if _, ok := bound.Find(xT.Name); !ok {
			typ := xT.Type
			if typ == dtype.Invalid {
				typ = ir.DefaultIndexType
			}
			c.Vars.Store(xT.Name, typ)
		}
	case *ir.Let:
		c.expr(xT.Value, bound)
		body := bound.NewChild()
		body.Define(xT.Name, true)
		c.expr(xT.Body, body)
	case *ir.Load:
		if isCaptured(xT.Buffer, bound) {
			c.buffer(xT.Buffer, bound).Read = true
		}
		c.exprs(xT.Index, bound)
	default:
		c.exprs(ir.Children(x), bound)
	}
}

func isCaptured(buf *ir.Buffer, bound *scope.RWScope[bool]) bool {
	_, ok := bound.Find(buf.Name)
	return !ok
}

// buffer returns the captured buffer of a statement.
// Buffers allocated inside the statement are returned but not recorded.
func (c *Closure) buffer(buf *ir.Buffer, bound *scope.RWScope[bool]) *Buffer {
	if !isCaptured(buf, bound) {
		return &Buffer{}
	}
	if b, ok := c.Buffers.Load(buf.Name); ok {
		return b
	}
	b := &Buffer{Type: buf.Type, Dims: len(buf.Extents), Bytes: -1}
	if sh, ok := buf.Shape(); ok {
		b.Bytes = int64(sh.Size() * ir.ElemBytes(buf.Type))
	}
	c.Buffers.Store(buf.Name, b)
	return b
}

// Names returns the names of the captured variables and buffers, sorted.
func (c *Closure) Names() []string {
	var names []string
	for name := range c.Vars.Keys() {
		names = append(names, name)
	}
	for name := range c.Buffers.Keys() {
		names = append(names, name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func (c *Closure) String() string {
	var lines []string
	for name, typ := range c.Vars.Iter() {
		lines = append(lines, fmt.Sprintf("%s: %s", name, ir.TypeString(typ)))
	}
	for name, buf := range c.Buffers.Iter() {
		lines = append(lines, fmt.Sprintf("%s: %s", name, buf))
	}
	return strings.Join(lines, "\n")
}
