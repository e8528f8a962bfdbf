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

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
)

// ----------------------------------------------------------------------------
// Lowered statements.

// Stmt is a statement of lowered code.
type Stmt interface {
	Node
	stmt()
}

// ForKind is the way the iterations of a loop are executed.
type ForKind int

const (
	// Serial loops execute their iterations in order.
	Serial ForKind = iota
	// Parallel loops execute their iterations concurrently.
	Parallel
	// Vectorized loops execute their iterations as vector lanes.
	Vectorized
)

func (k ForKind) String() string {
	switch k {
	case Parallel:
		return "parallel"
	case Vectorized:
		return "vectorized"
	default:
		return "for"
	}
}

type (
	// Buffer is a memory region storing the values of a func or of an input.
	Buffer struct {
		Name string
		Type dtype.DataType
		// Extents of the buffer, innermost dimension first.
		// An extent is nil when it is not known statically.
		Extents []Expr
	}

	// For is a loop over [Min, Min+Extent).
	For struct {
		Name        string
		Min, Extent Expr
		Kind        ForKind
		Body        Stmt
	}

	// LetStmt binds a name to a value within the scope of Body.
	LetStmt struct {
		Name  string
		Value Expr
		Body  Stmt
	}

	// Store writes a value in a buffer.
	Store struct {
		Buffer *Buffer
		Value  Expr
		Index  []Expr
	}

	// Allocate allocates a buffer visible within Body.
	Allocate struct {
		Buffer *Buffer
		Body   Stmt
	}

	// Block executes a sequence of statements.
	Block struct {
		Stmts []Stmt
	}

	// IfThenElse executes Then if Cond is true, Else otherwise. Else can be nil.
	IfThenElse struct {
		Cond       Expr
		Then, Else Stmt
	}

	// Evaluate evaluates an expression for its side effects.
	Evaluate struct {
		Value Expr
	}
)

func (*For) node()        {}
func (*LetStmt) node()    {}
func (*Store) node()      {}
func (*Allocate) node()   {}
func (*Block) node()      {}
func (*IfThenElse) node() {}
func (*Evaluate) node()   {}

func (*For) stmt()        {}
func (*LetStmt) stmt()    {}
func (*Store) stmt()      {}
func (*Allocate) stmt()   {}
func (*Block) stmt()      {}
func (*IfThenElse) stmt() {}
func (*Evaluate) stmt()   {}

// NewBuffer returns a buffer with constant extents.
func NewBuffer(name string, typ dtype.DataType, extents ...int64) *Buffer {
	buf := &Buffer{Name: name, Type: typ}
	for _, ext := range extents {
		buf.Extents = append(buf.Extents, Int(ext))
	}
	return buf
}

// Shape returns the shape of the buffer.
// It returns false if an extent is not a constant.
func (b *Buffer) Shape() (*shape.Shape, bool) {
	sh := &shape.Shape{DType: b.Type}
	for _, ext := range b.Extents {
		imm, ok := ext.(*IntImm)
		if !ok {
			return nil, false
		}
		sh.AxisLengths = append(sh.AxisLengths, int(imm.Val))
	}
	return sh, true
}
