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
	"fmt"
	"strconv"
	"strings"

	gxfmt "github.com/gx-org/autosched/base/fmt"
)

func exprString(x Expr) string {
	if x == nil {
		return "<nil>"
	}
	return x.String()
}

func exprsString(xs []Expr) string {
	ss := make([]string, len(xs))
	for i, x := range xs {
		ss[i] = exprString(x)
	}
	return strings.Join(ss, ", ")
}

func (x *IntImm) String() string { return strconv.FormatInt(x.Val, 10) }

func (x *FloatImm) String() string {
	s := strconv.FormatFloat(x.Val, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func (x *Var) String() string { return x.Name }

func (x *Unary) String() string {
	return x.Op.String() + parenthesize(x.X)
}

func (x *Binary) String() string {
	return fmt.Sprintf("%s %s %s", parenthesize(x.X), x.Op, parenthesize(x.Y))
}

func (x *Select) String() string {
	return fmt.Sprintf("select(%s, %s, %s)", exprString(x.Cond), exprString(x.True), exprString(x.False))
}

func (x *Cast) String() string {
	return fmt.Sprintf("%s(%s)", TypeString(x.Type), exprString(x.X))
}

func (x *Let) String() string {
	return fmt.Sprintf("(let %s = %s in %s)", x.Name, exprString(x.Value), exprString(x.Body))
}

func (x *Call) String() string {
	return fmt.Sprintf("%s(%s)", x.Name, exprsString(x.Args))
}

func (x *Load) String() string {
	return fmt.Sprintf("%s[%s]", x.Buffer.Name, exprsString(x.Index))
}

func parenthesize(x Expr) string {
	switch x.(type) {
	case *Binary:
		return "(" + x.String() + ")"
	}
	return exprString(x)
}

func (b *Buffer) String() string {
	exts := make([]string, len(b.Extents))
	for i, ext := range b.Extents {
		if ext == nil {
			exts[i] = "?"
			continue
		}
		exts[i] = ext.String()
	}
	return fmt.Sprintf("%s[%s]%s", b.Name, strings.Join(exts, ", "), TypeString(b.Type))
}

func (s *For) String() string {
	return fmt.Sprintf("%s %s in [%s, %s+%s) {\n%s\n}", s.Kind, s.Name, exprString(s.Min), exprString(s.Min), exprString(s.Extent), gxfmt.Indent(stmtString(s.Body)))
}

func (s *LetStmt) String() string {
	return fmt.Sprintf("let %s = %s\n%s", s.Name, exprString(s.Value), stmtString(s.Body))
}

func (s *Store) String() string {
	return fmt.Sprintf("%s[%s] = %s", s.Buffer.Name, exprsString(s.Index), exprString(s.Value))
}

func (s *Allocate) String() string {
	return fmt.Sprintf("allocate %s\n%s", s.Buffer, stmtString(s.Body))
}

func (s *Block) String() string {
	ss := make([]string, len(s.Stmts))
	for i, stmt := range s.Stmts {
		ss[i] = stmtString(stmt)
	}
	return strings.Join(ss, "\n")
}

func (s *IfThenElse) String() string {
	str := fmt.Sprintf("if %s {\n%s\n}", exprString(s.Cond), gxfmt.Indent(stmtString(s.Then)))
	if s.Else == nil {
		return str
	}
	return fmt.Sprintf("%s else {\n%s\n}", str, gxfmt.Indent(stmtString(s.Else)))
}

func (s *Evaluate) String() string {
	return exprString(s.Value)
}

func stmtString(s Stmt) string {
	if s == nil {
		return "<nil>"
	}
	return s.String()
}
