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
	"strings"

	"github.com/gx-org/backend/dtype"
)

type (
	// Bound is a [Min, Min+Extent) range of indices.
	Bound struct {
		Min, Extent int64
	}

	// RVar is a dimension of a reduction domain.
	RVar struct {
		Name string
		Bound
	}

	// RDom is a reduction domain: the multi-dimensional range
	// an update step iterates over, restricted by predicates.
	RDom struct {
		Name  string
		Vars  []RVar
		Where []Expr
	}

	// Update is a reduction step refining the value of a func.
	Update struct {
		// Args are the indices of the func element being updated.
		Args  []Expr
		Value Expr
		// Domain is the reduction domain of the update. Can be nil.
		Domain *RDom
	}

	// Func is a stage of the pipeline.
	Func struct {
		name    string
		args    []string
		typ     dtype.DataType
		value   Expr
		updates []*Update
		sched   Schedule
	}

	// Input is a buffer read by the pipeline.
	Input struct {
		Name string
		Type dtype.DataType
		Dims int
	}

	// Param is a scalar parameter of the pipeline.
	Param struct {
		Name string
		Type dtype.DataType
		// Estimate is the range of values the parameter is expected to take.
		// Nil when unknown.
		Estimate *Bound
	}

	// Output is a func computed by the pipeline with the region requested from it.
	Output struct {
		Func      string
		Estimates []Bound
	}

	// Pipeline is a set of funcs, inputs and parameters computing outputs.
	Pipeline struct {
		Funcs   []*Func
		Inputs  []*Input
		Params  []*Param
		Outputs []Output
	}
)

// Max returns the last index of the bound.
func (b Bound) Max() int64 {
	return b.Min + b.Extent - 1
}

func (b Bound) String() string {
	return fmt.Sprintf("%d:%d", b.Min, b.Min+b.Extent)
}

// NewRDom returns a reduction domain with its variables named like the
// name of the domain followed by x, y, z, w and then by the dimension index.
func NewRDom(name string, bounds ...Bound) *RDom {
	dom := &RDom{Name: name}
	for i, b := range bounds {
		dom.Vars = append(dom.Vars, RVar{Name: RVarName(name, i), Bound: b})
	}
	return dom
}

// RVarName returns the name of the i-th variable of a reduction domain.
func RVarName(dom string, i int) string {
	const names = "xyzw"
	if i < len(names) {
		return dom + "." + names[i:i+1]
	}
	return fmt.Sprintf("%s.%d", dom, i)
}

// Var returns the variable expression of the i-th dimension.
func (dom *RDom) Var(i int) *Var {
	return V(dom.Vars[i].Name)
}

// Size returns the number of points of the domain without the predicates.
func (dom *RDom) Size() int64 {
	if dom == nil {
		return 1
	}
	n := int64(1)
	for _, v := range dom.Vars {
		n *= v.Extent
	}
	return n
}

// Lookup returns the reduction variable given its name.
func (dom *RDom) Lookup(name string) (RVar, bool) {
	if dom == nil {
		return RVar{}, false
	}
	for _, v := range dom.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return RVar{}, false
}

func (dom *RDom) String() string {
	bounds := make([]string, len(dom.Vars))
	for i, v := range dom.Vars {
		bounds[i] = v.Bound.String()
	}
	s := fmt.Sprintf("rdom %s(%s)", dom.Name, strings.Join(bounds, ", "))
	if len(dom.Where) == 0 {
		return s
	}
	preds := make([]string, len(dom.Where))
	for i, w := range dom.Where {
		preds[i] = w.String()
	}
	return s + " where " + strings.Join(preds, " && ")
}

// NewFunc returns a new undefined func.
func NewFunc(name string, typ dtype.DataType, args ...string) *Func {
	return &Func{name: name, typ: typ, args: args}
}

// Name of the func.
func (f *Func) Name() string { return f.name }

// Args returns the names of the pure dimension variables, innermost first.
func (f *Func) Args() []string { return f.args }

// Dims returns the number of dimensions of the func.
func (f *Func) Dims() int { return len(f.args) }

// Type returns the data type of the elements of the func.
func (f *Func) Type() dtype.DataType { return f.typ }

// Value returns the pure definition of the func.
func (f *Func) Value() Expr { return f.value }

// Updates returns the update steps of the func.
func (f *Func) Updates() []*Update { return f.updates }

// Define sets the pure definition of the func.
func (f *Func) Define(value Expr) *Func {
	f.value = value
	return f
}

// AddUpdate appends a reduction step to the func.
func (f *Func) AddUpdate(args []Expr, value Expr, dom *RDom) *Func {
	f.updates = append(f.updates, &Update{Args: args, Value: value, Domain: dom})
	return f
}

// IsPureArg returns true if the i-th argument of an update is the i-th pure variable.
func (f *Func) IsPureArg(u *Update, i int) bool {
	v, ok := u.Args[i].(*Var)
	return ok && i < len(f.args) && v.Name == f.args[i]
}

// IsScatter returns true if some update writes at indices
// that are not the pure variables of the func.
func (f *Func) IsScatter() bool {
	for _, u := range f.updates {
		for i := range u.Args {
			if !f.IsPureArg(u, i) {
				return true
			}
		}
	}
	return false
}

func (f *Func) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "func %s(%s) %s = %s", f.name, strings.Join(f.args, ", "), TypeString(f.typ), exprString(f.value))
	for _, u := range f.updates {
		args := make([]string, len(u.Args))
		for i, arg := range u.Args {
			args[i] = exprString(arg)
		}
		fmt.Fprintf(&s, "\nupdate %s(%s) = %s", f.name, strings.Join(args, ", "), exprString(u.Value))
		if u.Domain != nil {
			fmt.Fprintf(&s, " over %s", u.Domain.Name)
		}
	}
	return s.String()
}

// Func returns a func of the pipeline given its name.
func (p *Pipeline) Func(name string) *Func {
	for _, f := range p.Funcs {
		if f.name == name {
			return f
		}
	}
	return nil
}

// Input returns an input of the pipeline given its name.
func (p *Pipeline) Input(name string) *Input {
	for _, in := range p.Inputs {
		if in.Name == name {
			return in
		}
	}
	return nil
}

// Param returns a parameter of the pipeline given its name.
func (p *Pipeline) Param(name string) *Param {
	for _, prm := range p.Params {
		if prm.Name == name {
			return prm
		}
	}
	return nil
}
