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
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// DirectiveKind is the kind of a scheduling directive.
type DirectiveKind int

// Scheduling directives.
const (
	SplitDirective DirectiveKind = iota
	VectorizeDirective
	ParallelDirective
	ReorderDirective
	ReorderStorageDirective
	ComputeRootDirective
	ComputeAtDirective
	ComputeInlineDirective
)

var directiveNames = map[DirectiveKind]string{
	SplitDirective:          "split",
	VectorizeDirective:      "vectorize",
	ParallelDirective:       "parallel",
	ReorderDirective:        "reorder",
	ReorderStorageDirective: "reorder_storage",
	ComputeRootDirective:    "compute_root",
	ComputeAtDirective:      "compute_at",
	ComputeInlineDirective:  "compute_inline",
}

func (k DirectiveKind) String() string {
	if s, ok := directiveNames[k]; ok {
		return s
	}
	return fmt.Sprintf("DirectiveKind(%d)", int(k))
}

type (
	// Directive is a scheduling call applied to a func.
	Directive struct {
		Kind DirectiveKind
		// Vars are the loop or storage variables the directive applies to.
		Vars []string
		// Factor of a split.
		Factor int
		// Func is the consumer of a compute_at directive.
		Func string
	}

	// Schedule is the native scheduling state of a func.
	Schedule struct {
		directives      []Directive
		specializations []Expr
		// loopVars lists the loop variables of the pure step, innermost first.
		loopVars []string
		// storage lists the storage order of the dimensions, innermost first.
		storage []string
	}
)

func (d Directive) String() string {
	args := slices.Clone(d.Vars)
	switch d.Kind {
	case SplitDirective:
		args = append(args, fmt.Sprint(d.Factor))
	case ComputeAtDirective:
		args = append([]string{d.Func}, args...)
	}
	return fmt.Sprintf("%s(%s)", d.Kind, strings.Join(args, ", "))
}

func (s Schedule) clone() Schedule {
	return Schedule{
		directives:      slices.Clone(s.directives),
		specializations: slices.Clone(s.specializations),
		loopVars:        slices.Clone(s.loopVars),
		storage:         slices.Clone(s.storage),
	}
}

// Fork returns a copy of the func with its own scheduling state.
// Scheduling the copy does not modify the func.
func (f *Func) Fork() *Func {
	fork := *f
	fork.sched = f.sched.clone()
	return &fork
}

// Adopt replaces the scheduling state of the func with the state of a fork.
func (f *Func) Adopt(fork *Func) error {
	if fork.name != f.name {
		return errors.Errorf("%s: cannot adopt the schedule of %s", f.name, fork.name)
	}
	f.sched = fork.sched.clone()
	return nil
}

func (f *Func) initSchedule() {
	if f.sched.loopVars != nil {
		return
	}
	f.sched.loopVars = slices.Clone(f.args)
	f.sched.storage = slices.Clone(f.args)
}

func (f *Func) record(d Directive) {
	f.sched.directives = append(f.sched.directives, d)
}

// Scheduled returns true if a schedule or a specialization has been set on the func.
func (f *Func) Scheduled() bool {
	return len(f.sched.directives) > 0 || len(f.sched.specializations) > 0
}

// Directives returns the scheduling directives applied to the func, in order.
func (f *Func) Directives() []Directive {
	return slices.Clone(f.sched.directives)
}

// LoopVars returns the loop variables of the pure step, innermost first.
func (f *Func) LoopVars() []string {
	f.initSchedule()
	return slices.Clone(f.sched.loopVars)
}

// StorageOrder returns the storage order of the dimensions, innermost first.
func (f *Func) StorageOrder() []string {
	f.initSchedule()
	return slices.Clone(f.sched.storage)
}

// HasLoopVar returns true if v is a loop variable of the pure step.
func (f *Func) HasLoopVar(v string) bool {
	f.initSchedule()
	return slices.Contains(f.sched.loopVars, v)
}

// Specialize records a specialization of the func for a condition.
func (f *Func) Specialize(cond Expr) *Func {
	f.sched.specializations = append(f.sched.specializations, cond)
	return f
}

// Split splits the loop over old into an outer loop and an inner loop of factor iterations.
// The outer loop can reuse the name of the old loop.
func (f *Func) Split(old, outer, inner string, factor int) error {
	f.initSchedule()
	if factor <= 0 {
		return errors.Errorf("%s: cannot split %s by a non-positive factor %d", f.name, old, factor)
	}
	pos := slices.Index(f.sched.loopVars, old)
	if pos < 0 {
		return errors.Errorf("%s: cannot split %s: no such loop variable in %v", f.name, old, f.sched.loopVars)
	}
	for _, name := range []string{outer, inner} {
		if name != old && slices.Contains(f.sched.loopVars, name) {
			return errors.Errorf("%s: cannot split %s: loop variable %s already exists", f.name, old, name)
		}
	}
	if outer == inner {
		return errors.Errorf("%s: cannot split %s: outer and inner loops are both named %s", f.name, old, inner)
	}
	f.sched.loopVars = slices.Replace(f.sched.loopVars, pos, pos+1, inner, outer)
	f.record(Directive{Kind: SplitDirective, Vars: []string{old, outer, inner}, Factor: factor})
	return nil
}

func (f *Func) markLoop(kind DirectiveKind, v string) error {
	if !f.HasLoopVar(v) {
		return errors.Errorf("%s: cannot %s %s: no such loop variable in %v", f.name, kind, v, f.sched.loopVars)
	}
	f.record(Directive{Kind: kind, Vars: []string{v}})
	return nil
}

// Vectorize marks a loop to be executed with vector instructions.
func (f *Func) Vectorize(v string) error {
	return f.markLoop(VectorizeDirective, v)
}

// Parallel marks a loop to be executed by concurrent workers.
func (f *Func) Parallel(v string) error {
	return f.markLoop(ParallelDirective, v)
}

// Reorder reorders the given loop variables, listed innermost first.
// Loop variables not listed keep their position.
func (f *Func) Reorder(vars ...string) error {
	f.initSchedule()
	var positions []int
	for _, v := range vars {
		pos := slices.Index(f.sched.loopVars, v)
		if pos < 0 {
			return errors.Errorf("%s: cannot reorder %s: no such loop variable in %v", f.name, v, f.sched.loopVars)
		}
		if slices.Contains(positions, pos) {
			return errors.Errorf("%s: cannot reorder: %s listed twice", f.name, v)
		}
		positions = append(positions, pos)
	}
	slices.Sort(positions)
	for i, pos := range positions {
		f.sched.loopVars[pos] = vars[i]
	}
	f.record(Directive{Kind: ReorderDirective, Vars: slices.Clone(vars)})
	return nil
}

// ReorderStorage sets the storage order of the dimensions, innermost first.
func (f *Func) ReorderStorage(vars ...string) error {
	f.initSchedule()
	if len(vars) != len(f.args) {
		return errors.Errorf("%s: storage order %v does not list the %d dimensions %v", f.name, vars, len(f.args), f.args)
	}
	for _, v := range vars {
		if !slices.Contains(f.args, v) {
			return errors.Errorf("%s: %s is not a dimension of the func", f.name, v)
		}
	}
	f.sched.storage = slices.Clone(vars)
	f.record(Directive{Kind: ReorderStorageDirective, Vars: slices.Clone(vars)})
	return nil
}

// ComputeRoot computes all of the func before any of its consumer.
func (f *Func) ComputeRoot() {
	f.initSchedule()
	f.record(Directive{Kind: ComputeRootDirective})
}

// ComputeInline computes the func at every one of its call sites.
func (f *Func) ComputeInline() {
	f.initSchedule()
	f.record(Directive{Kind: ComputeInlineDirective})
}

// ComputeAt computes the region of the func required by each iteration
// of the loop v of a consumer.
func (f *Func) ComputeAt(consumer *Func, v string) error {
	f.initSchedule()
	if !consumer.HasLoopVar(v) {
		return errors.Errorf("%s: cannot compute at %s.%s: no such loop variable in %v", f.name, consumer.name, v, consumer.sched.loopVars)
	}
	f.record(Directive{Kind: ComputeAtDirective, Vars: []string{v}, Func: consumer.name})
	return nil
}

// ScheduleString returns the directives applied to the func in Halide-like syntax,
// one per line.
func (f *Func) ScheduleString() string {
	lines := make([]string, len(f.sched.directives))
	for i, d := range f.sched.directives {
		lines[i] = f.name + "." + d.String()
	}
	return strings.Join(lines, "\n")
}
