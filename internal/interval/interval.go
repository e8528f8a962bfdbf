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

// Package interval implements integer and floating point interval arithmetic.
//
// An interval is a closed range [Min, Max] where each end can be missing,
// meaning that no finite bound is known on that side.
// Division and modulo use floor semantics.
package interval

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Interval is a closed range of integers. The zero value is unbounded.
type Interval struct {
	Min, Max       int64
	HasMin, HasMax bool
}

// Point returns the interval containing a single value.
func Point(v int64) Interval {
	return Interval{Min: v, Max: v, HasMin: true, HasMax: true}
}

// Range returns the interval [min, max].
func Range(min, max int64) Interval {
	return Interval{Min: min, Max: max, HasMin: true, HasMax: true}
}

// Unbounded returns an interval with no bound.
func Unbounded() Interval {
	return Interval{}
}

// Bool returns the interval of boolean values.
func Bool() Interval {
	return Range(0, 1)
}

// IsBounded returns true if both ends of the interval are known.
func (a Interval) IsBounded() bool {
	return a.HasMin && a.HasMax
}

// IsPoint returns true if the interval contains a single value.
func (a Interval) IsPoint() bool {
	return a.IsBounded() && a.Min == a.Max
}

// Extent returns the number of values in a bounded interval.
func (a Interval) Extent() int64 {
	if !a.IsBounded() || a.Max < a.Min {
		return 0
	}
	return a.Max - a.Min + 1
}

// Contains returns true if v is in the interval.
func (a Interval) Contains(v int64) bool {
	return (!a.HasMin || a.Min <= v) && (!a.HasMax || v <= a.Max)
}

func (a Interval) String() string {
	lo, hi := "-inf", "+inf"
	if a.HasMin {
		lo = fmt.Sprint(a.Min)
	}
	if a.HasMax {
		hi = fmt.Sprint(a.Max)
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}

// norm zeroes the value of missing bounds.
func (a Interval) norm() Interval {
	if !a.HasMin {
		a.Min = 0
	}
	if !a.HasMax {
		a.Max = 0
	}
	return a
}

// Union returns the smallest interval containing a and b.
func Union(a, b Interval) Interval {
	return Interval{
		Min:    min(a.Min, b.Min),
		Max:    max(a.Max, b.Max),
		HasMin: a.HasMin && b.HasMin,
		HasMax: a.HasMax && b.HasMax,
	}.norm()
}

// Intersect returns the values in both a and b.
// The result may be empty (Max < Min).
func Intersect(a, b Interval) Interval {
	r := a
	if b.HasMin && (!r.HasMin || b.Min > r.Min) {
		r.Min, r.HasMin = b.Min, true
	}
	if b.HasMax && (!r.HasMax || b.Max < r.Max) {
		r.Max, r.HasMax = b.Max, true
	}
	return r.norm()
}

// Neg returns -a.
func Neg(a Interval) Interval {
	return Interval{Min: -a.Max, Max: -a.Min, HasMin: a.HasMax, HasMax: a.HasMin}
}

// Add returns a + b.
func Add(a, b Interval) Interval {
	return Interval{
		Min:    a.Min + b.Min,
		Max:    a.Max + b.Max,
		HasMin: a.HasMin && b.HasMin,
		HasMax: a.HasMax && b.HasMax,
	}.norm()
}

// Sub returns a - b.
func Sub(a, b Interval) Interval {
	return Add(a, Neg(b))
}

func scale(a Interval, c int64) Interval {
	switch {
	case c == 0:
		return Point(0)
	case c > 0:
		return Interval{Min: a.Min * c, Max: a.Max * c, HasMin: a.HasMin, HasMax: a.HasMax}.norm()
	default:
		return Neg(scale(a, -c))
	}
}

// corners returns the hull of f applied to the corners of two bounded intervals.
func corners(a, b Interval, f func(x, y int64) int64) Interval {
	vals := [4]int64{f(a.Min, b.Min), f(a.Min, b.Max), f(a.Max, b.Min), f(a.Max, b.Max)}
	r := Point(vals[0])
	for _, v := range vals[1:] {
		r = Union(r, Point(v))
	}
	return r
}

// Mul returns a * b.
func Mul(a, b Interval) Interval {
	switch {
	case b.IsPoint():
		return scale(a, b.Min)
	case a.IsPoint():
		return scale(b, a.Min)
	case a.IsBounded() && b.IsBounded():
		return corners(a, b, func(x, y int64) int64 { return x * y })
	}
	return Unbounded()
}

// FloorDiv returns the division of x by y rounded towards negative infinity.
// Division by zero returns zero.
func FloorDiv[T constraints.Signed](x, y T) T {
	if y == 0 {
		return 0
	}
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return q
}

// FloorMod returns the remainder of the floor division of x by y.
// The result has the sign of y. Modulo zero returns zero.
func FloorMod[T constraints.Signed](x, y T) T {
	if y == 0 {
		return 0
	}
	return x - FloorDiv(x, y)*y
}

// Div returns a / b with floor semantics.
func Div(a, b Interval) Interval {
	if b.IsPoint() && b.Min != 0 {
		c := b.Min
		r := Interval{HasMin: a.HasMin, HasMax: a.HasMax}
		if a.HasMin {
			r.Min = FloorDiv(a.Min, c)
		}
		if a.HasMax {
			r.Max = FloorDiv(a.Max, c)
		}
		if c < 0 {
			r = Interval{Min: r.Max, Max: r.Min, HasMin: r.HasMax, HasMax: r.HasMin}
		}
		return r
	}
	if !a.IsBounded() {
		return Unbounded()
	}
	if b.IsBounded() && !b.Contains(0) {
		return corners(a, b, FloorDiv[int64])
	}
	// The magnitude of a quotient never exceeds the magnitude of the dividend.
	m := max(Abs(a).Max, 0)
	return Range(-m, m)
}

// Mod returns a % b with floor semantics.
func Mod(a, b Interval) Interval {
	if a.IsPoint() && b.IsPoint() && b.Min != 0 {
		return Point(FloorMod(a.Min, b.Min))
	}
	if !b.IsBounded() {
		return Unbounded()
	}
	if b.Min > 0 {
		if a.HasMin && a.HasMax && a.Min >= 0 && a.Max < b.Min {
			return a
		}
		return Range(0, b.Max-1)
	}
	if b.Max < 0 {
		return Range(b.Min+1, 0)
	}
	return Range(min(b.Min+1, 0), max(b.Max-1, 0))
}

// Min returns the interval of min(a, b).
func Min(a, b Interval) Interval {
	r := Interval{
		Min:    min(a.Min, b.Min),
		HasMin: a.HasMin && b.HasMin,
	}
	switch {
	case a.HasMax && b.HasMax:
		r.Max, r.HasMax = min(a.Max, b.Max), true
	case a.HasMax:
		r.Max, r.HasMax = a.Max, true
	case b.HasMax:
		r.Max, r.HasMax = b.Max, true
	}
	return r.norm()
}

// Max returns the interval of max(a, b).
func Max(a, b Interval) Interval {
	return Neg(Min(Neg(a), Neg(b)))
}

// Clamp returns the interval of min(max(a, lo), hi).
func Clamp(a, lo, hi Interval) Interval {
	return Min(Max(a, lo), hi)
}

// Abs returns the interval of |a|.
func Abs(a Interval) Interval {
	switch {
	case a.HasMin && a.Min >= 0:
		return a
	case a.HasMax && a.Max <= 0:
		return Neg(a)
	}
	r := Interval{Min: 0, HasMin: true}
	if a.IsBounded() {
		r.Max, r.HasMax = max(-a.Min, a.Max), true
	}
	return r
}
