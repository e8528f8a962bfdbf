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

package interval

import (
	"fmt"
	"math"
)

// Real is a closed range of floating point values.
// Infinite ends mean that no finite bound is known on that side.
type Real struct {
	Lo, Hi float64
}

// limit is the first float64 past the range of int64.
const limit = 1 << 63

// RealPoint returns the range containing a single value.
func RealPoint(v float64) Real {
	if math.IsNaN(v) {
		return RealUnbounded()
	}
	return Real{Lo: v, Hi: v}
}

// RealRange returns the range [lo, hi].
func RealRange(lo, hi float64) Real {
	return Real{Lo: lo, Hi: hi}.norm()
}

// RealUnbounded returns a range with no bound.
func RealUnbounded() Real {
	return Real{Lo: math.Inf(-1), Hi: math.Inf(1)}
}

// toFloat converts an integer rounding away from the integer in direction dir
// when the conversion is not exact.
func toFloat(v int64, dir float64) float64 {
	f := float64(v)
	if f > 1<<53 || f < -(1<<53) {
		return math.Nextafter(f, dir)
	}
	return f
}

// ToReal returns the range of the values of an integer interval.
func ToReal(a Interval) Real {
	r := RealUnbounded()
	if a.HasMin {
		r.Lo = toFloat(a.Min, math.Inf(-1))
	}
	if a.HasMax {
		r.Hi = toFloat(a.Max, math.Inf(1))
	}
	return r
}

// norm replaces NaN bounds by infinities.
func (r Real) norm() Real {
	if math.IsNaN(r.Lo) {
		r.Lo = math.Inf(-1)
	}
	if math.IsNaN(r.Hi) {
		r.Hi = math.Inf(1)
	}
	return r
}

// IsBounded returns true if both ends of the range are finite.
func (r Real) IsBounded() bool {
	return !math.IsInf(r.Lo, 0) && !math.IsInf(r.Hi, 0)
}

// Contains returns true if v is in the range.
func (r Real) Contains(v float64) bool {
	return r.Lo <= v && v <= r.Hi
}

func (r Real) String() string {
	return fmt.Sprintf("[%g, %g]", r.Lo, r.Hi)
}

func floorInt(v float64) (int64, bool) {
	f := math.Floor(v)
	if math.IsNaN(f) || f < -limit || f >= limit {
		return 0, false
	}
	return int64(f), true
}

func ceilInt(v float64) (int64, bool) {
	c := math.Ceil(v)
	if math.IsNaN(c) || c < -limit || c >= limit {
		return 0, false
	}
	return int64(c), true
}

// Hull returns the smallest integer interval containing the range.
// Ends past the range of int64 are unbounded.
func (r Real) Hull() Interval {
	var a Interval
	a.Min, a.HasMin = floorInt(r.Lo)
	a.Max, a.HasMax = ceilInt(r.Hi)
	return a.norm()
}

// Floor returns the interval of the values of the range rounded down,
// as converted to an integer.
func (r Real) Floor() Interval {
	var a Interval
	a.Min, a.HasMin = floorInt(r.Lo)
	a.Max, a.HasMax = floorInt(r.Hi)
	return a.norm()
}

// Neg returns -r.
func (r Real) Neg() Real {
	return Real{Lo: -r.Hi, Hi: -r.Lo}
}

// Add returns r + o.
func (r Real) Add(o Real) Real {
	return RealRange(r.Lo+o.Lo, r.Hi+o.Hi)
}

// Sub returns r - o.
func (r Real) Sub(o Real) Real {
	return r.Add(o.Neg())
}

// mulf multiplies two bounds, with 0 times an infinity being 0.
func mulf(x, y float64) float64 {
	if x == 0 || y == 0 {
		return 0
	}
	return x * y
}

func realCorners(vs ...float64) Real {
	out := Real{Lo: math.Inf(1), Hi: math.Inf(-1)}
	for _, v := range vs {
		if math.IsNaN(v) {
			return RealUnbounded()
		}
		out.Lo = min(out.Lo, v)
		out.Hi = max(out.Hi, v)
	}
	return out
}

// Mul returns r * o.
func (r Real) Mul(o Real) Real {
	return realCorners(
		mulf(r.Lo, o.Lo), mulf(r.Lo, o.Hi),
		mulf(r.Hi, o.Lo), mulf(r.Hi, o.Hi),
	)
}

// Div returns r / o. The range is unbounded when o contains 0.
func (r Real) Div(o Real) Real {
	if o.Contains(0) {
		return RealUnbounded()
	}
	return realCorners(r.Lo/o.Lo, r.Lo/o.Hi, r.Hi/o.Lo, r.Hi/o.Hi)
}

// Mod returns the range of r - o*floor(r/o): the sign of the result
// is the sign of the divisor.
func (r Real) Mod(o Real) Real {
	switch {
	case o.Lo > 0:
		return Real{Lo: 0, Hi: o.Hi}
	case o.Hi < 0:
		return Real{Lo: o.Lo, Hi: 0}
	}
	return Real{Lo: min(o.Lo, 0), Hi: max(o.Hi, 0)}
}

// Union returns the smallest range containing r and o.
func (r Real) Union(o Real) Real {
	return Real{Lo: min(r.Lo, o.Lo), Hi: max(r.Hi, o.Hi)}
}

// Min returns the range of min(r, o).
func (r Real) Min(o Real) Real {
	return Real{Lo: min(r.Lo, o.Lo), Hi: min(r.Hi, o.Hi)}
}

// Max returns the range of max(r, o).
func (r Real) Max(o Real) Real {
	return Real{Lo: max(r.Lo, o.Lo), Hi: max(r.Hi, o.Hi)}
}

// Abs returns the range of |r|.
func (r Real) Abs() Real {
	switch {
	case r.Lo >= 0:
		return r
	case r.Hi <= 0:
		return r.Neg()
	}
	return Real{Lo: 0, Hi: max(-r.Lo, r.Hi)}
}

// Monotonic returns the range of f over r for a non-decreasing f.
func (r Real) Monotonic(f func(float64) float64) Real {
	return RealRange(f(r.Lo), f(r.Hi))
}
