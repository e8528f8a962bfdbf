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

package region

import (
	"fmt"
	"slices"

	"github.com/gx-org/autosched/base/stringseq"
	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/autosched/internal/interval"
)

type (
	// Span is the range [Min, Min+Extent) of indices along a dimension.
	Span struct {
		Min, Extent int64
	}

	// Box is a region: one span per dimension, innermost first.
	// A nil box is empty.
	Box []Span
)

// Max returns the last index of the span.
func (s Span) Max() int64 {
	return s.Min + s.Extent - 1
}

// Interval returns the span as a closed interval.
func (s Span) Interval() interval.Interval {
	return interval.Range(s.Min, s.Max())
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Min, s.Min+s.Extent)
}

func spanFromInterval(a interval.Interval) Span {
	return Span{Min: a.Min, Extent: a.Extent()}
}

func unionSpan(a, b Span) Span {
	if a.Extent <= 0 {
		return b
	}
	if b.Extent <= 0 {
		return a
	}
	lo := min(a.Min, b.Min)
	return Span{Min: lo, Extent: max(a.Max(), b.Max()) - lo + 1}
}

// FromBounds returns the box of a list of bounds.
func FromBounds(bounds []ir.Bound) Box {
	b := make(Box, len(bounds))
	for i, bound := range bounds {
		b[i] = Span{Min: bound.Min, Extent: bound.Extent}
	}
	return b
}

// Empty returns true if the box contains no point.
func (b Box) Empty() bool {
	return b == nil || b.Points() == 0
}

// Points returns the number of points in the box.
func (b Box) Points() int64 {
	if b == nil {
		return 0
	}
	n := int64(1)
	for _, s := range b {
		n *= max(s.Extent, 0)
	}
	return n
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(o Box) Box {
	if b.Empty() {
		return o.Clone()
	}
	if o.Empty() {
		return b.Clone()
	}
	u := make(Box, len(b))
	for i := range b {
		u[i] = unionSpan(b[i], o[i])
	}
	return u
}

// Clone returns a copy of the box.
func (b Box) Clone() Box {
	if b == nil {
		return nil
	}
	return append(Box{}, b...)
}

func (b Box) String() string {
	return "[" + stringseq.JoinStringer(slices.Values(b), ", ") + "]"
}
