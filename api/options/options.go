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

// Package options specifies options for scheduling runs.
package options

import (
	"fmt"
	"runtime"

	"github.com/gx-org/autosched/api/trace"
	"github.com/gx-org/autosched/autoschedule/cost"
	"github.com/pkg/errors"
)

// DefaultMaxFactorCandidates is the default number of tile factors
// considered per dimension.
const DefaultMaxFactorCandidates = 8

type (
	// Options of a scheduling run.
	Options struct {
		// TieBreak selects between candidates of equal cost.
		TieBreak TieBreak
		// Workers is the number of goroutines evaluating candidates.
		Workers int
		// MaxFactorCandidates is the number of tile factors considered per dimension.
		MaxFactorCandidates int
		// Memory selects the memory accesses charged the machine balance.
		Memory cost.MemoryMode
		// MaxBufferBytes is the size of the largest buffer a stage can allocate.
		// 0 means unlimited.
		MaxBufferBytes int64
		// Trace observes the candidates of the search. Can be nil.
		Trace trace.Callback
	}

	// Option modifies the options of a scheduling run.
	Option interface {
		Apply(*Options)
	}

	// TieBreak selects between the compute locations of candidates of equal cost.
	TieBreak int

	// Workers sets the number of goroutines evaluating candidates.
	Workers int

	// MaxFactorCandidates sets the number of tile factors considered per dimension.
	MaxFactorCandidates int

	// MaxBufferBytes sets the size of the largest buffer a stage can allocate.
	MaxBufferBytes int64

	// MemoryMode sets the memory accesses charged the machine balance.
	MemoryMode cost.MemoryMode

	optionFunc func(*Options)
)

const (
	// PreferCoarser prefers root over attached locations, shallow attached
	// locations over deep ones and attached locations over inlining.
	PreferCoarser TieBreak = iota
	// PreferFiner reverses PreferCoarser.
	PreferFiner
)

// Default returns the default options.
func Default() Options {
	return Options{
		TieBreak:            PreferCoarser,
		Workers:             runtime.GOMAXPROCS(0),
		MaxFactorCandidates: DefaultMaxFactorCandidates,
		Memory:              cost.MemoryCacheBoundary,
	}
}

// New returns the default options modified by a list of options.
func New(opts ...Option) (Options, error) {
	o := Default()
	for _, opt := range opts {
		opt.Apply(&o)
	}
	return o, o.Validate()
}

// Validate returns an error if an option is out of range.
func (o Options) Validate() error {
	if o.TieBreak != PreferCoarser && o.TieBreak != PreferFiner {
		return errors.Errorf("invalid tie break %d", o.TieBreak)
	}
	if o.Workers < 1 {
		return errors.Errorf("invalid number of workers %d: must be at least 1", o.Workers)
	}
	if o.MaxFactorCandidates < 1 {
		return errors.Errorf("invalid number of factor candidates %d: must be at least 1", o.MaxFactorCandidates)
	}
	if o.MaxBufferBytes < 0 {
		return errors.Errorf("invalid maximum buffer size %d", o.MaxBufferBytes)
	}
	return nil
}

// Apply sets the tie break.
func (t TieBreak) Apply(o *Options) { o.TieBreak = t }

func (t TieBreak) String() string {
	switch t {
	case PreferCoarser:
		return "coarser"
	case PreferFiner:
		return "finer"
	}
	return fmt.Sprintf("TieBreak(%d)", int(t))
}

// ParseTieBreak returns a tie break given its name.
func ParseTieBreak(s string) (TieBreak, error) {
	for _, t := range []TieBreak{PreferCoarser, PreferFiner} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, errors.Errorf("unknown tie break %q: want coarser or finer", s)
}

// Apply sets the number of workers.
func (w Workers) Apply(o *Options) { o.Workers = int(w) }

// Apply sets the number of factor candidates.
func (m MaxFactorCandidates) Apply(o *Options) { o.MaxFactorCandidates = int(m) }

// Apply sets the maximum buffer size.
func (m MaxBufferBytes) Apply(o *Options) { o.MaxBufferBytes = int64(m) }

// Apply sets the memory mode.
func (m MemoryMode) Apply(o *Options) { o.Memory = cost.MemoryMode(m) }

// ParseMemoryMode returns a memory mode given its name.
func ParseMemoryMode(s string) (cost.MemoryMode, error) {
	for _, m := range []cost.MemoryMode{cost.MemoryCacheBoundary, cost.MemoryUniform} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, errors.Errorf("unknown memory mode %q: want cache-boundary or uniform", s)
}

func (f optionFunc) Apply(o *Options) { f(o) }

// WithTrace sets a callback observing the candidates of the search.
func WithTrace(cb trace.Callback) Option {
	return optionFunc(func(o *Options) { o.Trace = cb })
}
