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

// Package schedflag provides flag types for the scheduling tools.
package schedflag

import (
	"flag"
	"strconv"
	"strings"

	"github.com/gx-org/autosched/api/options"
	"github.com/gx-org/autosched/autoschedule/cost"
	"github.com/gx-org/autosched/build/ir"
	"github.com/pkg/errors"
)

type stringList struct {
	list *[]string
}

func (sl *stringList) String() string {
	if sl.list == nil {
		return ""
	}
	return strings.Join(*sl.list, ",")
}

func (sl *stringList) Set(values string) error {
	for _, value := range strings.Split(values, ",") {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		*sl.list = append(*sl.list, value)
	}
	return nil
}

// StringList returns a flag to pass a list of string from the command line.
func StringList(fs *flag.FlagSet, name, doc string) *[]string {
	var list []string
	sList := stringList{&list}
	fs.Var(&sList, name, doc)
	return sList.list
}

// Machine is a flag value setting machine parameters,
// written as PARALLELISM,VECTOR_WIDTH,CACHE_SIZE,BALANCE.
type Machine struct {
	Params cost.MachineParams
}

// MachineParams returns a flag to pass machine parameters from the command line.
func MachineParams(fs *flag.FlagSet, name string, value cost.MachineParams, doc string) *cost.MachineParams {
	m := &Machine{Params: value}
	fs.Var(m, name, doc)
	return &m.Params
}

func (m *Machine) String() string {
	if m == nil {
		return ""
	}
	return m.Params.String()
}

// Set parses machine parameters.
func (m *Machine) Set(s string) error {
	mp, err := cost.ParseMachineParams(s)
	if err != nil {
		return err
	}
	m.Params = mp
	return nil
}

type tieBreak struct {
	t *options.TieBreak
}

func (tb tieBreak) String() string {
	if tb.t == nil {
		return ""
	}
	return tb.t.String()
}

func (tb tieBreak) Set(s string) (err error) {
	*tb.t, err = options.ParseTieBreak(s)
	return
}

// TieBreak returns a flag selecting between candidates of equal cost.
func TieBreak(fs *flag.FlagSet, name string, doc string) *options.TieBreak {
	t := options.PreferCoarser
	fs.Var(tieBreak{&t}, name, doc)
	return &t
}

type memoryMode struct {
	m *cost.MemoryMode
}

func (mm memoryMode) String() string {
	if mm.m == nil {
		return ""
	}
	return mm.m.String()
}

func (mm memoryMode) Set(s string) (err error) {
	*mm.m, err = options.ParseMemoryMode(s)
	return
}

// MemoryMode returns a flag selecting the memory accesses charged the machine balance.
func MemoryMode(fs *flag.FlagSet, name string, doc string) *cost.MemoryMode {
	m := cost.MemoryCacheBoundary
	fs.Var(memoryMode{&m}, name, doc)
	return &m
}

// ParamEstimate is the estimate of a scalar parameter given on the command line.
type ParamEstimate struct {
	Name     string
	Estimate ir.Bound
}

// ParseParamEstimate parses name=min:max.
func ParseParamEstimate(s string) (ParamEstimate, error) {
	name, rng, found := strings.Cut(s, "=")
	if !found {
		return ParamEstimate{}, errors.Errorf("invalid parameter estimate %q: want name=min:max", s)
	}
	lo, hi, found := strings.Cut(rng, ":")
	if !found {
		return ParamEstimate{}, errors.Errorf("invalid parameter estimate %q: want name=min:max", s)
	}
	minV, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	if err != nil {
		return ParamEstimate{}, errors.Wrapf(err, "invalid minimum in %q", s)
	}
	maxV, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
	if err != nil {
		return ParamEstimate{}, errors.Wrapf(err, "invalid maximum in %q", s)
	}
	if maxV < minV {
		return ParamEstimate{}, errors.Errorf("invalid parameter estimate %q: max is less than min", s)
	}
	return ParamEstimate{
		Name:     strings.TrimSpace(name),
		Estimate: ir.Bound{Min: minV, Extent: maxV - minV},
	}, nil
}

// SetParamEstimates sets the estimates of the parameters of a pipeline.
func SetParamEstimates(p *ir.Pipeline, list []string) error {
	for _, s := range list {
		pe, err := ParseParamEstimate(s)
		if err != nil {
			return err
		}
		prm := p.Param(pe.Name)
		if prm == nil {
			return errors.Errorf("pipeline has no parameter %q", pe.Name)
		}
		prm.Estimate = &pe.Estimate
	}
	return nil
}
