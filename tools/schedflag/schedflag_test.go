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

package schedflag_test

import (
	"flag"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/autosched/api/options"
	"github.com/gx-org/autosched/autoschedule/cost"
	"github.com/gx-org/autosched/build/ir"
	"github.com/gx-org/autosched/tools/schedflag"
	"github.com/gx-org/backend/dtype"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestFlags(t *testing.T) {
	fs := newFlagSet()
	list := schedflag.StringList(fs, "param", "")
	mp := schedflag.MachineParams(fs, "machine", cost.DefaultMachineParams(), "")
	tb := schedflag.TieBreak(fs, "tiebreak", "")
	mem := schedflag.MemoryMode(fs, "memory", "")
	err := fs.Parse([]string{
		"-param", "a=0:10, b=1:2",
		"-param", "c=3:4",
		"-machine", "8,8,256KiB,40",
		"-tiebreak", "finer",
		"-memory", "uniform",
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a=0:10", "b=1:2", "c=3:4"}, *list); diff != "" {
		t.Errorf("unexpected list (-want +got):\n%s", diff)
	}
	wantMP := cost.MachineParams{Parallelism: 8, VectorWidth: 8, LastLevelCacheBytes: 256 << 10, Balance: 40}
	if diff := cmp.Diff(wantMP, *mp); diff != "" {
		t.Errorf("unexpected machine parameters (-want +got):\n%s", diff)
	}
	if *tb != options.PreferFiner {
		t.Errorf("got tie break %s but want %s", *tb, options.PreferFiner)
	}
	if *mem != cost.MemoryUniform {
		t.Errorf("got memory mode %s but want %s", *mem, cost.MemoryUniform)
	}
}

func TestFlagDefaults(t *testing.T) {
	fs := newFlagSet()
	mp := schedflag.MachineParams(fs, "machine", cost.DefaultMachineParams(), "")
	tb := schedflag.TieBreak(fs, "tiebreak", "")
	mem := schedflag.MemoryMode(fs, "memory", "")
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if *mp != cost.DefaultMachineParams() {
		t.Errorf("got machine parameters %s but want the default", *mp)
	}
	if *tb != options.PreferCoarser || *mem != cost.MemoryCacheBoundary {
		t.Errorf("unexpected defaults %s and %s", *tb, *mem)
	}
}

func TestFlagErrors(t *testing.T) {
	tests := [][]string{
		{"-machine", "8,8,256KiB"},
		{"-tiebreak", "random"},
		{"-memory", "none"},
	}
	for _, args := range tests {
		fs := newFlagSet()
		schedflag.MachineParams(fs, "machine", cost.DefaultMachineParams(), "")
		schedflag.TieBreak(fs, "tiebreak", "")
		schedflag.MemoryMode(fs, "memory", "")
		if err := fs.Parse(args); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestParamEstimates(t *testing.T) {
	p := &ir.Pipeline{Params: []*ir.Param{{Name: "w", Type: dtype.Int32}}}
	if err := schedflag.SetParamEstimates(p, []string{"w = 16:1024"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&ir.Bound{Min: 16, Extent: 1008}, p.Params[0].Estimate); diff != "" {
		t.Errorf("unexpected estimate (-want +got):\n%s", diff)
	}
	for _, bad := range []string{"w", "w=1", "w=a:2", "w=4:2", "h=0:1"} {
		if err := schedflag.SetParamEstimates(p, []string{bad}); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}
}
