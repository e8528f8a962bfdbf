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

// Command autosched prints the schedule of a pipeline definition file.
//
// Usage:
//
//	autosched [flags] pipeline.pipe
package main

import (
	"flag"
	"fmt"
	"go/token"
	"io"
	"os"

	"github.com/gx-org/autosched/api"
	"github.com/gx-org/autosched/api/options"
	"github.com/gx-org/autosched/api/trace"
	"github.com/gx-org/autosched/autoschedule/cost"
	"github.com/gx-org/autosched/build/fmterr"
	"github.com/gx-org/autosched/build/parser"
	"github.com/gx-org/autosched/tools/schedflag"
	"k8s.io/klog/v2"
)

type config struct {
	machine        *cost.MachineParams
	params         *[]string
	tieBreak       *options.TieBreak
	memory         *cost.MemoryMode
	workers        *int
	factors        *int
	maxBufferBytes *int64
	report         *bool
	digest         *bool
	trace          *bool
}

func newConfig(fs *flag.FlagSet) *config {
	def := options.Default()
	return &config{
		machine:        schedflag.MachineParams(fs, "machine", cost.DefaultMachineParams(), "target machine: parallelism,vector width,cache size,balance"),
		params:         schedflag.StringList(fs, "param", "estimates of scalar parameters: name=min:max,..."),
		tieBreak:       schedflag.TieBreak(fs, "tiebreak", "location preferred between candidates of equal cost: coarser or finer"),
		memory:         schedflag.MemoryMode(fs, "memory", "memory accesses charged the machine balance: cache-boundary or uniform"),
		workers:        fs.Int("workers", def.Workers, "number of goroutines evaluating candidates"),
		factors:        fs.Int("factors", def.MaxFactorCandidates, "number of tile factors considered per dimension"),
		maxBufferBytes: fs.Int64("max_buffer_bytes", 0, "size of the largest buffer a stage can allocate (0 for unlimited)"),
		report:         fs.Bool("report", false, "print a report of the schedule"),
		digest:         fs.Bool("digest", false, "print the digest of the schedule"),
		trace:          fs.Bool("trace", false, "print the cost of every candidate"),
	}
}

func (cfg *config) options(w io.Writer) []options.Option {
	opts := []options.Option{
		*cfg.tieBreak,
		options.MemoryMode(*cfg.memory),
		options.Workers(*cfg.workers),
		options.MaxFactorCandidates(*cfg.factors),
		options.MaxBufferBytes(*cfg.maxBufferBytes),
	}
	if *cfg.trace {
		opts = append(opts, options.WithTrace(&trace.Writer{W: w}))
	}
	return opts
}

func run(w io.Writer, cfg *config, path string) error {
	p, err := parser.ParseFile(token.NewFileSet(), path)
	if err != nil {
		return err
	}
	if err := schedflag.SetParamEstimates(p, *cfg.params); err != nil {
		return err
	}
	res, err := api.Generate(p, *cfg.machine, cfg.options(w)...)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, res.Text); err != nil {
		return err
	}
	if *cfg.report {
		report, err := res.Report()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "\n%s", report); err != nil {
			return err
		}
	}
	if *cfg.digest {
		digest, err := res.Digest()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, digest); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	klog.InitFlags(nil)
	cfg := newConfig(flag.CommandLine)
	flag.Parse()
	if flag.NArg() != 1 {
		klog.Exitf("usage: %s [flags] <pipeline file>", os.Args[0])
	}
	if err := run(os.Stdout, cfg, flag.Arg(0)); err != nil {
		if fmterr.IsInternal(err) {
			klog.Exitf("%+v", err)
		}
		klog.Exit(err)
	}
}
