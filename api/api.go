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

// Package api schedules a pipeline for a target machine.
package api

import (
	"github.com/gx-org/autosched/api/options"
	"github.com/gx-org/autosched/autoschedule/cost"
	"github.com/gx-org/autosched/autoschedule/emit"
	"github.com/gx-org/autosched/autoschedule/graph"
	"github.com/gx-org/autosched/autoschedule/region"
	"github.com/gx-org/autosched/autoschedule/search"
	"github.com/gx-org/autosched/build/ir"
	"k8s.io/klog/v2"
)

// Result of scheduling a pipeline.
type Result struct {
	// Graph of the live stages of the pipeline.
	Graph *graph.Graph
	// Schedule is the decision of every live stage.
	Schedule *search.Schedule
	// Text is the schedule in text form, one line per stage.
	Text string
}

// Report returns a human readable report of the schedule.
func (r *Result) Report() (string, error) {
	return emit.Report(r.Schedule)
}

// Digest returns a digest of the text of the schedule.
func (r *Result) Digest() (string, error) {
	return emit.Digest(r.Text)
}

// Generate derives a schedule for the funcs of a pipeline and applies it.
//
// No func is modified if an error is returned.
func Generate(p *ir.Pipeline, mp cost.MachineParams, opts ...options.Option) (*Result, error) {
	if err := mp.Validate(); err != nil {
		return nil, err
	}
	o, err := options.New(opts...)
	if err != nil {
		return nil, err
	}
	g, err := graph.Build(p)
	if err != nil {
		return nil, err
	}
	estimates, err := region.Estimate(g)
	if err != nil {
		return nil, err
	}
	model := cost.NewModel(g, mp, o.Memory)
	s, err := search.Run(g, estimates, model, o)
	if err != nil {
		return nil, err
	}
	if err := emit.Apply(s); err != nil {
		return nil, err
	}
	klog.V(1).Infof("api: scheduled %d stages with %d region inferences: total cost %s",
		len(s.Decisions()), model.Regions().Size(), s.TotalCost())
	return &Result{Graph: g, Schedule: s, Text: emit.Text(s)}, nil
}
