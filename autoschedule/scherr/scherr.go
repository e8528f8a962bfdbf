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

// Package scherr defines the errors terminating a scheduling run.
//
// All errors carry the names of the stages involved.
// Callers match them with errors.As.
package scherr

import (
	"fmt"
	"strings"
)

// PrescheduledInputError is returned when funcs of a pipeline already carry
// a schedule or a specialization.
type PrescheduledInputError struct {
	Stages []string
}

func (err *PrescheduledInputError) Error() string {
	return fmt.Sprintf("cannot schedule a pipeline with manual schedules: %s already scheduled", strings.Join(err.Stages, ", "))
}

// CyclicPipelineError is returned when funcs depend on each other.
// The cycle starts and ends with the same stage.
type CyclicPipelineError struct {
	Cycle []string
}

func (err *CyclicPipelineError) Error() string {
	return fmt.Sprintf("cyclic pipeline: %s", strings.Join(err.Cycle, " -> "))
}

// UnboundedRegionError is returned when the region a stage reads from
// a producer has no finite bound along a dimension.
type UnboundedRegionError struct {
	Stage    string
	Producer string
	Dim      int
}

func (err *UnboundedRegionError) Error() string {
	return fmt.Sprintf("cannot bound the region of %s read by %s along dimension %d", err.Producer, err.Stage, err.Dim)
}

// NoFeasibleScheduleError is returned when no schedule candidate
// of a stage is feasible.
type NoFeasibleScheduleError struct {
	Stage  string
	Reason string
}

func (err *NoFeasibleScheduleError) Error() string {
	if err.Reason == "" {
		return fmt.Sprintf("no feasible schedule for %s", err.Stage)
	}
	return fmt.Sprintf("no feasible schedule for %s: %s", err.Stage, err.Reason)
}

// AlreadyScheduledError is returned when a schedule is applied twice
// to the same pipeline graph.
type AlreadyScheduledError struct {
	Stages []string
}

func (err *AlreadyScheduledError) Error() string {
	return fmt.Sprintf("schedule already applied to %s: rebuild the graph before scheduling again", strings.Join(err.Stages, ", "))
}
