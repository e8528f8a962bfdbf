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

// Package trace observes the candidates evaluated by a scheduling run.
package trace

import (
	"fmt"
	"io"

	"github.com/gx-org/autosched/autoschedule/cost"
)

// Callback is called for every candidate of every stage,
// in the order the candidates are reduced.
type Callback interface {
	// Candidate reports the cost of a candidate location of a stage.
	// reason is not empty if the candidate is infeasible.
	Candidate(stage, location string, est cost.Estimate, reason string) error
	// Decision reports the location chosen for a stage.
	Decision(stage, location string, est cost.Estimate) error
}

// Writer writes the candidates and decisions to a writer, one per line.
type Writer struct {
	W io.Writer
}

var _ Callback = (*Writer)(nil)

// Candidate writes a candidate.
func (w *Writer) Candidate(stage, location string, est cost.Estimate, reason string) error {
	if reason != "" {
		_, err := fmt.Fprintf(w.W, "  %s %s: infeasible: %s\n", stage, location, reason)
		return err
	}
	_, err := fmt.Fprintf(w.W, "  %s %s: %s\n", stage, location, est)
	return err
}

// Decision writes a decision.
func (w *Writer) Decision(stage, location string, est cost.Estimate) error {
	_, err := fmt.Fprintf(w.W, "%s -> %s: %s\n", stage, location, est)
	return err
}
