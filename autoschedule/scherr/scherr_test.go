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

package scherr_test

import (
	"testing"

	"github.com/gx-org/autosched/autoschedule/scherr"
	"github.com/pkg/errors"
)

func TestErrorsAs(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{
			err:  &scherr.PrescheduledInputError{Stages: []string{"a", "b"}},
			want: "cannot schedule a pipeline with manual schedules: a, b already scheduled",
		},
		{
			err:  &scherr.CyclicPipelineError{Cycle: []string{"a", "b", "a"}},
			want: "cyclic pipeline: a -> b -> a",
		},
		{
			err:  &scherr.UnboundedRegionError{Stage: "gather", Producer: "lut", Dim: 0},
			want: "cannot bound the region of lut read by gather along dimension 0",
		},
		{
			err:  &scherr.NoFeasibleScheduleError{Stage: "f", Reason: "buffer too large"},
			want: "no feasible schedule for f: buffer too large",
		},
		{
			err:  &scherr.AlreadyScheduledError{Stages: []string{"f"}},
			want: "schedule already applied to f: rebuild the graph before scheduling again",
		},
	}
	for ti, test := range tests {
		wrapped := errors.Wrapf(test.err, "pipeline %d", ti)
		if got := test.err.Error(); got != test.want {
			t.Errorf("test %d: got %q but want %q", ti, got, test.want)
		}
		var unbounded *scherr.UnboundedRegionError
		_, isUnbounded := test.err.(*scherr.UnboundedRegionError)
		if errors.As(wrapped, &unbounded) != isUnbounded {
			t.Errorf("test %d: errors.As does not match %T", ti, test.err)
		}
	}
}
