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

package options_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/autosched/api/options"
	"github.com/gx-org/autosched/autoschedule/cost"
)

func TestNew(t *testing.T) {
	got, err := options.New(
		options.PreferFiner,
		options.Workers(3),
		options.MaxFactorCandidates(4),
		options.MaxBufferBytes(1<<20),
		options.MemoryMode(cost.MemoryUniform),
	)
	if err != nil {
		t.Fatal(err)
	}
	want := options.Options{
		TieBreak:            options.PreferFiner,
		Workers:             3,
		MaxFactorCandidates: 4,
		Memory:              cost.MemoryUniform,
		MaxBufferBytes:      1 << 20,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected options (-want +got):\n%s", diff)
	}
}

func TestInvalid(t *testing.T) {
	tests := []options.Option{
		options.Workers(0),
		options.MaxFactorCandidates(0),
		options.MaxBufferBytes(-1),
		options.TieBreak(7),
	}
	for _, opt := range tests {
		if _, err := options.New(opt); err == nil {
			t.Errorf("option %#v: expected an error", opt)
		}
	}
}

func TestParse(t *testing.T) {
	for _, tb := range []options.TieBreak{options.PreferCoarser, options.PreferFiner} {
		got, err := options.ParseTieBreak(tb.String())
		if err != nil || got != tb {
			t.Errorf("ParseTieBreak(%q) = %v, %v", tb.String(), got, err)
		}
	}
	for _, m := range []cost.MemoryMode{cost.MemoryCacheBoundary, cost.MemoryUniform} {
		got, err := options.ParseMemoryMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMemoryMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := options.ParseTieBreak("random"); err == nil {
		t.Errorf("expected an error")
	}
}
