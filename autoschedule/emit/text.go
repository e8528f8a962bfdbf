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

// Package emit turns a schedule into native scheduling directives and text.
package emit

import (
	"fmt"
	"io"
	"strings"

	"github.com/gx-org/autosched/autoschedule/graph"
	"github.com/gx-org/autosched/autoschedule/search"
	"github.com/gx-org/autosched/base/stringseq"
	"github.com/pkg/errors"
	"golang.org/x/mod/sumdb/dirhash"
)

// Text returns the schedule with one line per stage, in decision order:
//
//	name: root tile(x=1000, y=25) vectorize(x, 8) parallel(y, 40)
func Text(s *search.Schedule) string {
	var b strings.Builder
	for _, d := range s.Decisions() {
		b.WriteString(Line(s.Graph().Node(d.ID), d))
		b.WriteString("\n")
	}
	return b.String()
}

// Line returns the text of the decision of a stage.
func Line(n *graph.Node, d *search.Decision) string {
	args := n.Func.Args()
	tile, vector, parallel := "-", "-", "-"
	if d.Materialized() && len(d.Tiles) > 0 {
		tile = stringseq.JoinIndexed(d.Tiles, func(i int, t int64) string {
			return fmt.Sprintf("%s=%d", args[i], t)
		}, ", ")
	}
	if d.VectorDim >= 0 && d.VectorWidth > 0 {
		vector = fmt.Sprintf("%s, %d", args[d.VectorDim], d.VectorWidth)
	}
	if d.ParallelDim >= 0 {
		parallel = fmt.Sprintf("%s, %d", args[d.ParallelDim], d.ParallelFactor)
	}
	return fmt.Sprintf("%s: %s tile(%s) vectorize(%s) parallel(%s)", d.Stage, d.Location, tile, vector, parallel)
}

const digestFile = "schedule.txt"

// Digest returns a go.sum style digest of the text of a schedule.
func Digest(text string) (string, error) {
	h, err := dirhash.Hash1([]string{digestFile}, func(name string) (io.ReadCloser, error) {
		if name != digestFile {
			return nil, errors.Errorf("unexpected file %s", name)
		}
		return io.NopCloser(strings.NewReader(text)), nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "cannot compute the digest of the schedule")
	}
	return h, nil
}
