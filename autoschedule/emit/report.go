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

package emit

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/gx-org/autosched/autoschedule/search"
	gxfmt "github.com/gx-org/autosched/base/fmt"
	"github.com/gx-org/autosched/base/iter"
	"github.com/gx-org/autosched/base/stringseq"
	"github.com/gx-org/autosched/base/tmpl"
)

var (
	headerTmpl = template.Must(template.New("header").Parse(`machine: {{.Machine}}
stages: {{.Stages}}
total cost: {{.Total}}

`))
	nestTmpl = template.Must(template.New("nest").Parse(`{{.Stage}}:{{range .Loops}} {{.}}{{end}}
`))
)

func tiles(d *search.Decision) string {
	if !d.Materialized() {
		return "-"
	}
	return stringseq.JoinFunc(slices.Values(d.Tiles), func(t int64) string {
		return fmt.Sprint(t)
	}, "x")
}

// Report returns a human readable report of a schedule:
// the location, the buffer size and the cost of every stage
// followed by the loop nests of the materialized stages.
func Report(s *search.Schedule) (string, error) {
	header, err := tmpl.Execute(headerTmpl, struct {
		Machine string
		Stages  int
		Total   string
	}{
		Machine: s.Params().String(),
		Stages:  len(s.Decisions()),
		Total:   s.TotalCost().String(),
	})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(header)
	rows := [][]string{{"STAGE", "LOCATION", "TILES", "BUFFER", "EXECUTIONS", "COST"}}
	for _, d := range s.Decisions() {
		buffer, execs := "-", "-"
		if d.Materialized() {
			buffer = humanize.IBytes(uint64(d.BufferBytes))
			execs = humanize.Comma(d.Context.Execs)
		}
		rows = append(rows, []string{
			d.Stage,
			d.Location.String(),
			tiles(d),
			buffer,
			execs,
			humanize.Commaf(math.Round(d.Cost.Total())),
		})
	}
	b.WriteString(gxfmt.Columns(rows))
	materialized := slices.Collect(iter.Filter((*search.Decision).Materialized, s.Decisions()))
	nests, err := tmpl.IterateTmpl(materialized, nestTmpl)
	if err != nil {
		return "", err
	}
	if nests != "" {
		b.WriteString("\nloop nests (outermost first):\n")
		b.WriteString(nests)
	}
	return b.String(), nil
}
