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

package tmpl_test

import (
	"testing"
	"text/template"

	"github.com/gx-org/autosched/base/tmpl"
)

type row struct {
	Name string
	Cost int
}

func TestIterate(t *testing.T) {
	rows := []row{{"a", 1}, {"b", 2}}
	tm := template.Must(template.New("row").Parse("{{.Name}}={{.Cost}};"))
	got, err := tmpl.Execute(tm, rows[1])
	if err != nil {
		t.Fatal(err)
	}
	if want := "b=2;"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
	got, err = tmpl.IterateTmpl(rows, tm)
	if err != nil {
		t.Fatal(err)
	}
	if want := "a=1;b=2;"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
	bad := template.Must(template.New("bad").Parse("{{.Missing}}"))
	if _, err := tmpl.IterateTmpl(rows, bad); err == nil {
		t.Errorf("expected an error for a missing field")
	}
}
