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
// Package tmpl provides helper functions for Go templates.
package tmpl

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// Execute runs a template on some data and returns the result.
func Execute(tmpl *template.Template, data any) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Errorf("cannot execute template %s: %v", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// IterateTmpl runs a template over a slice of object and concatenates the results.
func IterateTmpl[T any](objs []T, tmpl *template.Template) (string, error) {
	var buf strings.Builder
	for i, obj := range objs {
		if err := tmpl.Execute(&buf, obj); err != nil {
			return "", errors.Errorf("cannot execute template %s on element %d: %v", tmpl.Name(), i, err)
		}
	}
	return buf.String(), nil
}
