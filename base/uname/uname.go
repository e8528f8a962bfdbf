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

// Package uname provides unique names for loop variables.
package uname

import "fmt"

// Unique generates names that do not clash with reserved or previously generated names.
type Unique struct {
	taken map[string]bool
	next  map[string]int
}

// New returns a name generator with a set of reserved names.
func New(reserved ...string) *Unique {
	n := &Unique{
		taken: make(map[string]bool),
		next:  make(map[string]int),
	}
	for _, name := range reserved {
		n.taken[name] = true
	}
	return n
}

// Name returns a unique name given a desired base name.
// If the base name is available, it is returned directly. Else, a numerical suffix is appended.
func (n *Unique) Name(root string) string {
	if !n.taken[root] {
		n.taken[root] = true
		return root
	}
	for {
		n.next[root]++
		name := fmt.Sprintf("%s%d", root, n.next[root])
		if !n.taken[name] {
			n.taken[name] = true
			return name
		}
	}
}

// Suffixed returns a unique name for a variable derived from another one, like
// the inner loop of a split.
func (n *Unique) Suffixed(base, suffix string) string {
	return n.Name(base + "_" + suffix)
}
