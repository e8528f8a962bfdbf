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

// Package scope provides lexical scopes mapping names to values,
// for example the intervals of the variables bound by enclosing lets.
package scope

import (
	"fmt"
	"strings"

	"github.com/gx-org/autosched/base/ordered"
)

type (
	// Scope provides a set of values that can be found given their name.
	Scope[V any] interface {
		Find(string) (V, bool)
	}

	// RWScope stores key,value pairs local to a scope.
	// A value is retrieved from its key by querying the scope and,
	// if not found, its parents recursively.
	RWScope[V any] struct {
		parent Scope[V]
		local  *ordered.Map[string, V]
	}
)

var _ Scope[any] = (*RWScope[any])(nil)

// NewScope returns a new scope given a parent, which can be nil.
func NewScope[V any](parent Scope[V]) *RWScope[V] {
	return &RWScope[V]{
		parent: parent,
		local:  ordered.NewMap[string, V](),
	}
}

// NewChild returns a new scope with s as its parent.
func (s *RWScope[V]) NewChild() *RWScope[V] {
	return NewScope[V](s)
}

// Define maps `key` to `value` in the local scope, shadowing the parents.
func (s *RWScope[V]) Define(k string, v V) {
	s.local.Store(k, v)
}

// Find a key in the scope and its parents.
func (s *RWScope[V]) Find(key string) (value V, ok bool) {
	if value, ok = s.local.Load(key); ok || s.parent == nil {
		return
	}
	return s.parent.Find(key)
}

// items returns the items of the scope merged with the items of its parents.
// Shadowed values are replaced by the innermost value.
func (s *RWScope[V]) items() *ordered.Map[string, V] {
	all := ordered.NewMap[string, V]()
	if p, ok := s.parent.(*RWScope[V]); ok {
		all = p.items()
	}
	for k, v := range s.local.Iter() {
		all.Store(k, v)
	}
	return all
}

// String representation of the scope.
func (s *RWScope[V]) String() string {
	var kvs []string
	for k, v := range s.items().Iter() {
		kvs = append(kvs, fmt.Sprintf("%s: %v", k, v))
	}
	if len(kvs) == 0 {
		return "empty"
	}
	return strings.Join(kvs, "\n")
}
