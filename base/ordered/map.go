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

// Package ordered provides data structures iterating in insertion order.
//
// The scheduler output must not depend on Go map iteration order,
// so every table that is ranged over to produce a result uses these types.
package ordered

import (
	"iter"
	"slices"
)

// Map is a map remembering the order in which keys were first stored.
type Map[K comparable, V any] struct {
	keys []K
	m    map[K]V
}

// NewMap returns a new ordered map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: make(map[K]V)}
}

// Store a key,value pair. Storing an existing key keeps its position.
func (m *Map[K, V]) Store(k K, v V) {
	if _, in := m.m[k]; !in {
		m.keys = append(m.keys, k)
	}
	m.m[k] = v
}

// Update replaces the value of k by f applied to the current value,
// or to the zero value if k is absent.
func (m *Map[K, V]) Update(k K, f func(V, bool) V) {
	v, ok := m.m[k]
	m.Store(k, f(v, ok))
}

// Load returns a value given a key.
func (m *Map[K, V]) Load(k K) (V, bool) {
	v, ok := m.m[k]
	return v, ok
}

// Has returns true if the key is in the map.
func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.m[k]
	return ok
}

// Iter ranges over the key,value pairs in insertion order.
func (m *Map[K, V]) Iter() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.m[k]) {
				return
			}
		}
	}
}

// Keys ranges over the keys in insertion order.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return slices.Values(m.keys)
}

// Values ranges over the values in key insertion order.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, k := range m.keys {
			if !yield(m.m[k]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy of the map.
func (m *Map[K, V]) Clone() *Map[K, V] {
	r := &Map[K, V]{
		keys: slices.Clone(m.keys),
		m:    make(map[K]V, len(m.m)),
	}
	for k, v := range m.m {
		r.m[k] = v
	}
	return r
}

// Size returns the number of elements in the map.
func (m *Map[K, V]) Size() int {
	return len(m.keys)
}
