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

// Package sync provides typed concurrent data structures.
package sync

import "sync"

// Map is a typed wrapper around sync.Map.
type Map[K comparable, V any] struct {
	m sync.Map
}

// Store a key,value pair.
func (sm *Map[K, V]) Store(k K, v V) {
	sm.m.Store(k, v)
}

// Load returns the value stored for a key and whether the key was present.
func (sm *Map[K, V]) Load(k K) (v V, ok bool) {
	vAny, ok := sm.m.Load(k)
	if !ok {
		return
	}
	return vAny.(V), true
}

// LoadOrCompute returns the value stored for a key, computing and storing it first if absent.
// Concurrent callers may compute the value more than once but all observe the first stored one.
func (sm *Map[K, V]) LoadOrCompute(k K, f func() (V, error)) (V, error) {
	if v, ok := sm.Load(k); ok {
		return v, nil
	}
	v, err := f()
	if err != nil {
		return v, err
	}
	actual, _ := sm.m.LoadOrStore(k, v)
	return actual.(V), nil
}

// Size returns the number of elements in the map. This takes O(n) time.
func (sm *Map[K, V]) Size() (i int) {
	sm.m.Range(func(any, any) bool {
		i++
		return true
	})
	return
}
