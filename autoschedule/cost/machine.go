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

package cost

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// MachineParams are the characteristics of the target machine.
type MachineParams struct {
	// Parallelism is the number of tasks the machine runs concurrently.
	Parallelism int
	// VectorWidth is the number of lanes of a vector operation.
	VectorWidth int
	// LastLevelCacheBytes is the size of the last level cache.
	LastLevelCacheBytes int64
	// Balance is the cost of a load missing the last level cache
	// relative to an arithmetic operation.
	Balance int
}

// DefaultMachineParams returns the parameters of a generic multicore machine.
func DefaultMachineParams() MachineParams {
	return MachineParams{
		Parallelism:         16,
		VectorWidth:         8,
		LastLevelCacheBytes: 16 << 20,
		Balance:             40,
	}
}

// Validate returns an error for every non-positive parameter.
func (mp MachineParams) Validate() error {
	var err error
	check := func(name string, v int64) {
		if v <= 0 {
			err = multierr.Append(err, errors.Errorf("invalid machine parameters: %s is %d but must be positive", name, v))
		}
	}
	check("parallelism", int64(mp.Parallelism))
	check("vector width", int64(mp.VectorWidth))
	check("last level cache size", mp.LastLevelCacheBytes)
	check("balance", int64(mp.Balance))
	return err
}

// String returns the parameters in the format accepted by ParseMachineParams.
func (mp MachineParams) String() string {
	cache := strconv.FormatInt(mp.LastLevelCacheBytes, 10)
	if mp.LastLevelCacheBytes > 0 {
		// Human sizes are rounded: only use them when they are exact.
		human := strings.ReplaceAll(humanize.IBytes(uint64(mp.LastLevelCacheBytes)), " ", "")
		if back, err := humanize.ParseBytes(human); err == nil && back == uint64(mp.LastLevelCacheBytes) {
			cache = human
		}
	}
	return fmt.Sprintf("%d,%d,%s,%d", mp.Parallelism, mp.VectorWidth, cache, mp.Balance)
}

// ParseMachineParams parses machine parameters written as
// PARALLELISM,VECTOR_WIDTH,CACHE_SIZE,BALANCE, for example 8,8,256KiB,40.
// The cache size accepts units like 256KiB or 16MB.
func ParseMachineParams(s string) (MachineParams, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return MachineParams{}, errors.Errorf("invalid machine parameters %q: got %d fields but want 4 (parallelism,vector width,cache size,balance)", s, len(fields))
	}
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	var mp MachineParams
	var err error
	atoi := func(name, f string) int {
		v, atoiErr := strconv.Atoi(f)
		if atoiErr != nil {
			err = multierr.Append(err, errors.Errorf("invalid %s %q", name, f))
		}
		return v
	}
	mp.Parallelism = atoi("parallelism", fields[0])
	mp.VectorWidth = atoi("vector width", fields[1])
	mp.Balance = atoi("balance", fields[3])
	cache, cacheErr := humanize.ParseBytes(fields[2])
	switch {
	case cacheErr != nil:
		err = multierr.Append(err, errors.Wrapf(cacheErr, "invalid cache size %q", fields[2]))
	case cache > math.MaxInt64:
		err = multierr.Append(err, errors.Errorf("cache size %q too large", fields[2]))
	default:
		mp.LastLevelCacheBytes = int64(cache)
	}
	if err != nil {
		return MachineParams{}, err
	}
	return mp, mp.Validate()
}
