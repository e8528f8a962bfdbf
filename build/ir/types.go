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

package ir

import "github.com/gx-org/backend/dtype"

// DefaultIndexType is the data type of index variables.
const DefaultIndexType = dtype.Int64

// TypeFromString returns a data type given its name.
// It returns dtype.Invalid if the name is not a supported data type.
func TypeFromString(ident string) dtype.DataType {
	switch ident {
	case "bool":
		return dtype.Bool
	case "bfloat16":
		return dtype.Bfloat16
	case "float32":
		return dtype.Float32
	case "float64":
		return dtype.Float64
	case "int32":
		return dtype.Int32
	case "int64":
		return dtype.Int64
	case "uint32":
		return dtype.Uint32
	case "uint64":
		return dtype.Uint64
	default:
		return dtype.Invalid
	}
}

// TypeString returns the name of a data type as accepted by TypeFromString.
func TypeString(dt dtype.DataType) string {
	switch dt {
	case dtype.Bool:
		return "bool"
	case dtype.Bfloat16:
		return "bfloat16"
	case dtype.Float32:
		return "float32"
	case dtype.Float64:
		return "float64"
	case dtype.Int32:
		return "int32"
	case dtype.Int64:
		return "int64"
	case dtype.Uint32:
		return "uint32"
	case dtype.Uint64:
		return "uint64"
	default:
		return "invalid"
	}
}

// ElemBytes returns the size in bytes of an element of a given data type.
// Index variables (dtype.Invalid) are stored as DefaultIndexType.
func ElemBytes(dt dtype.DataType) int {
	if dt == dtype.Invalid {
		dt = DefaultIndexType
	}
	return dtype.Sizeof(dt)
}

// IsBool returns true if values of the type are either 0 or 1.
func IsBool(dt dtype.DataType) bool {
	return dt == dtype.Bool
}

// IsFloat returns true if the data type is a floating point type.
func IsFloat(dt dtype.DataType) bool {
	switch dt {
	case dtype.Bfloat16, dtype.Float32, dtype.Float64:
		return true
	}
	return false
}
