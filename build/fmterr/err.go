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

// Package fmterr provides helpers to accumulate errors while parsing pipeline
// definitions and to format errors given a position in a file set.
package fmterr

import (
	"fmt"
	"go/token"

	"github.com/pkg/errors"
)

type (
	// ErrorWithPos is an error attached to a position in a pipeline definition.
	ErrorWithPos interface {
		error
		Position() token.Position
	}

	errorWithPos struct {
		fset *token.FileSet
		pos  token.Pos
		err  error
	}
)

// Position adds position information to an error.
func Position(fset *token.FileSet, pos token.Pos, err error) ErrorWithPos {
	return errorWithPos{fset: fset, pos: pos, err: err}
}

// Errorf returns a formatted error at a position.
func Errorf(fset *token.FileSet, pos token.Pos, format string, a ...any) error {
	return Position(fset, pos, errors.Errorf(format, a...))
}

// Error returns a string description of the error.
func (err errorWithPos) Error() string {
	if err.fset == nil || !err.pos.IsValid() {
		return err.err.Error()
	}
	return err.Position().String() + ": " + err.err.Error()
}

// Position of the error in its source.
func (err errorWithPos) Position() token.Position {
	if err.fset == nil {
		return token.Position{}
	}
	return err.fset.Position(err.pos)
}

// Unwrap the error.
func (err errorWithPos) Unwrap() error {
	return err.err
}

// Format writes the error into the state of the formatter.
func (err errorWithPos) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}
