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
package fmterr

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// internalError is a bug in the scheduler.
// Its stack trace is displayed in verbose formatting.
type internalError struct {
	err error
}

// Internal marks an error as internal.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var st stackTracer
	if !errors.As(err, &st) {
		err = errors.WithStack(err)
	}
	return internalError{err: err}
}

// Internalf returns a formatted internal error.
func Internalf(format string, a ...any) error {
	return Internal(errors.Errorf(format, a...))
}

// IsInternal returns true if an error, or an error it wraps, is internal.
func IsInternal(err error) bool {
	var internal internalError
	return errors.As(err, &internal)
}

func formatVerbose(err error, s fmt.State) {
	io.WriteString(s, err.Error())
	var st stackTracer
	if !errors.As(err, &st) {
		return
	}
	fmt.Fprintf(s, "\nError generated at:%+v\n", st.StackTrace())
}

func format(err error, s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			formatVerbose(err, s)
			return
		}
		io.WriteString(s, err.Error())
	case 's':
		io.WriteString(s, err.Error())
	case 'q':
		fmt.Fprintf(s, "%q", err.Error())
	}
}

func (err internalError) Unwrap() error {
	return err.err
}

func (err internalError) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}

func (err internalError) Error() string {
	return "autosched internal error. This is a bug in the scheduler. Please report it. Error:\n" + err.err.Error()
}
