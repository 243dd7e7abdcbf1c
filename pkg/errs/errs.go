// Copyright 2025 walteh LLC
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

// Package errs holds the error taxonomy shared by the search, tee, replace
// and operation packages.
package errs

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrBadPattern is returned for an empty pattern sequence, an empty pattern,
	// or a sequence whose widest possible match does not fit the scan buffer.
	ErrBadPattern = errors.Base("bad pattern")

	// ErrUnsupported is returned by tee cursors for any seek other than a
	// non-negative relative one.
	ErrUnsupported = errors.Base("unsupported operation")
)

// 💾 IOError wraps any open/read/write/rename failure on a single path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// NewIOError wraps err. A nil err yields nil.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("IO error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("IO error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// 🛤️ PathError reports a path that cannot be used to build a temp file name.
type PathError struct {
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("cannot handle path: %q", e.Path)
}

// 🌐 GlobError reports a malformed glob expression or a failure while
// enumerating its matches.
type GlobError struct {
	Pattern string
	Err     error
}

func (e *GlobError) Error() string {
	return fmt.Sprintf("glob error: %q: %v", e.Pattern, e.Err)
}

func (e *GlobError) Unwrap() error {
	return e.Err
}

// 💥 WorkerPanicError carries the text of a panic recovered inside one
// dispatch unit.
type WorkerPanicError struct {
	Path    string
	Message string
}

const unprintablePanic = "a worker panicked with an unprintable payload"

// NewWorkerPanicError converts a recovered panic value to an error.
func NewWorkerPanicError(path string, value any) *WorkerPanicError {
	msg := unprintablePanic
	switch v := value.(type) {
	case string:
		msg = v
	case error:
		msg = v.Error()
	case fmt.Stringer:
		msg = v.String()
	}
	return &WorkerPanicError{Path: path, Message: msg}
}

func (e *WorkerPanicError) Error() string {
	return fmt.Sprintf("worker panic on %s: %s", e.Path, e.Message)
}

// IsIO reports whether err carries an IOError.
func IsIO(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}
