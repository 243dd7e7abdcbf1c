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

// Package replace applies an ordered diff stream to the original bytes and
// rewrites files through a sibling temp file and an atomic rename.
package replace

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/ved/pkg/diff"
	"github.com/walteh/ved/pkg/errs"
)

// skipper is implemented by readers that can drop bytes without copying
// them, such as tee cursors.
type skipper interface {
	Skip(n int64) (int64, error)
}

// Replacer copies original to output, substituting each diff in place.
type Replacer struct {
	diffs    diff.Source
	original io.Reader
	output   io.Writer

	// pos is the offset in original that the next read starts at.
	pos   int64
	count int
	done  bool
}

func NewReplacer(diffs diff.Source, original io.Reader, output io.Writer) *Replacer {
	return &Replacer{
		diffs:    diffs,
		original: original,
		output:   output,
	}
}

// ReplaceNextDiff applies one diff. Once no diffs remain it copies the rest
// of original and reports false.
func (r *Replacer) ReplaceNextDiff() (bool, error) {
	if r.done {
		return false, nil
	}

	d, ok, err := r.diffs.Next()
	if err != nil {
		return false, err
	}

	if !ok {
		n, err := io.Copy(r.output, r.original)
		r.pos += n
		if err != nil {
			return false, errs.NewIOError("copy", "", err)
		}
		r.done = true
		return false, nil
	}

	if d.Pos < r.pos {
		return false, errors.Errorf("diff %s starts before output cursor %d", d, r.pos)
	}

	if gap := d.Pos - r.pos; gap > 0 {
		n, err := io.CopyN(r.output, r.original, gap)
		r.pos += n
		if err != nil {
			return false, errs.NewIOError("copy", "", unexpectedEOF(err))
		}
	}

	if err := r.skip(int64(d.Remove)); err != nil {
		return false, err
	}

	if _, err := io.WriteString(r.output, d.Add); err != nil {
		return false, errs.NewIOError("write", "", err)
	}

	r.count++
	return true, nil
}

func (r *Replacer) skip(n int64) error {
	var (
		skipped int64
		err     error
	)
	if s, ok := r.original.(skipper); ok {
		skipped, err = s.Skip(n)
	} else {
		skipped, err = io.CopyN(io.Discard, r.original, n)
	}
	r.pos += skipped

	if err == nil && skipped < n {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return errs.NewIOError("skip", "", unexpectedEOF(err))
	}
	return nil
}

// Run applies every diff and returns how many were applied.
func (r *Replacer) Run(ctx context.Context) (int, error) {
	for {
		more, err := r.ReplaceNextDiff()
		if err != nil {
			return r.count, err
		}
		if !more {
			break
		}
	}

	zerolog.Ctx(ctx).Debug().
		Int("replacements", r.count).
		Int64("bytes_read", r.pos).
		Msg("replacement stream finished")

	return r.count, nil
}

// Count is the number of diffs applied so far.
func (r *Replacer) Count() int {
	return r.count
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
