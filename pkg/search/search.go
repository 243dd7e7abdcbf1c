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

// Package search implements a bounded-window literal scanner that turns a
// byte stream into an ordered sequence of diffs.
//
// A single pattern is plain substring replacement. Several patterns form a
// block: each later part must start on the line right after the previous
// part ended, at the same column as the first part, and no more than
// ColumnMax bytes after the previous part's end. Every part of a block is
// replaced on its own.
package search

import (
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/ved/pkg/diff"
	"github.com/walteh/ved/pkg/errs"
)

const (
	// SearchMax is the scan window capacity in bytes.
	SearchMax = 4096
	// ColumnMax bounds the distance between consecutive block parts.
	ColumnMax = 120

	maxEmptyReads = 100
)

// Bounds returns the smallest and largest span a match of patterns can
// occupy.
func Bounds(patterns []string) (minLen, maxLen int) {
	for _, p := range patterns {
		minLen += len(p)
	}
	maxLen = minLen
	if len(patterns) > 1 {
		minLen += len(patterns) - 1
		maxLen += (len(patterns) - 1) * ColumnMax
	}
	return minLen, maxLen
}

// Validate reports ErrBadPattern for a sequence the scanner cannot serve.
func Validate(patterns []string) error {
	if len(patterns) == 0 {
		return errors.Errorf("empty pattern sequence: %w", errs.ErrBadPattern)
	}
	for i, p := range patterns {
		if p == "" {
			return errors.Errorf("pattern %d is empty: %w", i, errs.ErrBadPattern)
		}
	}
	if _, maxLen := Bounds(patterns); maxLen > SearchMax {
		return errors.Errorf("widest match spans %d bytes, window holds %d: %w", maxLen, SearchMax, errs.ErrBadPattern)
	}
	return nil
}

// BufSearcher scans src once, front to back, and implements diff.Source.
type BufSearcher struct {
	patterns [][]byte
	add      string
	src      io.Reader
	logger   *zerolog.Logger

	buf      []byte
	readHead int
	dropHead int
	// pos is the absolute offset of buf[0].
	pos int64
	// column of buf[dropHead] on its line.
	lastLineStart int

	minLen int
	maxLen int

	eof  bool
	done bool
	err  error

	pending *diff.Heap
	// later block parts already handed to pending; nothing may match over them.
	claimed []diff.Diff
}

var _ diff.Source = (*BufSearcher)(nil)

// New builds a searcher for patterns over src. Every part of a match is
// replaced by replacement.
func New(ctx context.Context, patterns []string, replacement string, src io.Reader) (*BufSearcher, error) {
	if err := Validate(patterns); err != nil {
		return nil, err
	}

	minLen, maxLen := Bounds(patterns)
	parts := make([][]byte, len(patterns))
	for i, p := range patterns {
		parts[i] = []byte(p)
	}

	return &BufSearcher{
		patterns: parts,
		add:      replacement,
		src:      src,
		logger:   zerolog.Ctx(ctx),
		buf:      make([]byte, SearchMax),
		minLen:   minLen,
		maxLen:   maxLen,
		pending:  diff.NewHeap(),
	}, nil
}

// Next returns the next diff in ascending position order.
func (s *BufSearcher) Next() (diff.Diff, bool, error) {
	for {
		if d, ok := s.pending.Peek(); ok && (s.done || d.Pos < s.scanPos()) {
			s.pending.Pop()
			s.logger.Trace().Stringer("diff", d).Msg("emitting diff")
			return d, true, nil
		}

		if s.done {
			return diff.Diff{}, false, nil
		}

		if s.err != nil {
			return diff.Diff{}, false, s.err
		}

		if err := s.fill(); err != nil {
			s.err = err
			return diff.Diff{}, false, err
		}

		if s.readHead-s.dropHead < s.minLen {
			// fill only stops short of maxLen at end of stream
			s.done = true
			continue
		}

		s.step()
	}
}

func (s *BufSearcher) scanPos() int64 {
	return s.pos + int64(s.dropHead)
}

// step makes progress from dropHead: either one full group is matched or
// the cursor moves to the next candidate start.
func (s *BufSearcher) step() {
	first := s.patterns[0]
	window := s.buf[s.dropHead:s.readHead]

	idx := bytes.Index(window, first)
	if idx < 0 {
		// keep the tail that could still begin a match
		s.advance(max(1, len(window)-len(first)+1))
		return
	}
	if idx > 0 {
		s.advance(idx)
		return
	}

	group, ok := s.matchGroup()
	if !ok {
		s.advance(1)
		return
	}

	batch := diff.NewHeap(group...)
	s.pending.MergeWith(batch)
	s.claimed = append(s.claimed, group[1:]...)
	s.advance(len(first))
	s.pruneClaimed()
}

// matchGroup tries every part of the sequence with the first part at
// dropHead.
func (s *BufSearcher) matchGroup() ([]diff.Diff, bool) {
	start := s.dropHead
	first := s.patterns[0]

	d := diff.Diff{Pos: s.pos + int64(start), Remove: len(first), Add: s.add}
	if s.isClaimed(d) {
		return nil, false
	}
	group := []diff.Diff{d}

	col := s.lastLineStart
	end := start + len(first)

	for _, part := range s.patterns[1:] {
		nl := bytes.IndexByte(s.buf[end:s.readHead], '\n')
		if nl < 0 {
			return nil, false
		}
		lineStart := end + nl + 1
		candidate := lineStart + col

		if candidate-end > ColumnMax || candidate+len(part) > s.readHead {
			return nil, false
		}
		if bytes.IndexByte(s.buf[lineStart:candidate], '\n') >= 0 {
			// next line is shorter than the alignment column
			return nil, false
		}
		if !bytes.HasPrefix(s.buf[candidate:s.readHead], part) {
			return nil, false
		}

		d := diff.Diff{Pos: s.pos + int64(candidate), Remove: len(part), Add: s.add}
		if s.isClaimed(d) {
			return nil, false
		}
		group = append(group, d)
		end = candidate + len(part)
	}

	return group, true
}

func (s *BufSearcher) isClaimed(d diff.Diff) bool {
	for _, c := range s.claimed {
		if c.Overlaps(d) {
			return true
		}
	}
	return false
}

func (s *BufSearcher) pruneClaimed() {
	at := s.scanPos()
	kept := s.claimed[:0]
	for _, c := range s.claimed {
		if c.End() > at {
			kept = append(kept, c)
		}
	}
	s.claimed = kept
}

func (s *BufSearcher) advance(n int) {
	skipped := s.buf[s.dropHead : s.dropHead+n]
	if nl := bytes.LastIndexByte(skipped, '\n'); nl >= 0 {
		s.lastLineStart = n - nl - 1
	} else {
		s.lastLineStart += n
	}
	s.dropHead += n
	if len(s.claimed) > 0 {
		s.pruneClaimed()
	}
}

// fill reads until maxLen bytes are buffered past dropHead or the source is
// exhausted.
func (s *BufSearcher) fill() error {
	empty := 0
	for !s.eof && s.readHead-s.dropHead < s.maxLen {
		missing := s.maxLen - (s.readHead - s.dropHead)
		if s.readHead+missing > len(s.buf) {
			s.compact()
		}

		n, err := s.src.Read(s.buf[s.readHead:])
		s.readHead += n

		if errors.Is(err, io.EOF) {
			s.eof = true
			break
		}
		if err != nil {
			return errs.NewIOError("read", "", err)
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return errs.NewIOError("read", "", io.ErrNoProgress)
			}
			continue
		}
		empty = 0
	}
	return nil
}

func (s *BufSearcher) compact() {
	kept := copy(s.buf, s.buf[s.dropHead:s.readHead])
	s.logger.Trace().
		Int64("offset", s.pos).
		Int("dropped", s.dropHead).
		Int("kept", kept).
		Msg("compacting scan window")
	s.pos += int64(s.dropHead)
	s.readHead = kept
	s.dropHead = 0
}
