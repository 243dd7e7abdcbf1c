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

// Package tee splits one reader into two independently paced cursors.
//
// Both cursors yield the full source stream. Bytes read from the source by
// the leading cursor are kept only until the trailing cursor has consumed
// them, so memory follows the distance between the cursors rather than the
// stream length.
package tee

import (
	"io"
	"os"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/ved/pkg/errs"
)

const skipChunk = 8192

type shared struct {
	// mu guards everything below; it is never held across a source read.
	mu sync.Mutex
	// readMu serializes source reads.
	readMu sync.Mutex

	src io.Reader
	// sticky source error, io.EOF included
	srcErr error

	buf    []byte
	offset int64
	pos    [2]int64
	active [2]bool
}

// Cursor is one side of a split. It is safe for concurrent use with its
// sibling.
type Cursor struct {
	s  *shared
	id int
}

var _ io.ReadSeekCloser = (*Cursor)(nil)

// New splits src into two cursors. Both must be closed to release the
// shared buffer early; otherwise it is released once both reach the end.
func New(src io.Reader) (*Cursor, *Cursor) {
	s := &shared{src: src, active: [2]bool{true, true}}
	return &Cursor{s: s, id: 0}, &Cursor{s: s, id: 1}
}

// Read serves buffered bytes when the sibling is ahead, otherwise reads
// the source directly into p.
func (c *Cursor) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	s := c.s
	s.mu.Lock()
	if n, done, err := c.readBufferedLocked(p); done {
		s.mu.Unlock()
		return n, err
	}
	s.mu.Unlock()

	s.readMu.Lock()
	defer s.readMu.Unlock()

	// the sibling may have pulled from the source while we waited
	s.mu.Lock()
	if n, done, err := c.readBufferedLocked(p); done {
		s.mu.Unlock()
		return n, err
	}
	s.mu.Unlock()

	n, err := s.src.Read(p)

	s.mu.Lock()
	defer s.mu.Unlock()

	if n > 0 {
		if s.active[1-c.id] {
			s.buf = append(s.buf, p[:n]...)
		}
		s.pos[c.id] += int64(n)
	}
	if err != nil {
		s.srcErr = err
	}
	s.cleanupLocked()

	return n, err
}

// readBufferedLocked answers a read without touching the source when it
// can. done is false when the caller has to go to the source.
func (c *Cursor) readBufferedLocked(p []byte) (n int, done bool, err error) {
	s := c.s
	if !s.active[c.id] {
		return 0, true, os.ErrClosed
	}

	if avail := s.availableLocked(c.id); avail > 0 {
		n = copy(p, s.buf[s.pos[c.id]-s.offset:])
		s.pos[c.id] += int64(n)
		s.cleanupLocked()
		return n, true, nil
	}

	if s.srcErr != nil {
		return 0, true, s.srcErr
	}

	return 0, false, nil
}

func (s *shared) availableLocked(id int) int64 {
	return s.offset + int64(len(s.buf)) - s.pos[id]
}

// cleanupLocked drops the buffer prefix every live cursor has passed.
func (s *shared) cleanupLocked() {
	var low int64
	switch {
	case s.active[0] && s.active[1]:
		low = min(s.pos[0], s.pos[1])
	case s.active[0]:
		low = s.pos[0]
	case s.active[1]:
		low = s.pos[1]
	default:
		low = max(s.pos[0], s.pos[1], s.offset+int64(len(s.buf)))
	}

	drop := low - s.offset
	if drop <= 0 {
		return
	}
	if drop >= int64(len(s.buf)) {
		s.buf = s.buf[:0]
	} else {
		s.buf = s.buf[drop:]
	}
	s.offset = low
}

// Skip moves the cursor forward n bytes. Buffered bytes are skipped without
// copying; the rest is read from the source so the sibling still sees it.
func (c *Cursor) Skip(n int64) (int64, error) {
	var (
		skipped int64
		scratch []byte
	)

	for skipped < n {
		c.s.mu.Lock()
		if !c.s.active[c.id] {
			c.s.mu.Unlock()
			return skipped, os.ErrClosed
		}
		if avail := c.s.availableLocked(c.id); avail > 0 {
			adv := min(avail, n-skipped)
			c.s.pos[c.id] += adv
			skipped += adv
			c.s.cleanupLocked()
			c.s.mu.Unlock()
			continue
		}
		c.s.mu.Unlock()

		if scratch == nil {
			scratch = make([]byte, min(n-skipped, skipChunk))
		}
		m, err := c.Read(scratch[:min(int64(len(scratch)), n-skipped)])
		skipped += int64(m)
		if err != nil {
			return skipped, err
		}
	}

	return skipped, nil
}

// Seek supports only non-negative io.SeekCurrent offsets. Seeking past the
// end of the stream leaves the cursor at the end and returns
// io.ErrUnexpectedEOF.
func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekCurrent {
		return 0, errors.Errorf("seek whence %d: %w", whence, errs.ErrUnsupported)
	}
	if offset < 0 {
		return 0, errors.Errorf("backward seek of %d bytes: %w", offset, errs.ErrUnsupported)
	}

	if _, err := c.Skip(offset); err != nil {
		if errors.Is(err, io.EOF) {
			return c.Position(), io.ErrUnexpectedEOF
		}
		return c.Position(), err
	}
	return c.Position(), nil
}

// Position is the absolute offset of the next byte this cursor reads.
func (c *Cursor) Position() int64 {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.pos[c.id]
}

// Buffered reports how many bytes the split currently holds.
func (c *Cursor) Buffered() int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return len(c.s.buf)
}

// Close releases the cursor. The shared buffer is trimmed as if this cursor
// had caught up with its sibling.
func (c *Cursor) Close() error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if !c.s.active[c.id] {
		return nil
	}
	c.s.active[c.id] = false
	c.s.cleanupLocked()
	if !c.s.active[1-c.id] {
		c.s.buf = nil
	}
	return nil
}
