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

// Package diff defines the substitution record produced by the scanner and
// consumed by the replacer, plus the position-ordered heap between them.
package diff

import "fmt"

// Diff describes one substitution: Remove bytes starting at the absolute
// stream offset Pos are replaced by Add.
type Diff struct {
	Pos    int64
	Remove int
	Add    string
}

// End is the offset just past the removed span.
func (d Diff) End() int64 {
	return d.Pos + int64(d.Remove)
}

// Overlaps reports whether the removed spans of d and o intersect.
func (d Diff) Overlaps(o Diff) bool {
	return d.Pos < o.End() && o.Pos < d.End()
}

func (d Diff) String() string {
	return fmt.Sprintf("@%d -%d +%q", d.Pos, d.Remove, d.Add)
}

// Source yields diffs in ascending Pos order. Next returns ok=false with a
// nil error once the sequence is exhausted.
type Source interface {
	Next() (d Diff, ok bool, err error)
}

// SliceSource serves a fixed, already ordered list of diffs.
type SliceSource struct {
	diffs []Diff
}

func NewSliceSource(diffs ...Diff) *SliceSource {
	return &SliceSource{diffs: diffs}
}

func (s *SliceSource) Next() (Diff, bool, error) {
	if len(s.diffs) == 0 {
		return Diff{}, false, nil
	}
	d := s.diffs[0]
	s.diffs = s.diffs[1:]
	return d, true, nil
}

// Drain pulls every remaining diff out of src.
func Drain(src Source) ([]Diff, error) {
	var out []Diff
	for {
		d, ok, err := src.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, d)
	}
}
