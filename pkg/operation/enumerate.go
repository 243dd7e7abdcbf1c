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

package operation

import (
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/ved/pkg/errs"
)

// 🔍 Enumerator resolves a glob into an ordered path sequence. A malformed
// glob fails the call; errors met while walking are yielded as entries.
type Enumerator interface {
	Enumerate(glob string) (iter.Seq2[string, error], error)
}

// 🌐 GlobEnumerator walks the filesystem with doublestar syntax
type GlobEnumerator struct{}

var _ Enumerator = GlobEnumerator{}

// HasMeta reports whether glob contains any glob syntax.
func HasMeta(glob string) bool {
	return strings.ContainsAny(glob, `*?[{\`)
}

func (GlobEnumerator) Enumerate(glob string) (iter.Seq2[string, error], error) {
	if glob == "" {
		return nil, &errs.GlobError{Pattern: glob, Err: doublestar.ErrBadPattern}
	}

	clean := filepath.ToSlash(filepath.Clean(glob))
	if !doublestar.ValidatePathPattern(clean) {
		return nil, &errs.GlobError{Pattern: glob, Err: doublestar.ErrBadPattern}
	}

	// a literal path resolves to itself; whether it exists is the caller's concern
	if !HasMeta(clean) {
		return func(yield func(string, error) bool) {
			yield(filepath.FromSlash(clean), nil)
		}, nil
	}

	base, pattern := doublestar.SplitPattern(clean)
	return walkGlob(os.DirFS(base), base, pattern, glob), nil
}

// walkGlob matches every entry under fsys against pattern. An entry that
// cannot be read is yielded as a GlobError and the walk moves on to its
// siblings. Symlinked directories are yielded but not descended into.
func walkGlob(fsys fs.FS, base, pattern, glob string) iter.Seq2[string, error] {
	// without ** no match can sit deeper than the pattern has segments
	maxDepth := -1
	if !strings.Contains(pattern, "**") {
		maxDepth = strings.Count(pattern, "/") + 1
	}

	return func(yield func(string, error) bool) {
		_ = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == "." && errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				if !yield("", &errs.GlobError{Pattern: glob, Err: errors.Errorf("reading %s: %w", path.Join(base, p), err)}) {
					return fs.SkipAll
				}
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if p == "." {
				if pattern == "**" && !yield(filepath.FromSlash(base), nil) {
					return fs.SkipAll
				}
				return nil
			}

			if doublestar.MatchUnvalidated(pattern, p) && !yield(filepath.FromSlash(path.Join(base, p)), nil) {
				return fs.SkipAll
			}

			if d.IsDir() && maxDepth > 0 && strings.Count(p, "/")+1 >= maxDepth {
				return fs.SkipDir
			}
			return nil
		})
	}
}
