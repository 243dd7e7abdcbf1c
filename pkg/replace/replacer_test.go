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

package replace

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/ved/pkg/diff"
	"github.com/walteh/ved/pkg/errs"
	"github.com/walteh/ved/pkg/search"
	"github.com/walteh/ved/pkg/tee"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

func replaceStream(t *testing.T, input string, patterns []string, replacement string) (string, int) {
	t.Helper()
	ctx := testContext(t)

	lead, trail := tee.New(iotest.HalfReader(strings.NewReader(input)))
	defer lead.Close()
	defer trail.Close()

	s, err := search.New(ctx, patterns, replacement, lead)
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := NewReplacer(s, trail, &out).Run(ctx)
	require.NoError(t, err)
	return out.String(), n
}

func TestReplacerStreams(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		patterns    []string
		replacement string
		want        string
		wantCount   int
	}{
		{
			name:        "two_occurrences",
			input:       "abba has sold more records than abba",
			patterns:    []string{"abba"},
			replacement: "toto",
			want:        "toto has sold more records than toto",
			wantCount:   2,
		},
		{
			name:        "block",
			input:       "abba\ntoto",
			patterns:    []string{"abba", "toto"},
			replacement: "queen",
			want:        "queen\nqueen",
			wantCount:   2,
		},
		{
			name:        "no_match_is_identity",
			input:       "nothing\nto\nreplace here\n",
			patterns:    []string{"abba"},
			replacement: "toto",
			want:        "nothing\nto\nreplace here\n",
		},
		{
			name:        "empty",
			patterns:    []string{"abba"},
			replacement: "toto",
		},
		{
			name:        "shrinking_replacement",
			input:       "xxhelloxxhelloxx",
			patterns:    []string{"hello"},
			replacement: "",
			want:        "xxxxxx",
			wantCount:   2,
		},
		{
			name:        "growing_replacement",
			input:       "a-a-a",
			patterns:    []string{"a"},
			replacement: "abc",
			want:        "abc-abc-abc",
			wantCount:   3,
		},
		{
			name:        "match_at_end",
			input:       "say hello",
			patterns:    []string{"hello"},
			replacement: "goodbye",
			want:        "say goodbye",
			wantCount:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := replaceStream(t, tt.input, tt.patterns, tt.replacement)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCount, n)
		})
	}
}

func TestReplacerLargeStream(t *testing.T) {
	line := "the quick brown fox jumps over the lazy dog\n"
	input := strings.Repeat(line, 5000)

	got, n := replaceStream(t, input, []string{"fox"}, "cat")
	assert.Equal(t, strings.ReplaceAll(input, "fox", "cat"), got)
	assert.Equal(t, 5000, n)
}

func TestReplacerPlainReader(t *testing.T) {
	src := diff.NewSliceSource(diff.Diff{Pos: 6, Remove: 5, Add: "there"})

	var out bytes.Buffer
	r := NewReplacer(src, strings.NewReader("hello world!"), &out)

	more, err := r.ReplaceNextDiff()
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, "hello there", out.String())

	more, err = r.ReplaceNextDiff()
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, "hello there!", out.String())
	assert.Equal(t, 1, r.Count())

	more, err = r.ReplaceNextDiff()
	require.NoError(t, err)
	assert.False(t, more, "finished replacer stays finished")
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

type failingSource struct{ err error }

func (s failingSource) Next() (diff.Diff, bool, error) { return diff.Diff{}, false, s.err }

func TestReplacerErrors(t *testing.T) {
	ctx := testContext(t)

	t.Run("removal_past_end", func(t *testing.T) {
		src := diff.NewSliceSource(diff.Diff{Pos: 3, Remove: 10, Add: "x"})
		_, err := NewReplacer(src, strings.NewReader("abcdef"), io.Discard).Run(ctx)
		require.Error(t, err)
		assert.True(t, errs.IsIO(err))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("gap_past_end", func(t *testing.T) {
		src := diff.NewSliceSource(diff.Diff{Pos: 30, Remove: 1, Add: "x"})
		_, err := NewReplacer(src, strings.NewReader("abcdef"), io.Discard).Run(ctx)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("removal_past_end_of_tee", func(t *testing.T) {
		lead, trail := tee.New(strings.NewReader("abcdef"))
		defer lead.Close()
		defer trail.Close()

		src := diff.NewSliceSource(diff.Diff{Pos: 2, Remove: 10, Add: "x"})
		_, err := NewReplacer(src, trail, io.Discard).Run(ctx)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("out_of_order", func(t *testing.T) {
		src := diff.NewSliceSource(
			diff.Diff{Pos: 2, Remove: 2, Add: "x"},
			diff.Diff{Pos: 3, Remove: 1, Add: "y"},
		)
		_, err := NewReplacer(src, strings.NewReader("abcdef"), io.Discard).Run(ctx)
		require.Error(t, err)
	})

	t.Run("source_error", func(t *testing.T) {
		boom := errors.New("scanner broke")
		n, err := NewReplacer(failingSource{err: boom}, strings.NewReader("abc"), io.Discard).Run(ctx)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, n)
	})

	t.Run("write_error", func(t *testing.T) {
		boom := errors.New("disk full")
		src := diff.NewSliceSource(diff.Diff{Pos: 0, Remove: 1, Add: "x"})
		_, err := NewReplacer(src, strings.NewReader("abc"), failingWriter{err: boom}).Run(ctx)
		assert.True(t, errs.IsIO(err))
		assert.ErrorIs(t, err, boom)
	})
}
