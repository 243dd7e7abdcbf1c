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
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/ved/pkg/errs"
	"github.com/walteh/ved/pkg/replace"
	"github.com/walteh/ved/pkg/status"
	"github.com/walteh/ved/pkg/text"
)

func TestReplaceGlobScenario(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"file1":     "hello world",
		"sub/file2": "hello there, hello again",
		"file3":     "nothing here",
	})

	tracker := status.New(nil)
	runner, err := New(Options{Workers: 2, Reporter: tracker})
	require.NoError(t, err)

	outcomes, err := runner.ReplaceGlob(ctx, filepath.Join(dir, "**", "file*"), []string{"hello"}, "goodbye")
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	require.NoError(t, FirstError(outcomes))

	assert.Equal(t, "goodbye world", readFile(t, filepath.Join(dir, "file1")))
	assert.Equal(t, "goodbye there, goodbye again", readFile(t, filepath.Join(dir, "sub", "file2")))
	assert.Equal(t, "nothing here", readFile(t, filepath.Join(dir, "file3")))

	sum := tracker.Summary()
	assert.Equal(t, status.Summary{Total: 3, Rewritten: 2, Unchanged: 1, Replacements: 3}, sum)
}

func TestReplaceGlobDirectoriesAreSkipped(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.txt":     "abba",
		"sub/b.txt": "abba",
	})

	runner, err := New(Options{})
	require.NoError(t, err)

	outcomes, err := runner.ReplaceGlob(ctx, filepath.Join(dir, "**"), []string{"abba"}, "toto")
	require.NoError(t, err)
	require.NoError(t, FirstError(outcomes))

	byPath := map[string]Outcome{}
	for _, o := range outcomes {
		byPath[o.Path] = o
	}
	assert.True(t, byPath[dir].Skipped, "root dir should be skipped")
	assert.True(t, byPath[filepath.Join(dir, "sub")].Skipped, "sub dir should be skipped")
	assert.Equal(t, status.StatusRewritten, byPath[filepath.Join(dir, "a.txt")].Status())
	assert.Equal(t, "toto", readFile(t, filepath.Join(dir, "sub", "b.txt")))
}

func TestReplaceGlobAborts(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a": "abba"})

	runner, err := New(Options{})
	require.NoError(t, err)

	t.Run("bad_glob", func(t *testing.T) {
		outcomes, err := runner.ReplaceGlob(ctx, filepath.Join(dir, "[a"), []string{"abba"}, "x")
		require.Error(t, err)
		assert.Nil(t, outcomes)
		var globErr *errs.GlobError
		assert.True(t, errors.As(err, &globErr))
		assert.ErrorIs(t, err, doublestar.ErrBadPattern)
	})

	t.Run("bad_patterns", func(t *testing.T) {
		outcomes, err := runner.ReplaceGlob(ctx, filepath.Join(dir, "*"), []string{""}, "x")
		require.Error(t, err)
		assert.Nil(t, outcomes)
		assert.ErrorIs(t, err, errs.ErrBadPattern)
	})

	assert.Equal(t, "abba", readFile(t, filepath.Join(dir, "a")), "nothing is rewritten on abort")
}

func TestReplaceGlobPreservesOrder(t *testing.T) {
	ctx := testContext(t)
	walkErr := errors.New("permission denied")

	enum := &MockEnumerator{}
	enum.On("Enumerate", "anything").Return([]entry{
		{path: "z"},
		{path: "a"},
		{err: walkErr},
		{path: "m"},
	}, nil)

	var calls atomic.Int32
	runner, err := New(Options{
		Workers:    4,
		Enumerator: enum,
		Rewrite: func(ctx context.Context, path string, patterns []string, replacement string, opts replace.Options) (*replace.Result, error) {
			calls.Add(1)
			if path == "a" {
				// finish out of order
				time.Sleep(10 * time.Millisecond)
			}
			return &replace.Result{Path: path, Replacements: 1}, nil
		},
	})
	require.NoError(t, err)

	// paths do not exist, so stat the real files in a temp dir instead
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"z": "", "a": "", "m": ""})
	t.Chdir(dir)

	outcomes, err := runner.ReplaceGlob(ctx, "anything", []string{"x"}, "y")
	require.NoError(t, err)
	enum.AssertExpectations(t)

	require.Len(t, outcomes, 4)
	assert.Equal(t, "z", outcomes[0].Path)
	assert.Equal(t, "a", outcomes[1].Path)
	assert.ErrorIs(t, outcomes[2].Err, walkErr)
	assert.Equal(t, "m", outcomes[3].Path)
	assert.EqualValues(t, 3, calls.Load())
}

func TestReplaceGlobIsolatesFailures(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a": "abba",
		"b": "abba",
		"c": "abba",
	})

	boom := errors.New("disk full")
	runner, err := New(Options{
		Workers: 3,
		Rewrite: func(ctx context.Context, path string, patterns []string, replacement string, opts replace.Options) (*replace.Result, error) {
			switch filepath.Base(path) {
			case "b":
				return nil, boom
			case "c":
				panic("unexpected state")
			}
			return replace.RewriteFile(ctx, path, patterns, replacement, opts)
		},
	})
	require.NoError(t, err)

	outcomes, err := runner.ReplaceGlob(ctx, filepath.Join(dir, "*"), []string{"abba"}, "toto")
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, "toto", readFile(t, filepath.Join(dir, "a")))

	assert.ErrorIs(t, outcomes[1].Err, boom)
	assert.Equal(t, "abba", readFile(t, filepath.Join(dir, "b")))

	var panicErr *errs.WorkerPanicError
	require.True(t, errors.As(outcomes[2].Err, &panicErr), "expected a WorkerPanicError, got %v", outcomes[2].Err)
	assert.Equal(t, "unexpected state", panicErr.Message)
	assert.Equal(t, filepath.Join(dir, "c"), panicErr.Path)

	assert.ErrorIs(t, FirstError(outcomes), boom)
}

func TestReplaceGlobRespectsWorkerLimit(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files[name] = "abba"
	}
	writeFiles(t, dir, files)

	const workers = 2
	var running, peak atomic.Int32
	runner, err := New(Options{
		Workers: workers,
		Rewrite: func(ctx context.Context, path string, patterns []string, replacement string, opts replace.Options) (*replace.Result, error) {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return &replace.Result{Path: path}, nil
		},
	})
	require.NoError(t, err)

	outcomes, err := runner.ReplaceGlob(ctx, filepath.Join(dir, "*"), []string{"abba"}, "toto")
	require.NoError(t, err)
	require.Len(t, outcomes, len(files))
	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.EqualValues(t, 0, running.Load(), "all units joined before return")
}

func TestReplaceGlobMissingLiteralPath(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()

	runner, err := New(Options{})
	require.NoError(t, err)

	missing := filepath.Join(dir, "nope")
	outcomes, err := runner.ReplaceGlob(ctx, missing, []string{"abba"}, "toto")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0].Err, os.ErrNotExist)
	assert.True(t, errs.IsIO(outcomes[0].Err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp file is left behind")
}

func TestReplaceGlobSymlinkLoopFailsAlone(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a/f1": "abba", "z/f2": "abba"})
	loop := filepath.Join(dir, "loop")
	require.NoError(t, os.Symlink(loop, loop))

	runner, err := New(Options{Workers: 2})
	require.NoError(t, err)

	outcomes, err := runner.ReplaceGlob(ctx, filepath.Join(dir, "**", "*"), []string{"abba"}, "toto")
	require.NoError(t, err)

	byPath := map[string]Outcome{}
	for _, o := range outcomes {
		byPath[o.Path] = o
	}
	require.Contains(t, byPath, loop)
	assert.True(t, errs.IsIO(byPath[loop].Err), "loop should fail to stat, got %v", byPath[loop].Err)
	assert.Equal(t, "toto", readFile(t, filepath.Join(dir, "a", "f1")))
	assert.Equal(t, "toto", readFile(t, filepath.Join(dir, "z", "f2")), "entries after the loop are still rewritten")
	assert.Equal(t, byPath[loop].Err, FirstError(outcomes))
}

func TestReplaceGlobSkipsTempLeftovers(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	leftover := "a" + replace.TempMarker + "Ab3dE6gH"
	writeFiles(t, dir, map[string]string{
		"a":      "abba",
		leftover: "abba",
	})

	runner, err := New(Options{})
	require.NoError(t, err)

	outcomes, err := runner.ReplaceGlob(ctx, filepath.Join(dir, "*"), []string{"abba"}, "toto")
	require.NoError(t, err)
	require.NoError(t, FirstError(outcomes))

	assert.Equal(t, "toto", readFile(t, filepath.Join(dir, "a")))
	assert.Equal(t, "abba", readFile(t, filepath.Join(dir, leftover)))
}

func TestReplaceGlobReopen(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a": "abba\ntoto\n"})

	runner, err := New(Options{Reopen: true})
	require.NoError(t, err)

	outcomes, err := runner.ReplaceGlob(ctx, filepath.Join(dir, "a"), []string{"abba", "toto"}, "queen")
	require.NoError(t, err)
	require.NoError(t, FirstError(outcomes))
	assert.Equal(t, "queen\nqueen\n", readFile(t, filepath.Join(dir, "a")))
}

func TestRunRules(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.go":  "oldName := 1",
		"b.txt": "oldName stays, draft",
	})

	tracker := status.New(nil)
	runner, err := New(Options{Reporter: tracker})
	require.NoError(t, err)

	rules := []text.Rule{
		{Patterns: []string{"oldName"}, Replacement: "newName", Glob: filepath.Join(dir, "*.go")},
		{Patterns: []string{"newName"}, Replacement: "finalName", Glob: filepath.Join(dir, "*")},
		{Patterns: []string{"draft"}, Replacement: "final", Glob: filepath.Join(dir, "b.txt")},
	}

	results, err := runner.RunRules(ctx, rules)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "finalName := 1", readFile(t, filepath.Join(dir, "a.go")))
	assert.Equal(t, "oldName stays, final", readFile(t, filepath.Join(dir, "b.txt")))
	assert.Equal(t, rules[1], results[1].Rule)
	assert.Len(t, results[1].Outcomes, 2)
}

func TestRunRulesErrors(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a": "abba"})

	runner, err := New(Options{})
	require.NoError(t, err)

	t.Run("invalid_rule", func(t *testing.T) {
		_, err := runner.RunRules(ctx, []text.Rule{{Patterns: nil, Glob: dir}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rule 0")
	})

	t.Run("bad_glob_stops_remaining_rules", func(t *testing.T) {
		rules := []text.Rule{
			{Patterns: []string{"abba"}, Replacement: "toto", Glob: filepath.Join(dir, "a")},
			{Patterns: []string{"toto"}, Replacement: "x", Glob: filepath.Join(dir, "{a")},
			{Patterns: []string{"toto"}, Replacement: "queen", Glob: filepath.Join(dir, "a")},
		}
		results, err := runner.RunRules(ctx, rules)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rule 1")
		assert.Len(t, results, 1)
		assert.Equal(t, "toto", readFile(t, filepath.Join(dir, "a")))
	})
}

func TestMockEnumeratorGlobError(t *testing.T) {
	enum := &MockEnumerator{}
	enum.On("Enumerate", mock.Anything).Return(nil, &errs.GlobError{Pattern: "x", Err: doublestar.ErrBadPattern})

	runner, err := New(Options{Enumerator: enum})
	require.NoError(t, err)

	_, err = runner.ReplaceGlob(testContext(t), "x", []string{"x"}, "y")
	require.Error(t, err)
	enum.AssertExpectations(t)
}
