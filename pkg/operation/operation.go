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
	"runtime"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/ved/pkg/replace"
	"github.com/walteh/ved/pkg/status"
	"github.com/walteh/ved/pkg/text"
)

// 🎯 Operator defines the main interface for ved operations
type Operator interface {
	// ReplaceGlob rewrites every file the glob resolves to
	ReplaceGlob(ctx context.Context, glob string, patterns []string, replacement string) ([]Outcome, error)
	// RunRules applies rules one after another
	RunRules(ctx context.Context, rules []text.Rule) ([]RuleOutcome, error)
}

// 🔧 RewriteFunc rewrites a single file; replace.RewriteFile is the default
type RewriteFunc func(ctx context.Context, path string, patterns []string, replacement string, opts replace.Options) (*replace.Result, error)

// 🔧 Options contains configuration for the runner
type Options struct {
	// Workers bounds concurrent rewrites; zero means GOMAXPROCS
	Workers int
	// Reopen reads each file through a second handle instead of a tee
	Reopen bool
	// Enumerator resolves globs; defaults to GlobEnumerator
	Enumerator Enumerator
	// Reporter receives one FileInfo per path; optional
	Reporter status.StatusReporter
	// Rewrite replaces replace.RewriteFile; optional
	Rewrite RewriteFunc
}

// 📄 Outcome is the result for one enumerated path
type Outcome struct {
	Path string
	// Result is set when a file was rewritten
	Result *replace.Result
	// Skipped is set for directories and leftover temp files
	Skipped bool
	Err     error
}

// Status maps the outcome onto a status.FileStatus
func (o Outcome) Status() status.FileStatus {
	switch {
	case o.Err != nil:
		return status.StatusFailed
	case o.Skipped:
		return status.StatusSkipped
	case o.Result != nil && o.Result.Replacements > 0:
		return status.StatusRewritten
	default:
		return status.StatusUnchanged
	}
}

// Info converts the outcome for a status reporter
func (o Outcome) Info() status.FileInfo {
	info := status.FileInfo{
		Path:   o.Path,
		Status: o.Status(),
		Error:  o.Err,
	}
	if o.Result != nil {
		info.Replacements = o.Result.Replacements
		info.Checksum = o.Result.Checksum
	}
	return info
}

// 📦 RuleOutcome groups the outcomes of one rule
type RuleOutcome struct {
	Rule     text.Rule
	Outcomes []Outcome
}

// FirstError returns the first failed outcome's error, in enumeration order
func FirstError(outcomes []Outcome) error {
	for _, o := range outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

// 🏭 New creates a new runner with the given options
func New(opts Options) (*Runner, error) {
	if opts.Workers < 0 {
		return nil, errors.Errorf("workers must not be negative, got %d", opts.Workers)
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Enumerator == nil {
		opts.Enumerator = GlobEnumerator{}
	}
	if opts.Rewrite == nil {
		opts.Rewrite = replace.RewriteFile
	}
	return &Runner{
		workers:  opts.Workers,
		reopen:   opts.Reopen,
		enum:     opts.Enumerator,
		reporter: opts.Reporter,
		rewrite:  opts.Rewrite,
	}, nil
}
