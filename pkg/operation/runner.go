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

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/ved/pkg/errs"
	"github.com/walteh/ved/pkg/replace"
	"github.com/walteh/ved/pkg/search"
	"github.com/walteh/ved/pkg/status"
	"github.com/walteh/ved/pkg/text"
)

// 🏃 Runner dispatches rewrites over enumerated paths
type Runner struct {
	workers  int
	reopen   bool
	enum     Enumerator
	reporter status.StatusReporter
	rewrite  RewriteFunc
}

var _ Operator = (*Runner)(nil)

// Workers returns the concurrency bound
func (r *Runner) Workers() int {
	return r.workers
}

// 🎯 ReplaceGlob rewrites every path glob resolves to. The returned error is
// only set for failures that abort the whole call; per-path failures are in
// the outcomes.
func (r *Runner) ReplaceGlob(ctx context.Context, glob string, patterns []string, replacement string) ([]Outcome, error) {
	logger := zerolog.Ctx(ctx)

	if err := search.Validate(patterns); err != nil {
		return nil, errors.Errorf("validating patterns: %w", err)
	}

	seq, err := r.enum.Enumerate(glob)
	if err != nil {
		return nil, err
	}

	outcomes := []Outcome{}
	for path, err := range seq {
		outcomes = append(outcomes, Outcome{Path: path, Err: err})
	}

	if r.reporter != nil {
		r.reporter.StartOperation(ctx, len(outcomes))
	}

	logger.Debug().
		Str("glob", glob).
		Int("paths", len(outcomes)).
		Int("workers", r.workers).
		Msg("dispatching rewrites")

	var g errgroup.Group
	g.SetLimit(r.workers)

	for i := range outcomes {
		if outcomes[i].Err != nil {
			r.track(ctx, outcomes[i])
			continue
		}
		g.Go(func() error {
			outcomes[i] = r.unit(ctx, outcomes[i].Path, patterns, replacement)
			r.track(ctx, outcomes[i])
			return nil
		})
	}

	// units never return errors
	_ = g.Wait()

	logger.Debug().Str("glob", glob).Msg("all rewrites joined")

	return outcomes, nil
}

// unit rewrites one path; a panic is recovered into the outcome.
func (r *Runner) unit(ctx context.Context, path string, patterns []string, replacement string) (out Outcome) {
	out.Path = path

	defer func() {
		if v := recover(); v != nil {
			out = Outcome{Path: path, Err: errs.NewWorkerPanicError(path, v)}
		}
	}()

	if replace.IsTempPath(path) {
		out.Skipped = true
		return out
	}

	info, err := os.Stat(path)
	if err != nil {
		out.Err = errs.NewIOError("stat", path, err)
		return out
	}
	if info.IsDir() {
		out.Skipped = true
		return out
	}

	res, err := r.rewrite(ctx, path, patterns, replacement, replace.Options{Reopen: r.reopen})
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = res
	return out
}

func (r *Runner) track(ctx context.Context, o Outcome) {
	if r.reporter == nil {
		return
	}
	r.reporter.TrackFile(ctx, o.Info())
}

// 📜 RunRules applies each rule in order. A rule whose glob fails to parse
// stops the run; the outcomes gathered so far are returned with the error.
func (r *Runner) RunRules(ctx context.Context, rules []text.Rule) ([]RuleOutcome, error) {
	if err := text.ValidateRules(rules); err != nil {
		return nil, err
	}

	results := make([]RuleOutcome, 0, len(rules))
	for i, rule := range rules {
		outcomes, err := r.ReplaceGlob(ctx, rule.Glob, rule.Patterns, rule.Replacement)
		if err != nil {
			return results, errors.Errorf("rule %d: %w", i, err)
		}
		results = append(results, RuleOutcome{Rule: rule, Outcomes: outcomes})
	}
	return results, nil
}
