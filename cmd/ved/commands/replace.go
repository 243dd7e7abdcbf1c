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

package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/ved/cmd/ved/opts"
	"github.com/walteh/ved/pkg/config"
	"github.com/walteh/ved/pkg/log"
	"github.com/walteh/ved/pkg/operation"
	"github.com/walteh/ved/pkg/replace"
	"github.com/walteh/ved/pkg/status"
	"github.com/walteh/ved/pkg/text"
)

// StdinPath selects filter mode: stdin is rewritten to stdout.
const StdinPath = "-"

// settings is what a run needs once flags and the rule file are merged
type settings struct {
	rules   []text.Rule
	workers int
	reopen  bool
	level   zerolog.Level
}

// Run rewrites files as described by o and returns the first failure.
func Run(ctx context.Context, o *opts.RootOpts) error {
	s, err := resolve(ctx, o)
	if err != nil {
		return err
	}

	if !o.Debug {
		ctx = zerolog.Ctx(ctx).Level(s.level).WithContext(ctx)
	}

	if o.ConfigFile == "" && o.Path == StdinPath {
		return filter(ctx, o, s.rules)
	}

	for i := range s.rules {
		s.rules[i].Glob = ExpandPath(s.rules[i].Glob)
	}

	level := zerolog.WarnLevel
	if o.Debug {
		level = zerolog.DebugLevel
	}
	ui := log.New(o.Out, level)
	tracker := status.New(zerolog.Ctx(ctx))

	if o.Verbose {
		ui.Header(fmt.Sprintf("%s across %d workers", plural(len(s.rules), "rule"), s.workers))
	}

	var results []operation.RuleOutcome
	if o.Sequential {
		if o.Verbose {
			ui.Infof("walking one file at a time")
		}
		results, err = runSequential(ctx, s)
	} else {
		results, err = runParallel(ctx, s, tracker)
	}

	if o.Verbose {
		report(ctx, ui, results)
		sum := summarize(results)
		if sum.Failed > 0 {
			ui.Warningf("%s failed", plural(sum.Failed, "file"))
		}
		ui.Successf("%s", status.NewDefaultFileFormatter().FormatSummary(sum))
	}

	if failures := tracker.Failures(); len(failures) > 1 && o.Err != nil {
		for _, f := range failures {
			fmt.Fprintln(o.Err, status.FormatFileLine(f.Path, f.Status, f.Error.Error()))
		}
	}

	if err != nil {
		return err
	}
	for _, r := range results {
		if err := operation.FirstError(r.Outcomes); err != nil {
			return err
		}
	}
	return nil
}

// filter streams o.In through the rules into o.Out.
func filter(ctx context.Context, o *opts.RootOpts, rules []text.Rule) error {
	var replacer text.TextReplacer = text.NewStreamReplacer()
	res, err := replacer.ReplaceText(ctx, o.In, o.Out, rules)
	if err != nil {
		return errors.Errorf("filtering stdin: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Int("replacements", res.ReplacementCount).Msg("stdin filtered")
	return nil
}

func resolve(ctx context.Context, o *opts.RootOpts) (*settings, error) {
	if o.ConfigFile == "" {
		if len(o.Searches) == 0 {
			return nil, errors.Errorf("at least one -s pattern is required")
		}
		s := &settings{
			rules: []text.Rule{{
				Patterns:    o.Searches,
				Replacement: o.Replacement,
				Glob:        o.Path,
			}},
			workers: o.Workers,
			reopen:  o.Reopen,
			level:   zerolog.WarnLevel,
		}
		if err := text.ValidateRules(s.rules); err != nil {
			return nil, err
		}
		if s.workers == 0 {
			s.workers = runtime.GOMAXPROCS(0)
		}
		return s, nil
	}

	if len(o.Searches) > 0 {
		return nil, errors.Errorf("-s cannot be combined with --config")
	}

	cfg, err := config.Load(ctx, o.ConfigFile)
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}

	s := &settings{
		rules:   cfg.TextRules(),
		workers: cfg.Workers,
		reopen:  cfg.Reopen || o.Reopen,
		level:   cfg.Level(),
	}
	if o.Workers > 0 {
		s.workers = o.Workers
	}
	return s, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// ExpandPath turns a plain directory path into a recursive glob.
func ExpandPath(p string) string {
	if operation.HasMeta(p) {
		return p
	}
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		return p
	}
	return filepath.Join(p, "**")
}

func runParallel(ctx context.Context, s *settings, tracker *status.Tracker) ([]operation.RuleOutcome, error) {
	runner, err := operation.New(operation.Options{
		Workers:  s.workers,
		Reopen:   s.reopen,
		Reporter: tracker,
	})
	if err != nil {
		return nil, errors.Errorf("creating runner: %w", err)
	}

	results, err := runner.RunRules(ctx, s.rules)
	tracker.FinishOperation(ctx)
	return results, err
}

// runSequential walks each rule's path with replace.Tree, stopping at the
// first error.
func runSequential(ctx context.Context, s *settings) ([]operation.RuleOutcome, error) {
	results := make([]operation.RuleOutcome, 0, len(s.rules))
	for i, rule := range s.rules {
		root := rule.Glob
		if dir, ok := treeRoot(root); ok {
			root = dir
		} else if operation.HasMeta(root) {
			return results, errors.Errorf("rule %d: --sequential takes a file or directory, not a glob: %s", i, root)
		}

		res, err := replace.Tree(ctx, rule.Patterns, rule.Replacement, root, replace.Options{Reopen: s.reopen})
		outcomes := make([]operation.Outcome, 0, len(res))
		for _, r := range res {
			outcomes = append(outcomes, operation.Outcome{Path: r.Path, Result: r})
		}
		results = append(results, operation.RuleOutcome{Rule: rule, Outcomes: outcomes})
		if err != nil {
			return results, errors.Errorf("rule %d: %w", i, err)
		}
	}
	return results, nil
}

// treeRoot undoes ExpandPath.
func treeRoot(glob string) (string, bool) {
	dir, last := filepath.Split(glob)
	if last != "**" || operation.HasMeta(dir) {
		return "", false
	}
	if dir == "" {
		return ".", true
	}
	return filepath.Clean(dir), true
}

func report(ctx context.Context, ui *log.Logger, results []operation.RuleOutcome) {
	for _, r := range results {
		ui.StartRuleOperation(ctx, log.RuleOperation{
			Patterns:    r.Rule.Patterns,
			Replacement: r.Rule.Replacement,
			Glob:        r.Rule.Glob,
		})
		for _, o := range r.Outcomes {
			st := o.Status()
			op := log.FileOperation{
				Path:        o.Path,
				Status:      st.String(),
				IsRewritten: st == status.StatusRewritten,
				IsSkipped:   st == status.StatusSkipped,
				IsFailed:    st == status.StatusFailed,
				Err:         o.Err,
			}
			if o.Result != nil {
				op.Replacements = o.Result.Replacements
				op.Checksum = o.Result.Checksum
			}
			ui.LogFileOperation(ctx, op)
		}
		ui.EndRuleOperation(ctx)
		ui.LogNewline()
	}
}

func summarize(results []operation.RuleOutcome) status.Summary {
	var sum status.Summary
	for _, r := range results {
		for _, o := range r.Outcomes {
			sum.Total++
			if o.Result != nil {
				sum.Replacements += o.Result.Replacements
			}
			switch o.Status() {
			case status.StatusRewritten:
				sum.Rewritten++
			case status.StatusUnchanged:
				sum.Unchanged++
			case status.StatusSkipped:
				sum.Skipped++
			case status.StatusFailed:
				sum.Failed++
			}
		}
	}
	return sum
}

// Describe renders the rules a run would apply, one per line.
func Describe(rules []text.Rule) []string {
	lines := make([]string, 0, len(rules))
	for i, r := range rules {
		lines = append(lines, fmt.Sprintf("%d. %s: %d patterns -> %q", i+1, r.Glob, len(r.Patterns), r.Replacement))
	}
	return lines
}
