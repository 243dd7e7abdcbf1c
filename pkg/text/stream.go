package text

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/ved/pkg/replace"
	"github.com/walteh/ved/pkg/search"
	"github.com/walteh/ved/pkg/tee"
)

var _ TextReplacer = (*StreamReplacer)(nil)

// StreamReplacer implements TextReplacer on top of the bounded scanner, so
// content of any size is processed in constant memory per rule.
type StreamReplacer struct{}

// NewStreamReplacer creates a new StreamReplacer
func NewStreamReplacer() *StreamReplacer {
	return &StreamReplacer{}
}

// ReplaceText implements TextReplacer.ReplaceText. With several rules each
// one runs as its own pipeline stage feeding the next.
func (r *StreamReplacer) ReplaceText(ctx context.Context, content io.Reader, out io.Writer, rules []Rule) (*Result, error) {
	for i, rule := range rules {
		if err := search.Validate(rule.Patterns); err != nil {
			return nil, errors.Errorf("rule %d: %w", i, err)
		}
	}

	result := &Result{PerRule: make([]int, len(rules))}

	if len(rules) == 0 {
		if _, err := io.Copy(out, content); err != nil {
			return nil, errors.Errorf("copying content: %w", err)
		}
		return result, nil
	}

	var g errgroup.Group
	in := content
	for i, rule := range rules {
		stageIn := in
		var stageOut io.Writer = out
		var pw *io.PipeWriter
		if i < len(rules)-1 {
			var pr *io.PipeReader
			pr, pw = io.Pipe()
			stageOut = pw
			in = pr
		}

		g.Go(func() error {
			n, err := replaceOne(ctx, stageIn, stageOut, rule)
			result.PerRule[i] = n
			if pw != nil {
				pw.CloseWithError(err)
			}
			if err != nil {
				// unblock the upstream stage
				if pr, ok := stageIn.(*io.PipeReader); ok {
					pr.CloseWithError(err)
				}
				return errors.Errorf("rule %d: %w", i, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, n := range result.PerRule {
		result.ReplacementCount += n
	}
	result.WasModified = result.ReplacementCount > 0

	zerolog.Ctx(ctx).Debug().
		Int("rules", len(rules)).
		Int("replacements", result.ReplacementCount).
		Msg("stream replaced")

	return result, nil
}

func replaceOne(ctx context.Context, in io.Reader, out io.Writer, rule Rule) (int, error) {
	lead, trail := tee.New(in)
	defer lead.Close()
	defer trail.Close()

	searcher, err := search.New(ctx, rule.Patterns, rule.Replacement, lead)
	if err != nil {
		return 0, err
	}
	return replace.NewReplacer(searcher, trail, out).Run(ctx)
}

// ValidateRules implements TextReplacer.ValidateRules
func (r *StreamReplacer) ValidateRules(rules []Rule) error {
	return ValidateRules(rules)
}

// ValidateRules checks every rule has a usable pattern sequence and a glob.
func ValidateRules(rules []Rule) error {
	for i, rule := range rules {
		if len(rule.Patterns) == 0 {
			return errors.Errorf("rule %d: search is required", i)
		}
		if err := search.Validate(rule.Patterns); err != nil {
			return errors.Errorf("rule %d: %w", i, err)
		}
		if rule.Glob == "" {
			return errors.Errorf("rule %d: path is required", i)
		}
	}
	return nil
}
