package text

import (
	"context"
	"io"
)

// Rule defines a single replacement operation
type Rule struct {
	// Patterns is the literal sequence to find; more than one pattern forms a block
	Patterns []string

	// Replacement is written in place of every matched pattern
	Replacement string

	// Glob selects the files the rule applies to
	Glob string
}

// Result contains the results of a replacement run
type Result struct {
	// WasModified indicates if any replacements were made
	WasModified bool

	// ReplacementCount is the number of replacements made across all rules
	ReplacementCount int

	// PerRule holds the replacement count of each rule, in rule order
	PerRule []int
}

// TextReplacer defines the interface for stream replacement
type TextReplacer interface {
	// ReplaceText streams content through every rule, in order, into out
	ReplaceText(ctx context.Context, content io.Reader, out io.Writer, rules []Rule) (*Result, error)

	// ValidateRules checks that all rules are valid
	ValidateRules(rules []Rule) error
}
