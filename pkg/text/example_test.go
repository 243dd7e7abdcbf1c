package text_test

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/walteh/ved/pkg/text"
)

func ExampleStreamReplacer_ReplaceText() {
	// Create a replacer
	replacer := text.NewStreamReplacer()

	// Define some replacement rules
	rules := []text.Rule{
		{
			Patterns:    []string{"World"},
			Replacement: "Universe",
			Glob:        "*.txt",
		},
		{
			Patterns:    []string{"Hello"},
			Replacement: "Hi",
			Glob:        "*.txt",
		},
	}

	// Stream some content to stdout
	content := strings.NewReader("Hello World!\n")
	result, err := replacer.ReplaceText(context.Background(), content, os.Stdout, rules)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Changes: %d\n", result.ReplacementCount)
	fmt.Printf("Was Modified: %v\n", result.WasModified)

	// Output:
	// Hi Universe!
	// Changes: 2
	// Was Modified: true
}

func ExampleStreamReplacer_ReplaceText_block() {
	replacer := text.NewStreamReplacer()

	// both parts must line up in the same column on consecutive lines
	rules := []text.Rule{
		{Patterns: []string{"abba", "toto"}, Replacement: "queen"},
	}

	content := strings.NewReader("  abba\n  toto\nabba\n  toto\n")
	result, err := replacer.ReplaceText(context.Background(), content, os.Stdout, rules)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Changes: %d\n", result.ReplacementCount)

	// Output:
	//   queen
	//   queen
	// abba
	//   toto
	// Changes: 2
}

func ExampleValidateRules() {
	rules := []text.Rule{
		{
			Patterns:    []string{"foo"},
			Replacement: "bar",
			Glob:        "*.txt",
		},
		{
			Patterns:    []string{"baz"}, // Missing Glob
			Replacement: "qux",
		},
	}

	err := text.ValidateRules(rules)
	fmt.Printf("Validation error: %v\n", err)

	// Output:
	// Validation error: rule 1: path is required
}
