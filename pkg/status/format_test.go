package status

import (
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

// 🧪 TestDefaultFileFormatter tests the default file formatter implementation
func TestDefaultFileFormatter(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		status       FileStatus
		replacements int
		want         string
		description  string
	}{
		{
			name:         "rewritten_file",
			path:         "config.yaml",
			status:       StatusRewritten,
			replacements: 3,
			want:         "📝 Rewrote config.yaml (3 replacements)",
			description:  "should show modification symbol and count",
		},
		{
			name:         "single_replacement",
			path:         "main.go",
			status:       StatusRewritten,
			replacements: 1,
			want:         "📝 Rewrote main.go (1 replacement)",
			description:  "should use the singular form",
		},
		{
			name:        "unchanged_file",
			path:        "stable.txt",
			status:      StatusUnchanged,
			want:        "👍 Unchanged stable.txt",
			description: "should show unchanged symbol for files without matches",
		},
		{
			name:        "skipped_dir",
			path:        "sub",
			status:      StatusSkipped,
			want:        "⏭️  Skipped sub",
			description: "should show skip symbol for directories",
		},
		{
			name:        "failed_file",
			path:        "error.txt",
			status:      StatusFailed,
			want:        "❌ Failed error.txt",
			description: "should show error symbol for failed rewrites",
		},
		{
			name:        "unknown_status",
			path:        "weird.txt",
			status:      StatusUnknown,
			want:        "👍 Unchanged weird.txt",
			description: "should fall back to unchanged",
		},
	}

	formatter := NewDefaultFileFormatter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatter.FormatFileOperation(tt.path, tt.status, tt.replacements)
			assert.Equal(t, tt.want, got, tt.description)
		})
	}
}

// 🧪 TestFormatProgress tests progress formatting
func TestFormatProgress(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    string
	}{
		{name: "start", current: 0, total: 10, want: "⏳ Progress: 0/10 (0%)"},
		{name: "half", current: 5, total: 10, want: "⏳ Progress: 5/10 (50%)"},
		{name: "done", current: 10, total: 10, want: "✅ Progress: 10/10 (100%)"},
		{name: "zero_total", current: 0, total: 0, want: "✅ Progress: 0/0 (0%)"},
		{name: "overflow", current: 3, total: 0, want: "✅ Progress: 3/0 (100%)"},
	}

	formatter := NewDefaultFileFormatter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatter.FormatProgress(tt.current, tt.total))
		})
	}
}

func TestFormatError(t *testing.T) {
	formatter := NewDefaultFileFormatter()
	assert.Equal(t, "", formatter.FormatError(nil))
	assert.Equal(t, "❌ Error: boom", formatter.FormatError(fmt.Errorf("boom")))
}

func TestFormatSummary(t *testing.T) {
	formatter := NewDefaultFileFormatter()
	got := formatter.FormatSummary(Summary{Total: 4, Rewritten: 2, Unchanged: 1, Failed: 1, Replacements: 5})
	assert.Equal(t, "5 replacements in 4 paths: 2 rewritten, 1 unchanged, 0 skipped, 1 failed", got)
}

func TestFormatFileLine(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	got := FormatFileLine("a.txt", StatusRewritten, "2 replacements")
	assert.Equal(t, fmt.Sprintf("    ⟳ %-35s %-10s 2 replacements", "a.txt", "rewritten"), got)

	got = FormatFileLine("b.txt", StatusSkipped, "")
	assert.Equal(t, fmt.Sprintf("    - %-35s skipped", "b.txt"), got)
}
