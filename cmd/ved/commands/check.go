package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/ved/cmd/ved/opts"
	"github.com/walteh/ved/pkg/config"
)

// NewCheckCmd creates a command that validates a rule file without rewriting
func NewCheckCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a rule file",
		Long: `Check loads the rule file given with --config and reports the rules it holds.
Nothing is rewritten. A malformed file or an invalid rule exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.ConfigFile == "" {
				return errors.Errorf("check requires --config")
			}

			cfg, err := config.Load(cmd.Context(), o.ConfigFile)
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}

			for _, line := range Describe(cfg.TextRules()) {
				fmt.Fprintln(o.Out, line)
			}
			return nil
		},
	}

	return cmd
}
