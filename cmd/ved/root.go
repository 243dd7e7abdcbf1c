package main

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/walteh/ved/cmd/ved/commands"
	"github.com/walteh/ved/cmd/ved/opts"
)

// newRootCmd builds the command tree around o; output goes to out.
func newRootCmd(o *opts.RootOpts, out io.Writer) *cobra.Command {
	o.Out = out

	cmd := &cobra.Command{
		Use:   "ved -s <search> [-s <search>...] -r <replace> [-p <path-or-glob>]",
		Short: "Streaming literal search and replace across files",
		Long: `ved rewrites every file under a path or glob, replacing a literal string, or a
block of literal strings on consecutive lines sharing a column, with new text.
Files are streamed with bounded memory and replaced atomically through a temp file.`,
		Example: `  ved -s abba -r toto
  ved -s 'if err != nil {' -s '    return err' -r 'must(err)' -p 'src/**/*.go'
  ved --config ved.yaml --verbose
  cat in.txt | ved -s abba -r toto -p -`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(setupLogging(cmd.Context(), o.Debug))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			o.In = cmd.InOrStdin()
			o.Err = cmd.ErrOrStderr()
			return commands.Run(cmd.Context(), o)
		},
	}
	cmd.SetOut(out)

	addRootFlags(cmd, o)

	cmd.AddCommand(
		commands.NewCheckCmd(o),
		newVersionCmd(),
	)

	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.Flags().StringArrayVarP(&o.Searches, "search", "s", nil, "literal to search for; repeat for a multi-line block")
	cmd.Flags().StringVarP(&o.Replacement, "replace", "r", "", "replacement text")
	cmd.Flags().StringVarP(&o.Path, "path", "p", ".", "file, directory or glob to rewrite; - filters stdin to stdout")
	cmd.Flags().IntVarP(&o.Workers, "workers", "w", 0, "concurrent rewrites (default GOMAXPROCS)")
	cmd.Flags().BoolVar(&o.Reopen, "reopen", false, "read each file through a second handle instead of buffering")
	cmd.Flags().BoolVar(&o.Sequential, "sequential", false, "rewrite one file at a time, stopping at the first error")
	cmd.Flags().BoolVarP(&o.Verbose, "verbose", "v", false, "print one line per file")

	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", "", "rule file (yaml, json, hcl, toml, kdl or .vedrc)")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
}

// setupLogging attaches a zerolog logger to ctx based on flags
func setupLogging(ctx context.Context, debug bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = os.Stderr })).Level(level).With().Timestamp().Logger()
	return logger.WithContext(ctx)
}
