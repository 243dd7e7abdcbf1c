package opts

import (
	"io"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Searches    []string // -s, repeatable; several form a block pattern
	Replacement string   // -r
	Path        string   // -p, file, directory, glob, or "-" for stdin
	ConfigFile  string   // --config, rule file replacing -s/-r/-p
	Workers     int      // --workers, 0 means GOMAXPROCS
	Reopen      bool     // --reopen, read through a second handle
	Sequential  bool     // --sequential, walk with replace.Tree
	Verbose     bool     // --verbose, one line per file
	Debug       bool     // --debug, debug-level structured logs

	// In feeds "-p -"; Out receives verbose output and filtered text; Err
	// receives per-file failure lines
	In  io.Reader
	Out io.Writer
	Err io.Writer
}
