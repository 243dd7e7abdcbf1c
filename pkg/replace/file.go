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

package replace

import (
	"bufio"
	"context"
	"io"
	"math/rand/v2"
	"os"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/ved/pkg/errs"
	"github.com/walteh/ved/pkg/search"
	"github.com/walteh/ved/pkg/tee"
)

const (
	// TempMarker separates the original path from the random suffix of a
	// temp file.
	TempMarker = "._ved_temp_"

	suffixLen      = 8
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Options tunes a single file rewrite.
type Options struct {
	// Reopen reads the original through a second file handle instead of
	// splitting one handle between the scanner and the copier.
	Reopen bool
}

// Result describes a completed rewrite.
type Result struct {
	Path         string
	Replacements int
	// Checksum is the xxhash64 of the bytes written.
	Checksum uint64
}

// TempPath returns a sibling temp file name for path.
func TempPath(path string) (string, error) {
	if !utf8.ValidString(path) {
		return "", &errs.PathError{Path: path}
	}

	suffix := make([]byte, suffixLen)
	for i := range suffix {
		suffix[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return path + TempMarker + string(suffix), nil
}

// RewriteFile substitutes every match of patterns in the file at path and
// renames the result over it. On failure the original is untouched and any
// temp file created is left in place.
func RewriteFile(ctx context.Context, path string, patterns []string, replacement string, opts Options) (*Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("path", path).Logger()
	ctx = logger.WithContext(ctx)

	if err := search.Validate(patterns); err != nil {
		return nil, err
	}

	original, err := os.Open(path)
	if err != nil {
		return nil, errs.NewIOError("open", path, err)
	}
	defer original.Close()

	info, err := original.Stat()
	if err != nil {
		return nil, errs.NewIOError("stat", path, err)
	}

	tempPath, err := TempPath(path)
	if err != nil {
		return nil, err
	}

	temp, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return nil, errs.NewIOError("create", tempPath, err)
	}
	defer temp.Close()

	// the umask may have narrowed the mode
	if err := temp.Chmod(info.Mode().Perm()); err != nil {
		return nil, errs.NewIOError("chmod", tempPath, err)
	}

	scanSrc, copySrc, release, err := sources(path, original, opts)
	if err != nil {
		return nil, err
	}
	defer release()

	logger.Debug().Str("temp", tempPath).Bool("reopen", opts.Reopen).Msg("rewriting file")

	searcher, err := search.New(ctx, patterns, replacement, scanSrc)
	if err != nil {
		return nil, err
	}

	digest := xxhash.New()
	out := bufio.NewWriter(io.MultiWriter(temp, digest))

	count, err := NewReplacer(searcher, copySrc, out).Run(ctx)
	if err != nil {
		return nil, withPath(err, path)
	}

	if err := out.Flush(); err != nil {
		return nil, errs.NewIOError("write", tempPath, err)
	}
	if err := temp.Sync(); err != nil {
		return nil, errs.NewIOError("sync", tempPath, err)
	}
	if err := temp.Close(); err != nil {
		return nil, errs.NewIOError("close", tempPath, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return nil, errs.NewIOError("rename", path, err)
	}

	logger.Debug().Int("replacements", count).Msg("file rewritten")

	return &Result{
		Path:         path,
		Replacements: count,
		Checksum:     digest.Sum64(),
	}, nil
}

// sources returns the scanner's reader and the copier's reader over the
// same file content.
func sources(path string, original *os.File, opts Options) (io.Reader, io.Reader, func(), error) {
	if opts.Reopen {
		second, err := os.Open(path)
		if err != nil {
			return nil, nil, nil, errs.NewIOError("open", path, err)
		}
		return original, second, func() { second.Close() }, nil
	}

	lead, trail := tee.New(original)
	return lead, trail, func() {
		lead.Close()
		trail.Close()
	}, nil
}

// withPath fills in the path of an IOError raised below the file layer.
func withPath(err error, path string) error {
	var ioErr *errs.IOError
	if errors.As(err, &ioErr) && ioErr.Path == "" {
		return &errs.IOError{Op: ioErr.Op, Path: path, Err: ioErr.Err}
	}
	return err
}
