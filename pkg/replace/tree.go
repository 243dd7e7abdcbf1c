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
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/ved/pkg/errs"
)

// Tree rewrites path, or every file below it when it is a directory, one
// file at a time. It stops at the first error.
func Tree(ctx context.Context, patterns []string, replacement string, path string, opts Options) ([]*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errs.NewIOError("stat", path, err)
	}

	if !info.IsDir() {
		res, err := RewriteFile(ctx, path, patterns, replacement, opts)
		if err != nil {
			return nil, err
		}
		return []*Result{res}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errs.NewIOError("read dir", path, err)
	}

	zerolog.Ctx(ctx).Debug().Str("dir", path).Int("entries", len(entries)).Msg("walking directory")

	var results []*Result
	for _, entry := range entries {
		if IsTempPath(entry.Name()) {
			continue
		}
		sub, err := Tree(ctx, patterns, replacement, filepath.Join(path, entry.Name()), opts)
		if err != nil {
			return results, err
		}
		results = append(results, sub...)
	}
	return results, nil
}

// IsTempPath reports whether path looks like a temp file left by a rewrite.
func IsTempPath(path string) bool {
	i := strings.LastIndex(path, TempMarker)
	return i >= 0 && len(path)-i-len(TempMarker) == suffixLen
}
