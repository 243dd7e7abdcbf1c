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

package status

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📊 FileStatus represents what a dispatch did to one path
type FileStatus int

const (
	StatusUnknown   FileStatus = iota
	StatusRewritten            // At least one replacement was written
	StatusUnchanged            // Rewritten with no replacement
	StatusSkipped              // Directory or otherwise not a rewrite target
	StatusFailed               // The rewrite returned an error
)

// String returns a string representation of FileStatus
func (s FileStatus) String() string {
	switch s {
	case StatusRewritten:
		return "rewritten"
	case StatusUnchanged:
		return "unchanged"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 📄 FileInfo records the outcome for one path
type FileInfo struct {
	Path         string     // Path as enumerated
	Status       FileStatus // What happened
	Replacements int        // Number of diffs applied
	Checksum     uint64     // xxhash of the written content
	Error        error      // Failure, if any
}

// 📈 StatusReporter tracks file outcomes and reports progress
type StatusReporter interface {
	// Status tracking
	TrackFile(ctx context.Context, info FileInfo)
	GetFileInfo(ctx context.Context, path string) (FileInfo, error)
	ListFiles(ctx context.Context) ([]FileInfo, error)

	// Progress reporting
	StartOperation(ctx context.Context, total int)
	FinishOperation(ctx context.Context) Summary
}

// 🧮 Summary counts outcomes by status
type Summary struct {
	Total        int
	Rewritten    int
	Unchanged    int
	Skipped      int
	Failed       int
	Replacements int
}

// 🔧 Tracker implements StatusReporter; safe for use by concurrent workers
type Tracker struct {
	logger    *zerolog.Logger // Logger for status updates
	formatter FileFormatter   // Formatter for status messages

	// Status tracking
	mu    sync.RWMutex
	files map[string]FileInfo
	order []string

	// Progress tracking
	total     int
	processed int
}

var _ StatusReporter = (*Tracker)(nil)

// 🏭 New creates a new tracker
func New(logger *zerolog.Logger) *Tracker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Tracker{
		logger:    logger,
		formatter: NewDefaultFileFormatter(),
		files:     make(map[string]FileInfo),
	}
}

// StatusReporter interface implementation

func (m *Tracker) TrackFile(ctx context.Context, info FileInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.files[info.Path]; !seen {
		m.order = append(m.order, info.Path)
		m.processed++
	}
	m.files[info.Path] = info

	msg := m.formatter.FormatFileOperation(info.Path, info.Status, info.Replacements)
	if info.Error != nil {
		msg = m.formatter.FormatError(info.Error)
	}
	m.logger.Info().
		Str("path", info.Path).
		Str("status", info.Status.String()).
		Int("replacements", info.Replacements).
		Msg(msg)

	if m.total > 0 {
		m.logger.Debug().
			Int("processed", m.processed).
			Int("total", m.total).
			Msg(m.formatter.FormatProgress(m.processed, m.total))
	}
}

func (m *Tracker) GetFileInfo(ctx context.Context, path string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.files[path]
	if !ok {
		return FileInfo{}, errors.Errorf("file not tracked: %s", path)
	}
	return info, nil
}

// ListFiles returns tracked files in the order they were first reported.
func (m *Tracker) ListFiles(ctx context.Context) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]FileInfo, 0, len(m.order))
	for _, path := range m.order {
		files = append(files, m.files[path])
	}
	return files, nil
}

// StartOperation adds total to the expected file count. Several dispatches
// may share one tracker.
func (m *Tracker) StartOperation(ctx context.Context, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total += total
	msg := m.formatter.FormatProgress(m.processed, m.total)
	m.logger.Info().Int("total", m.total).Msg(msg)
}

func (m *Tracker) FinishOperation(ctx context.Context) Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := m.summaryLocked()
	m.logger.Info().
		Int("processed", m.processed).
		Int("total", m.total).
		Int("rewritten", sum.Rewritten).
		Int("failed", sum.Failed).
		Msg(m.formatter.FormatProgress(m.processed, m.total))
	return sum
}

// Summary returns the counts so far.
func (m *Tracker) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summaryLocked()
}

// Failures returns the failed entries sorted by path.
func (m *Tracker) Failures() []FileInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []FileInfo
	for _, info := range m.files {
		if info.Status == StatusFailed {
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b FileInfo) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return out
}

func (m *Tracker) summaryLocked() Summary {
	sum := Summary{Total: len(m.files)}
	for _, info := range m.files {
		sum.Replacements += info.Replacements
		switch info.Status {
		case StatusRewritten:
			sum.Rewritten++
		case StatusUnchanged:
			sum.Unchanged++
		case StatusSkipped:
			sum.Skipped++
		case StatusFailed:
			sum.Failed++
		}
	}
	return sum
}
