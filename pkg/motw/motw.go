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

// Package motw removes the Mark of the Web from copied shortcut files.
//
// Windows tags downloaded files with a Zone.Identifier alternate data stream.
// Shortcuts carried across machines keep the tag and trigger a security
// prompt when opened, so after a copy the stream is deleted from every
// shortcut under the destination desktop.
package motw

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// StreamName is the alternate data stream holding the zone tag
const StreamName = "Zone.Identifier"

// DefaultExtensions are the shortcut types that get stripped
var DefaultExtensions = []string{".url", ".lnk"}

// StreamPath returns the path of the zone stream for file. On NTFS this
// addresses the alternate data stream; elsewhere it is a sibling file.
func StreamPath(file string) string {
	return file + ":" + StreamName
}

// 🏷️ Action is what happened to one file
type Action string

const (
	ActionStripped   Action = "stripped"
	ActionWouldStrip Action = "would-strip"
	ActionClean      Action = "clean"
	ActionFailed     Action = "failed"
)

// 📄 Entry is one shortcut the scan visited
type Entry struct {
	Path   string
	Action Action
	Err    error
}

// 📋 Report lists what a Strip call did
type Report struct {
	Dir     string
	DryRun  bool
	Missing bool // the directory did not exist
	Entries []Entry
}

// Count returns how many entries ended with action
func (r *Report) Count(action Action) int {
	n := 0
	for _, e := range r.Entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

// Err joins every per-file failure, nil when there were none
func (r *Report) Err() error {
	var errs []error
	for _, e := range r.Entries {
		if e.Err != nil {
			errs = append(errs, errors.Errorf("%s: %w", e.Path, e.Err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// ⚙️ Options configure a Stripper
type Options struct {
	Extensions []string // matched case-insensitively, with or without the leading dot
	DryRun     bool
}

// 🧹 Stripper removes zone streams from shortcut files
type Stripper struct {
	exts   []string
	dryRun bool
}

// 🏭 New creates a stripper; no extensions means DefaultExtensions
func New(opts Options) *Stripper {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	norm := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		norm = append(norm, e)
	}
	return &Stripper{exts: norm, dryRun: opts.DryRun}
}

func (s *Stripper) matches(name string) bool {
	return slices.Contains(s.exts, strings.ToLower(filepath.Ext(name)))
}

// 🚀 Strip walks dir and removes the zone stream from every matching file.
// A missing dir yields an empty report. Per-file failures are recorded in
// the report; only a failure to walk the tree is returned as an error.
func (s *Stripper) Strip(ctx context.Context, dir string) (*Report, error) {
	logger := zerolog.Ctx(ctx).With().Str("dir", dir).Bool("dry_run", s.dryRun).Logger()
	report := &Report{Dir: dir, DryRun: s.dryRun}

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info().Msg("directory does not exist, nothing to strip")
		report.Missing = true
		return report, nil
	}
	if err != nil {
		return report, errors.Errorf("checking %s: %w", dir, err)
	}
	if !info.IsDir() {
		return report, errors.Errorf("%s is not a directory", dir)
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !s.matches(d.Name()) {
			return nil
		}
		entry := s.stripOne(path)
		switch entry.Action {
		case ActionStripped:
			logger.Debug().Str("file", path).Msg("removed zone identifier")
		case ActionWouldStrip:
			logger.Info().Str("file", path).Msg("[dry run] would strip zone identifier")
		case ActionFailed:
			logger.Warn().Err(entry.Err).Str("file", path).Msg("could not strip zone identifier")
		}
		report.Entries = append(report.Entries, entry)
		return nil
	})
	if err != nil {
		return report, errors.Errorf("walking %s: %w", dir, err)
	}

	logger.Info().
		Int("stripped", report.Count(ActionStripped)).
		Int("would_strip", report.Count(ActionWouldStrip)).
		Int("clean", report.Count(ActionClean)).
		Int("failed", report.Count(ActionFailed)).
		Msg("zone identifier scan finished")

	return report, nil
}

func (s *Stripper) stripOne(path string) Entry {
	stream := StreamPath(path)
	if _, err := os.Lstat(stream); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{Path: path, Action: ActionClean}
		}
		return Entry{Path: path, Action: ActionFailed, Err: err}
	}
	if s.dryRun {
		return Entry{Path: path, Action: ActionWouldStrip}
	}
	if err := os.Remove(stream); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Entry{Path: path, Action: ActionFailed, Err: err}
	}
	return Entry{Path: path, Action: ActionStripped}
}
