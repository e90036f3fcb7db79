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

package operation

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/profilesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// Pipeline returns the stages of a sync run in order: copy, registry export,
// then shortcut post-processing
func Pipeline(opts Options) []Operation {
	ops := []Operation{NewCopyOperation(opts)}
	if opts.Config.Registry.Enabled {
		ops = append(ops, NewRegistryOperation(opts))
	}
	if opts.Config.Shortcuts.Enabled {
		ops = append(ops, NewShortcutsOperation(opts))
	}
	return ops
}

// 🔄 Sync runs the whole pipeline. The summary is returned even when a fatal
// error stopped the run part way.
func Sync(ctx context.Context, opts Options) (*status.Summary, error) {
	if opts.Config == nil {
		return nil, errors.Errorf("config is required")
	}

	sum := status.New(opts.Config.DryRun)
	defer sum.Finish()

	logger := zerolog.Ctx(ctx).With().Bool("dry_run", opts.Config.DryRun).Logger()
	ctx = logger.WithContext(ctx)
	logger.Info().Str("profile", opts.Config.String()).Msg("starting sync")

	err := NewRunner(&logger).Run(ctx, sum, Pipeline(opts)...)

	logger.Info().
		Int("entries", len(sum.Entries())).
		Int("failures", len(sum.Failures())).
		Int("exit_code", sum.ExitCode()).
		Msg("sync finished")

	return sum, err
}
