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
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/profilesync/pkg/execution"
	"github.com/walteh/profilesync/pkg/motw"
	"github.com/walteh/profilesync/pkg/status"
)

// 🔗 NewShortcutsOperation creates the Mark of the Web removal stage
func NewShortcutsOperation(opts Options) Operation {
	return &shortcutsOperation{
		BaseOperation: NewBaseOperation(opts),
	}
}

type shortcutsOperation struct {
	BaseOperation
}

func (op *shortcutsOperation) Name() string {
	return "shortcuts"
}

// 🏃 Execute strips zone identifiers from the copied desktop shortcuts
func (op *shortcutsOperation) Execute(ctx context.Context, sum *status.Summary) error {
	if err := op.validate(); err != nil {
		return err
	}
	if !op.Config.Shortcuts.Enabled {
		return nil
	}
	ctx = zerolog.Ctx(ctx).With().Str("operation", op.Name()).Logger().WithContext(ctx)

	dir := op.Config.ShortcutsDir()
	op.logger(ctx).Section("removing Mark of the Web in " + dir)

	stripper := op.Stripper
	if stripper == nil {
		stripper = motw.New(op.Config.MotwOptions())
	}

	// dry runs still scan, so the entry is never marked simulated
	start := time.Now()
	report, err := stripper.Strip(ctx, dir)
	entry := status.Entry{
		Kind:     status.KindPostProcess,
		Name:     "mark of the web",
		Outcome:  execution.OutcomeSuccess,
		Duration: time.Since(start),
		Attempts: 1,
	}

	switch {
	case err != nil:
		entry.Outcome = execution.OutcomeFailed
		entry.Err = err
	case report.Missing:
		entry.Detail = "no desktop folder, skipped"
	case report.Err() != nil:
		entry.Outcome = execution.OutcomePartialSuccess
		entry.Detail = fmt.Sprintf("%d stripped, %d failed", report.Count(motw.ActionStripped), report.Count(motw.ActionFailed))
		zerolog.Ctx(ctx).Warn().Err(report.Err()).Msg("some shortcuts kept their zone identifier")
	case op.dryRun():
		entry.Detail = fmt.Sprintf("%d would be stripped", report.Count(motw.ActionWouldStrip))
	default:
		entry.Detail = fmt.Sprintf("%d stripped", report.Count(motw.ActionStripped))
	}

	op.report(ctx, sum, entry)
	return nil
}
