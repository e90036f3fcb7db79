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
	"github.com/walteh/profilesync/pkg/auth"
	"github.com/walteh/profilesync/pkg/execution"
	"github.com/walteh/profilesync/pkg/plan"
	"github.com/walteh/profilesync/pkg/robocopy"
	"github.com/walteh/profilesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 📦 NewCopyOperation creates the file copy stage
func NewCopyOperation(opts Options) Operation {
	return &copyOperation{
		BaseOperation: NewBaseOperation(opts),
	}
}

// 📦 copyOperation resolves the rules and runs one robocopy per task
type copyOperation struct {
	BaseOperation
}

func (op *copyOperation) Name() string {
	return "copy"
}

func (op *copyOperation) resolve() (*plan.Plan, error) {
	var opts []plan.ResolveOption
	if op.SourceFS != nil {
		opts = append(opts, plan.WithSourceFS(op.SourceFS))
	}
	if op.ProgramsFS != nil {
		opts = append(opts, plan.WithProgramsFS(op.ProgramsFS))
	}
	return plan.Resolve(op.Config.ProfileSpec(), op.Config.SyncRules(), opts...)
}

// 🏃 Execute runs the copy stage
func (op *copyOperation) Execute(ctx context.Context, sum *status.Summary) error {
	if err := op.validate(); err != nil {
		return err
	}
	logger := zerolog.Ctx(ctx).With().Str("operation", op.Name()).Logger()
	ctx = logger.WithContext(ctx)

	p, err := op.resolve()
	if err != nil {
		return errors.Errorf("resolving copy plan: %w", err)
	}

	spec := p.Spec()
	op.logger(ctx).Section("copying " + spec.SourceRoot())

	if !op.dryRun() {
		authenticated, err := op.preflight(ctx, spec.SourceRoot())
		if err != nil {
			return err
		}
		if authenticated && op.SourceFS != nil {
			// globs only see the source once we are allowed in
			if p, err = op.resolve(); err != nil {
				return errors.Errorf("resolving copy plan: %w", err)
			}
		}
	}

	if err := op.ensureDestination(ctx, spec.Destination); err != nil {
		return err
	}

	opts := op.Config.RobocopyOptions()

	var missing error
	for task := range p.Tasks() {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("copy interrupted before %s: %w", task.Name, err)
		}

		if missing != nil {
			op.report(ctx, sum, status.Entry{
				Kind:    execution.KindCopy,
				Name:    task.Name,
				Outcome: execution.OutcomeToolMissing,
				Detail:  "not attempted",
				Err:     missing,
			})
			continue
		}

		entry := op.runTask(ctx, task, opts)
		op.report(ctx, sum, entry)

		if entry.Outcome == execution.OutcomeToolMissing {
			logger.Error().Err(entry.Err).Msg("robocopy is missing, remaining copy tasks are skipped")
			missing = entry.Err
		}
	}

	if missing != nil {
		return errors.Errorf("robocopy is required to copy the profile: %w", missing)
	}
	return nil
}

// preflight checks the source is reachable and authenticates when it is not.
// It reports whether authentication happened.
func (op *copyOperation) preflight(ctx context.Context, source string) (bool, error) {
	if op.Prober == nil || !op.Config.Auth.Preflight {
		return false, nil
	}
	logger := zerolog.Ctx(ctx)

	probeErr := op.Prober.Probe(ctx, source)
	if probeErr == nil {
		logger.Debug().Str("source", source).Msg("source is reachable")
		return false, nil
	}

	share, ok := auth.ShareRoot(source)
	if !ok || op.Auth == nil {
		return false, errors.Errorf("source %s is not accessible: %w", source, probeErr)
	}

	op.logger(ctx).Warningf("%s is not accessible, authentication required", source)
	logger.Warn().Err(probeErr).Str("share", share).Msg("source not accessible, authenticating")

	if err := op.Auth.Authenticate(ctx, share); err != nil {
		return false, errors.Errorf("authenticating to %s: %w", share, err)
	}

	if err := op.Prober.Probe(ctx, source); err != nil {
		return true, errors.Errorf("source %s is still not accessible after authenticating: %w", source, err)
	}
	return true, nil
}

func (op *copyOperation) ensureDestination(ctx context.Context, dst string) error {
	logger := zerolog.Ctx(ctx)
	if op.dryRun() {
		logger.Info().Str("destination", dst).Msg("[dry run] destination directory not created")
		return nil
	}
	if err := op.MkdirAll(dst, 0o755); err != nil {
		return errors.Errorf("creating destination %s: %w", dst, err)
	}
	logger.Info().Str("destination", dst).Msg("destination directory ready")
	return nil
}

// runTask runs one task, re-running it once after authenticating on access
// denial and once more on partial success when configured to
func (op *copyOperation) runTask(ctx context.Context, task plan.CopyTask, opts robocopy.Options) status.Entry {
	logger := zerolog.Ctx(ctx).With().Str("task", task.Name).Logger()

	attempts := 1
	res := op.Exec.Execute(ctx, robocopy.Build(task, opts, op.dryRun()))

	var authErr error
	if res.Outcome == execution.OutcomeAccessDenied {
		share, isShare := auth.ShareRoot(task.Source)
		switch {
		case !isShare || op.Auth == nil:
			authErr = errors.Errorf("access to %s denied", task.Source)
		default:
			logger.Warn().Str("share", share).Msg("access denied, authenticating")
			if err := op.Auth.Authenticate(ctx, share); err != nil {
				authErr = err
				break
			}
			task.Retries++
			attempts++
			res = op.Exec.Execute(ctx, robocopy.Build(task, opts, op.dryRun()))
			if res.Outcome == execution.OutcomeAccessDenied {
				authErr = &auth.AuthenticationError{
					Share:    share,
					Attempts: 1,
					Last:     errors.Errorf("access to %s still denied after authenticating", task.Source),
				}
			}
		}
	}

	if res.Outcome == execution.OutcomePartialSuccess && op.Config.Copy.RetryPartial {
		logger.Info().Msg("partial copy, running the task once more")
		task.Retries++
		attempts++
		res = op.Exec.Execute(ctx, robocopy.Build(task, opts, op.dryRun()))
	}

	entry := status.FromResult(execution.KindCopy, task.Name, res)
	entry.Attempts = attempts
	if !res.Simulated && res.Err == nil {
		entry.Detail = robocopy.Describe(res.ExitCode)
	}
	switch {
	case authErr != nil:
		entry.Err = authErr
	case entry.Err == nil && !res.Outcome.OK():
		entry.Err = errors.Errorf("robocopy exited with %d (%s)", res.ExitCode, robocopy.Describe(res.ExitCode))
	}
	return entry
}
