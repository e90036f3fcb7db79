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
	"github.com/walteh/profilesync/pkg/execution"
	"github.com/walteh/profilesync/pkg/registry"
	"github.com/walteh/profilesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 🗝️ NewRegistryOperation creates the registry export stage
func NewRegistryOperation(opts Options) Operation {
	return &registryOperation{
		BaseOperation: NewBaseOperation(opts),
	}
}

type registryOperation struct {
	BaseOperation
}

func (op *registryOperation) Name() string {
	return "registry"
}

// 🏃 Execute exports every configured key; each job stands alone
func (op *registryOperation) Execute(ctx context.Context, sum *status.Summary) error {
	if err := op.validate(); err != nil {
		return err
	}
	ctx = zerolog.Ctx(ctx).With().Str("operation", op.Name()).Logger().WithContext(ctx)

	jobs := op.Config.RegistryJobs()
	if len(jobs) == 0 {
		zerolog.Ctx(ctx).Debug().Msg("no registry keys to export")
		return nil
	}

	op.logger(ctx).Section("exporting registry keys to " + op.Config.RegistryDir())

	coord := op.Registry
	if coord == nil {
		coord = registry.NewCoordinator(op.Exec, op.Config.RegistryOptions())
	}

	for _, r := range coord.Run(ctx, jobs) {
		entry := status.FromResult(execution.KindRegistryExport, r.Job.Key, r.Result)
		switch {
		case r.Result.Simulated:
		case r.Result.Outcome.OK():
			entry.Detail = r.Job.File
		case entry.Err == nil:
			entry.Err = errors.Errorf("reg export exited with %d", r.Result.ExitCode)
		}
		op.report(ctx, sum, entry)
	}

	return nil
}
