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
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/profilesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 🏃 OperationRunner executes operations one after another
type OperationRunner struct {
	logger *zerolog.Logger
}

// 🏗️ NewRunner creates a new runner. A nil logger uses the one in the context.
func NewRunner(logger *zerolog.Logger) *OperationRunner {
	return &OperationRunner{
		logger: logger,
	}
}

// 🏃 Run executes each operation in order. The first fatal error stops the run.
func (r *OperationRunner) Run(ctx context.Context, sum *status.Summary, ops ...Operation) error {
	logger := r.logger
	if logger == nil {
		logger = zerolog.Ctx(ctx)
	}
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("run cancelled before %s: %w", op.Name(), err)
		}

		start := time.Now()
		logger.Debug().Str("operation", op.Name()).Msg("starting operation")

		if err := op.Execute(ctx, sum); err != nil {
			logger.Error().Err(err).Str("operation", op.Name()).Msg("operation failed, stopping run")
			return errors.Errorf("%s: %w", op.Name(), err)
		}

		logger.Debug().Str("operation", op.Name()).Dur("elapsed", time.Since(start)).Msg("operation finished")
	}
	return nil
}
