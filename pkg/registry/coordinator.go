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

package registry

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/profilesync/pkg/execution"
	"gitlab.com/tozd/go/errors"
)

// DefaultSession is targeted when no console session can be found
const DefaultSession = 1

// ⚙️ Options configure a Coordinator
type Options struct {
	DryRun           bool
	Helper           Locator
	Session          int  // interactive session for the helper; 0 looks up the console session
	FallbackToDirect bool // run helper jobs directly when the helper is missing
	AcceptEULA       bool

	MkdirAll  func(path string, perm fs.FileMode) error
	KeyExists func(key string) (bool, error)
}

// 🗝️ Coordinator runs export jobs one at a time, each independent of the others
type Coordinator struct {
	exec execution.Executor
	opts Options
}

// 🏭 NewCoordinator creates a coordinator
func NewCoordinator(exec execution.Executor, opts Options) *Coordinator {
	if opts.MkdirAll == nil {
		opts.MkdirAll = os.MkdirAll
	}
	if opts.KeyExists == nil {
		opts.KeyExists = keyExists
	}
	return &Coordinator{exec: exec, opts: opts}
}

// Session returns the session the helper targets
func (c *Coordinator) Session() int {
	if c.opts.Session > 0 {
		return c.opts.Session
	}
	if id, ok := consoleSession(); ok && id > 0 {
		return id
	}
	return DefaultSession
}

// ExportInvocation builds the plain reg export command
func ExportInvocation(job Job, dryRun bool) execution.Invocation {
	return execution.NewInvocation(execution.KindRegistryExport, "reg",
		[]string{"export", job.Key, job.File, "/y"},
		execution.WithSimulate(dryRun),
	)
}

// HelperInvocation wraps reg export so it runs in the given session with elevated rights
func HelperInvocation(helper string, session int, acceptEULA bool, job Job, dryRun bool) execution.Invocation {
	var args []string
	if acceptEULA {
		args = append(args, "-accepteula")
	}
	args = append(args,
		"-nobanner",
		"-i", strconv.Itoa(session),
		"-h",
		"cmd", "/c", "reg", "export", job.Key, job.File, "/y",
	)
	return execution.NewInvocation(execution.KindRegistryExport, helper, args, execution.WithSimulate(dryRun))
}

// 🚀 Run executes every job and returns one result per job, in order
func (c *Coordinator) Run(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, 0, len(jobs))
	for _, job := range jobs {
		if ctx.Err() != nil {
			results = append(results, JobResult{Job: job, Result: execution.Result{
				Outcome: execution.OutcomeFailed,
				Err:     errors.Errorf("exporting %s: %w", job.Key, ctx.Err()),
			}})
			continue
		}
		results = append(results, c.runJob(ctx, job))
	}
	return results
}

func (c *Coordinator) runJob(ctx context.Context, job Job) JobResult {
	logger := zerolog.Ctx(ctx).With().Str("key", job.Key).Str("file", job.File).Str("elevation", string(job.Elevation)).Logger()
	out := JobResult{Job: job}

	elevation := job.Elevation
	if elevation == ElevationHelper {
		helper, err := c.opts.Helper.Find()
		switch {
		case err == nil:
			out.Helper = helper
		case c.opts.FallbackToDirect:
			logger.Warn().Err(err).Msg("helper not found, exporting directly as configured")
			elevation = ElevationDirect
		default:
			logger.Error().Err(err).Msg("helper not found, export not attempted")
			out.Result = execution.Result{Outcome: execution.OutcomeToolMissing, Err: err}
			return out
		}
	}

	if elevation == ElevationDirect && !c.opts.DryRun {
		exists, err := c.opts.KeyExists(job.Key)
		if err != nil {
			logger.Debug().Err(err).Msg("could not check key, leaving it to reg")
		} else if !exists {
			out.Result = execution.Result{
				Outcome: execution.OutcomeFailed,
				Err:     errors.Errorf("registry key %s not found", job.Key),
			}
			return out
		}
		if strings.HasPrefix(strings.ToUpper(job.Key), "HKLM") || strings.HasPrefix(strings.ToUpper(job.Key), "HKEY_LOCAL_MACHINE") {
			if ok, err := elevated(); err == nil && !ok {
				logger.Warn().Msg("exporting a machine key without administrator rights")
			}
		}
	}

	if c.opts.DryRun {
		logger.Info().Msg("[dry run] output directory not created")
	} else if err := c.opts.MkdirAll(filepath.Dir(job.File), 0o755); err != nil {
		out.Result = execution.Result{
			Outcome: execution.OutcomeFailed,
			Err:     errors.Errorf("creating output directory for %s: %w", job.File, err),
		}
		return out
	}

	var inv execution.Invocation
	if elevation == ElevationHelper {
		inv = HelperInvocation(out.Helper, c.Session(), c.opts.AcceptEULA, job, c.opts.DryRun)
	} else {
		inv = ExportInvocation(job, c.opts.DryRun)
	}

	out.Result = c.exec.Execute(ctx, inv)
	return out
}
